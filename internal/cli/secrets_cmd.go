// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// secrets_cmd.go - Vault and key commands.
//
// SECURITY: plaintext secret data and PINs never reach the log. Decrypted
// data is written to stdout only.

package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/vaulthub-tui/internal/api"
	"github.com/jeranaias/vaulthub-tui/internal/router"
)

// =============================================================================
// SECRETS
// =============================================================================

func newSecretsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "secrets",
		Aliases: []string{"secret", "vault"},
		Short:   "List, create, reveal and delete secrets",
	}
	cmd.AddCommand(
		newSecretsListCmd(env),
		newSecretsCreateCmd(env),
		newSecretsDecryptCmd(env),
		newSecretsDeleteCmd(env),
	)
	return cmd
}

func checkSecretType(t string, allowEmpty bool) error {
	if t == "" && allowEmpty {
		return nil
	}
	if !slices.Contains(api.SecretTypes, t) {
		return &ValidationError{Field: "--type", Value: t, Reason: "must be one of " + strings.Join(api.SecretTypes, ", ")}
	}
	return nil
}

func newSecretsListCmd(env *Env) *cobra.Command {
	var req api.ListSecretsRequest
	cmd := &cobra.Command{
		Use:         "list",
		Aliases:     []string{"ls"},
		Short:       "List secrets (names and metadata only)",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: map[string]string{routeAnnotation: router.PathVault},
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			if err := checkSecretType(req.SecretType, true); err != nil {
				return err
			}
			list, err := rt.App.Client.ListSecrets(rt.Ctx, req)
			if err != nil {
				return err
			}
			return rt.Emit(list, func(w io.Writer) {
				if len(list.Secrets) == 0 {
					fmt.Fprintln(w, RenderConditional(DimStyle, "No secrets."))
					return
				}
				rows := make([][]string, 0, len(list.Secrets))
				for _, s := range list.Secrets {
					rows = append(rows, []string{
						s.SecretUUID, s.SecretName, s.SecretType,
						strconv.FormatInt(s.AccessCount, 10),
						s.UpdatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(w, RenderTable([]string{"UUID", "NAME", "TYPE", "READS", "UPDATED"}, rows))
				fmt.Fprintln(w, RenderConditional(DimStyle,
					fmt.Sprintf("Page %d of %d, %d secrets", list.Page, max(list.TotalPages, 1), list.Total)))
			})
		}),
	}
	f := cmd.Flags()
	f.StringVarP(&req.SecretType, "type", "t", "", "only secrets of this type")
	f.IntVar(&req.Page, "page", 1, "page number")
	f.IntVar(&req.PageSize, "page-size", 20, "secrets per page")
	return cmd
}

func newSecretsCreateCmd(env *Env) *cobra.Command {
	var (
		req      api.CreateSecretRequest
		dataFile string
		tags     []string
		pinStdin bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Encrypt and store a new secret",
		Long: `Encrypt and store a new secret.

The secret value is read from --data-file ("-" for stdin) or prompted for
without echo. Your security PIN is always required.`,
		Example: `  vaulthub secrets create --name prod-db --type db_credential --data-file creds.json
  printf '%s\n' "$PIN" | vaulthub secrets create --name ci --type token --data-file token.txt --pin-stdin`,
		Args:        usageArgs(cobra.NoArgs),
		Annotations: map[string]string{routeAnnotation: router.PathVault},
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			if err := requireFlag("name", req.SecretName); err != nil {
				return err
			}
			if err := checkSecretType(req.SecretType, false); err != nil {
				return err
			}
			if dataFile == "-" && pinStdin {
				return &ValidationError{Field: "--data-file", Value: "-", Reason: "cannot read both the data and the PIN from stdin"}
			}

			pin, err := rt.readSecret("Security PIN: ", pinStdin)
			if err != nil {
				return err
			}
			switch dataFile {
			case "":
				if req.PlainData, err = rt.readSecret("Secret value: ", false); err != nil {
					return err
				}
			case "-":
				b, err := io.ReadAll(rt.Env.Streams.In)
				if err != nil {
					return err
				}
				req.PlainData = string(b)
			default:
				b, err := os.ReadFile(dataFile)
				if err != nil {
					return &ValidationError{Field: "--data-file", Value: dataFile, Reason: err.Error()}
				}
				req.PlainData = string(b)
			}
			if req.PlainData == "" {
				return &ValidationError{Field: "secret value", Reason: "is empty"}
			}
			req.SecurityPin = pin
			if len(tags) > 0 {
				req.Metadata = &api.SecretMetadata{Tags: tags}
			}

			s, err := rt.App.Client.CreateSecret(rt.Ctx, req)
			if err != nil {
				return err
			}
			return rt.Emit(s, func(w io.Writer) {
				fmt.Fprintf(w, "%s Stored %s (%s)\n", RenderStatus("ok"), s.SecretName, s.SecretUUID)
			})
		}),
	}
	f := cmd.Flags()
	f.StringVarP(&req.SecretName, "name", "n", "", "secret name")
	f.StringVarP(&req.SecretType, "type", "t", api.SecretOther, "secret type")
	f.StringVarP(&req.Description, "description", "d", "", "free-form description")
	f.StringVar(&dataFile, "data-file", "", `read the value from this file ("-" for stdin)`)
	f.StringSliceVar(&tags, "tag", nil, "tag to attach (repeatable)")
	f.BoolVar(&pinStdin, "pin-stdin", false, "read the PIN from stdin")
	return cmd
}

func newSecretsDecryptCmd(env *Env) *cobra.Command {
	var (
		pinStdin bool
		raw      bool
	)
	cmd := &cobra.Command{
		Use:         "decrypt <uuid>",
		Aliases:     []string{"show", "reveal"},
		Short:       "Decrypt a secret and print its value",
		Args:        usageArgs(cobra.ExactArgs(1)),
		Annotations: map[string]string{routeAnnotation: router.PathVault},
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			pin, err := rt.readSecret("Security PIN: ", pinStdin)
			if err != nil {
				return err
			}
			sec, err := rt.App.Client.DecryptSecret(rt.Ctx, args[0], pin)
			if err != nil {
				return err
			}
			if raw && !rt.Env.JSON {
				_, err := io.WriteString(rt.Out(), sec.PlainData)
				return err
			}
			return rt.Emit(sec, func(w io.Writer) {
				fmt.Fprintf(w, "%s%s\n", RenderLabel("Name"), sec.SecretName)
				fmt.Fprintf(w, "%s%s\n", RenderLabel("Type"), sec.SecretType)
				if sec.Description != "" {
					fmt.Fprintf(w, "%s%s\n", RenderLabel("Description"), sec.Description)
				}
				fmt.Fprintln(w)
				data := sec.PlainData
				lang := payloadLanguage(data)
				if lang == "json" {
					data = prettyJSON(data)
				}
				if ColorsEnabled() && rt.Env.Streams.IsStdoutTTY() {
					data = highlight(data, lang)
				}
				fmt.Fprintln(w, strings.TrimRight(data, "\n"))
			})
		}),
	}
	cmd.Flags().BoolVar(&pinStdin, "pin-stdin", false, "read the PIN from stdin")
	cmd.Flags().BoolVar(&raw, "raw", false, "print only the value, byte for byte")
	return cmd
}

func newSecretsDeleteCmd(env *Env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:         "delete <uuid>",
		Aliases:     []string{"rm"},
		Short:       "Delete a secret",
		Args:        usageArgs(cobra.ExactArgs(1)),
		Annotations: map[string]string{routeAnnotation: router.PathVault},
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			if !yes {
				if err := rt.confirm(fmt.Sprintf("Delete secret %s? [y/N] ", args[0])); err != nil {
					return err
				}
			}
			if err := rt.App.Client.DeleteSecret(rt.Ctx, args[0]); err != nil {
				return err
			}
			return rt.Emit(map[string]string{"deleted": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "%s Deleted %s\n", RenderStatus("ok"), args[0])
			})
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirm asks a yes/no question on the terminal. Without a terminal the
// caller must pass --yes.
func (rt *Runtime) confirm(question string) error {
	if !rt.Env.Streams.IsTTY() {
		return &ValidationError{Field: "--yes", Reason: "required when stdin is not a terminal"}
	}
	answer, err := rt.Env.Streams.Prompt(question)
	if err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	}
	return errCancelled
}

// =============================================================================
// KEYS
// =============================================================================

func newKeysCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Inspect and rotate your encryption key",
	}
	annotations := map[string]string{routeAnnotation: router.PathKeys}

	var phraseStdin bool
	verify := &cobra.Command{
		Use:         "verify-recovery",
		Short:       "Check a recovery phrase without changing anything",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: annotations,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			phrase, err := rt.readSecret("Recovery phrase: ", phraseStdin)
			if err != nil {
				return err
			}
			res, err := rt.App.Client.VerifyRecoveryKey(rt.Ctx, strings.Join(strings.Fields(phrase), " "))
			if err != nil {
				return err
			}
			return rt.Emit(res, func(w io.Writer) {
				status := "failed"
				if res.Valid {
					status = "ok"
				}
				msg := res.Message
				if msg == "" {
					msg = map[bool]string{true: "Recovery phrase is valid", false: "Recovery phrase does not match"}[res.Valid]
				}
				fmt.Fprintf(w, "%s %s\n", RenderStatus(status), msg)
			})
		}),
	}
	verify.Flags().BoolVar(&phraseStdin, "stdin", false, "read the phrase from stdin")

	var pinStdin bool
	rotate := &cobra.Command{
		Use:         "rotate",
		Short:       "Rotate your data encryption key",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: annotations,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			pin, err := rt.readSecret("Security PIN: ", pinStdin)
			if err != nil {
				return err
			}
			res, err := rt.App.Client.RotateKey(rt.Ctx, pin)
			if err != nil {
				return err
			}
			return rt.Emit(res, func(w io.Writer) {
				fmt.Fprintf(w, "%s Rotation started", RenderStatus("ok"))
				if res.UserEncryptionKey != nil {
					fmt.Fprintf(w, " (key version %d)", res.UserEncryptionKey.DEKVersion)
				}
				fmt.Fprintln(w)
				fmt.Fprintln(w, RenderConditional(DimStyle, "Follow progress with: vaulthub keys rotation-status"))
			})
		}),
	}
	rotate.Flags().BoolVar(&pinStdin, "pin-stdin", false, "read the PIN from stdin")

	status := &cobra.Command{
		Use:         "rotation-status",
		Short:       "Show progress of the latest key rotation",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: annotations,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			st, err := rt.App.Client.RotationStatus(rt.Ctx)
			if err != nil {
				return err
			}
			return rt.Emit(st, func(w io.Writer) {
				fmt.Fprintf(w, "%s%s\n", RenderLabel("Status"), RenderStatus(st.Status))
				fmt.Fprintf(w, "%s%d -> %d\n", RenderLabel("Key version"), st.OldVersion, st.NewVersion)
				fmt.Fprintf(w, "%s%d of %d", RenderLabel("Migrated"), st.MigratedSecrets, st.TotalSecrets)
				if st.FailedSecrets > 0 {
					fmt.Fprintf(w, " (%s)", RenderConditional(ErrorStyle, fmt.Sprintf("%d failed", st.FailedSecrets)))
				}
				fmt.Fprintln(w)
				fmt.Fprintf(w, "%s%s\n", RenderLabel("Started"), st.StartedAt.Local().Format("2006-01-02 15:04:05"))
				if st.CompletedAt != nil {
					fmt.Fprintf(w, "%s%s\n", RenderLabel("Completed"), st.CompletedAt.Local().Format("2006-01-02 15:04:05"))
				}
				if st.Error != "" {
					fmt.Fprintf(w, "%s%s\n", RenderLabel("Error"), RenderConditional(ErrorStyle, st.Error))
				}
			})
		}),
	}

	cmd.AddCommand(verify, rotate, status)
	return cmd
}
