// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/vaulthub-tui/internal/api"
	"github.com/jeranaias/vaulthub-tui/internal/router"
)

func newPinCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Manage the security PIN that protects your secrets",
	}
	cmd.AddCommand(newPinStatusCmd(env), newPinSetupCmd(env), newPinResetCmd(env))
	return cmd
}

func newPinStatusCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a security PIN is set",
		Args:  usageArgs(cobra.NoArgs),
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			if err := rt.requireSession(); err != nil {
				return err
			}
			st, err := rt.App.Client.SecurityPinStatus(rt.Ctx)
			if err != nil {
				return err
			}
			return rt.Emit(st, func(w io.Writer) {
				if st.HasSecurityPin {
					fmt.Fprintf(w, "%s Security PIN is set\n", RenderStatus("ok"))
					return
				}
				fmt.Fprintf(w, "%s No security PIN. Run: vaulthub pin setup\n", RenderStatus("warning"))
			})
		}),
	}
}

// printMnemonic shows a recovery phrase with a storage warning.
// SECURITY: the phrase goes to stdout only; it is never logged.
func printMnemonic(w io.Writer, mnemonic string) {
	fmt.Fprintln(w, RenderConditional(WarningStyle, "Write down this recovery phrase and keep it offline."))
	fmt.Fprintln(w, RenderConditional(WarningStyle, "It is the only way to reset a forgotten PIN and it will not be shown again."))
	fmt.Fprintln(w)
	words := strings.Fields(mnemonic)
	for i, word := range words {
		fmt.Fprintf(w, "  %2d. %s\n", i+1, RenderConditional(SecretStyle, word))
	}
}

func newPinSetupCmd(env *Env) *cobra.Command {
	var pinStdin bool
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Set your security PIN and create your encryption key",
		Long: `Set your security PIN.

This creates your encryption key on the service and prints a recovery phrase.
The vault stays unavailable until a PIN is set.`,
		Args:        usageArgs(cobra.NoArgs),
		Annotations: map[string]string{routeAnnotation: router.PathSetupSecurityPin},
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			pin, err := rt.readNewSecret("security PIN", "Security PIN: ", minPinLen, pinStdin)
			if err != nil {
				return err
			}
			resp, err := rt.App.Client.CreateEncryptionKey(rt.Ctx, pin)
			if err != nil {
				return err
			}
			return rt.Emit(resp, func(w io.Writer) {
				fmt.Fprintf(w, "%s Security PIN set\n", RenderStatus("ok"))
				if resp.RecoveryKey != "" {
					fmt.Fprintln(w)
					printMnemonic(w, resp.RecoveryKey)
				}
			})
		}),
	}
	cmd.Flags().BoolVar(&pinStdin, "pin-stdin", false, "read the PIN from stdin")
	return cmd
}

func newPinResetCmd(env *Env) *cobra.Command {
	var stdin bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace a forgotten PIN using the recovery phrase",
		Long: `Replace a forgotten security PIN.

Reads the recovery phrase, then the new PIN. With --stdin both are read from
stdin, one per line. A new recovery phrase replaces the old one.`,
		Args:        usageArgs(cobra.NoArgs),
		Annotations: map[string]string{routeAnnotation: router.PathResetSecurityPin},
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			mnemonic, err := rt.readSecret("Recovery phrase: ", stdin)
			if err != nil {
				return err
			}
			mnemonic = strings.Join(strings.Fields(mnemonic), " ")
			if mnemonic == "" {
				return &ValidationError{Field: "recovery phrase", Reason: "is required"}
			}
			pin, err := rt.readNewSecret("security PIN", "New security PIN: ", minPinLen, stdin)
			if err != nil {
				return err
			}
			resp, err := rt.App.Client.ResetSecurityPin(rt.Ctx, api.ResetSecurityPinRequest{
				RecoveryMnemonic: mnemonic,
				NewSecurityPin:   pin,
			})
			if err != nil {
				return err
			}
			return rt.Emit(resp, func(w io.Writer) {
				fmt.Fprintf(w, "%s Security PIN replaced\n", RenderStatus("ok"))
				if resp.NewRecoveryMnemonic != "" {
					fmt.Fprintln(w)
					printMnemonic(w, resp.NewRecoveryMnemonic)
				}
			})
		}),
	}
	cmd.Flags().BoolVar(&stdin, "stdin", false, "read the phrase and PIN from stdin")
	return cmd
}
