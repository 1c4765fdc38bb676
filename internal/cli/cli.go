// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeranaias/vaulthub-tui/internal/credential"
)

// Build information, set with -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// routeAnnotation binds a command to the client route whose guard it runs.
const routeAnnotation = "route"

// Env carries global flag values and injectable dependencies for one run.
type Env struct {
	Streams *Streams

	ConfigPath string
	APIURL     string
	Lang       string
	JSON       bool
	Verbose    bool
	NoColor    bool

	// HTTPClient and Store replace the configured transport and credential
	// backend. Tests set them.
	HTTPClient *http.Client
	Store      credential.Store
}

// Execute runs the command line of the process and returns its exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, &Env{Streams: StdStreams()}, os.Args[1:])
}

// Run executes args against env and returns the exit code.
func Run(ctx context.Context, env *Env, args []string) int {
	root := NewRootCommand(env)
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return ExitSuccess
	}
	name := root.Name()
	if cmd != nil {
		name = cmd.CommandPath()
	}
	if isCobraUsageError(err) {
		err = &ValidationError{Field: "arguments", Reason: err.Error()}
	}
	DisplayError(env.Streams.Err, err, env.JSON, name)
	return GetExitCode(err)
}

// isCobraUsageError matches the argument errors cobra builds with
// fmt.Errorf.
func isCobraUsageError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag") ||
		strings.HasPrefix(msg, "accepts ") ||
		strings.HasPrefix(msg, "requires at least") ||
		strings.HasPrefix(msg, "invalid argument")
}

// NewRootCommand builds the full command tree bound to env.
func NewRootCommand(env *Env) *cobra.Command {
	root := &cobra.Command{
		Use:   "vaulthub",
		Short: "Terminal client for the VaultHub secret vault",
		Long: `vaulthub is a terminal client for the VaultHub secret vault.

Run without a command to open the interactive interface. Every command checks
your session and role the same way the interface does before it contacts the
service.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if env.NoColor {
				SetColorsEnabled(false)
			}
		},
		RunE: wrap(env, runTUI),
	}
	root.SetIn(env.Streams.In)
	root.SetOut(env.Streams.Out)
	root.SetErr(env.Streams.Err)

	pf := root.PersistentFlags()
	pf.StringVarP(&env.ConfigPath, "config", "c", "", "config file (default ~/.vaulthub/config.toml)")
	pf.StringVar(&env.APIURL, "api-url", "", "service base URL, overrides api.base_url")
	pf.StringVar(&env.Lang, "lang", "", "notice language (en, zh)")
	pf.BoolVar(&env.JSON, "json", false, "print machine-readable JSON")
	pf.BoolVarP(&env.Verbose, "verbose", "v", false, "log to stderr as well")
	pf.BoolVar(&env.NoColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newLoginCmd(env),
		newLogoutCmd(env),
		newRegisterCmd(env),
		newWhoamiCmd(env),
		newRefreshCmd(env),
		newPasswordResetCmd(env),
		newPinCmd(env),
		newEmailCmd(env),
		newSecretsCmd(env),
		newKeysCmd(env),
		newUsersCmd(env),
		newPasswdCmd(env),
		newAuditCmd(env),
		newStatsCmd(env),
		newProfileCmd(env),
		newSysconfigCmd(env),
		newRoutesCmd(env),
		newHistoryCmd(env),
		newConfigCmd(env),
		newTUICmd(env),
		newVersionCmd(env),
	)
	return root
}

// usageArgs wraps a cobra positional-args validator so its failures map to
// the usage exit code.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &ValidationError{Field: "arguments", Reason: err.Error(), Example: cmd.UseLine()}
		}
		return nil
	}
}

// requireFlag returns a ValidationError when value is empty.
func requireFlag(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: "--" + name, Reason: "is required"}
	}
	return nil
}

var errCancelled = errors.New("cancelled")
