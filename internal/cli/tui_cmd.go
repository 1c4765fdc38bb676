// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/vaulthub-tui/internal/router"
	"github.com/jeranaias/vaulthub-tui/internal/ui"
)

func newTUICmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui [route]",
		Short: "Open the interactive interface",
		Long: `Open the interactive interface, optionally at a route such as /audit.

The route goes through the same checks as any other navigation: without a
session you land on the login screen, and without a security PIN on the PIN
setup screen.`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: wrap(env, runTUI),
	}
	cmd.Flags().Bool("no-alt-screen", false, "draw in the main terminal buffer")
	return cmd
}

// runTUI hands the terminal to the interactive interface. It is also the
// body of the root command.
func runTUI(rt *Runtime, args []string) error {
	if err := rt.Env.Streams.RequiresTTY("open the interface"); err != nil {
		return err
	}
	if rt.Env.JSON {
		return &ValidationError{Field: "--json", Reason: "is not supported by the interactive interface"}
	}
	start := router.PathRoot
	if len(args) == 1 {
		start = router.Normalize(args[0])
		if _, ok := rt.App.Guard.Table().Lookup(start); !ok {
			return &ValidationError{Field: "route", Value: args[0], Reason: "is not a known route", Example: "vaulthub routes"}
		}
	}
	// The root command has no such flag; the lookup error means false.
	noAlt, _ := rt.Cmd.Flags().GetBool("no-alt-screen")
	rt.Log.Info("interface opened", zap.String("start", start))
	return ui.Run(rt.Ctx, rt.App, ui.Options{
		In:          rt.Env.Streams.In,
		Out:         rt.Env.Streams.Out,
		Start:       start,
		NoAltScreen: noAlt,
	})
}
