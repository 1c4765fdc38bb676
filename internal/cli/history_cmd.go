// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/vaulthub-tui/internal/storage"
)

var errJournalDisabled = errors.New("the journal is disabled (journal.enabled = false)")

var journalKinds = []storage.Kind{
	storage.KindNavigation, storage.KindForcedLogout,
	storage.KindLogin, storage.KindLogout, storage.KindNotice,
}

func newHistoryCmd(env *Env) *cobra.Command {
	var (
		limit int
		kind  string
		since time.Duration
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the local session journal",
		Long: `Show recent entries of the local journal: navigations with their guard
decisions, logins, logouts, forced logouts and notices.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			if rt.App.Journal == nil {
				return &ConfigError{Err: errJournalDisabled}
			}
			q := storage.Query{Limit: limit, Kind: storage.Kind(kind)}
			if kind != "" && !validKind(q.Kind) {
				return &ValidationError{Field: "--kind", Value: kind, Reason: "unknown event kind"}
			}
			if since > 0 {
				q.Since = time.Now().Add(-since)
			}
			events, err := rt.App.Journal.Recent(rt.Ctx, q)
			if err != nil {
				return err
			}
			return rt.Emit(events, func(w io.Writer) {
				if len(events) == 0 {
					fmt.Fprintln(w, RenderConditional(DimStyle, "No journal entries."))
					return
				}
				rows := make([][]string, 0, len(events))
				for _, e := range events {
					rows = append(rows, []string{
						e.At.Local().Format("2006-01-02 15:04:05"),
						string(e.Kind), describeEvent(e),
					})
				}
				fmt.Fprintln(w, RenderTable([]string{"TIME", "KIND", "DETAIL"}, rows))
			})
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", storage.DefaultLimit, "number of entries")
	cmd.Flags().StringVar(&kind, "kind", "", "only this kind: navigation, forced_logout, login, logout, notice")
	cmd.Flags().DurationVar(&since, "since", 0, "only entries newer than this duration")

	var yes bool
	clear := &cobra.Command{
		Use:   "clear",
		Short: "Delete all journal entries",
		Args:  usageArgs(cobra.NoArgs),
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			if rt.App.Journal == nil {
				return &ConfigError{Err: errJournalDisabled}
			}
			if !yes {
				if err := rt.confirm("Delete the local journal? [y/N] "); err != nil {
					return err
				}
			}
			if err := rt.App.Journal.Clear(rt.Ctx); err != nil {
				return err
			}
			return rt.Emit(map[string]bool{"cleared": true}, func(w io.Writer) {
				fmt.Fprintf(w, "%s Journal cleared\n", RenderStatus("ok"))
			})
		}),
	}
	clear.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.AddCommand(clear)
	return cmd
}

func validKind(k storage.Kind) bool {
	for _, v := range journalKinds {
		if v == k {
			return true
		}
	}
	return false
}

// describeEvent summarizes an event in one line.
func describeEvent(e storage.Event) string {
	switch e.Kind {
	case storage.KindNavigation:
		if e.Target != "" && e.Target != e.Route {
			return fmt.Sprintf("%s -> %s (%s)", e.Route, e.Target, e.Reason)
		}
		return e.Route
	case storage.KindForcedLogout:
		return "credential rejected, moved to " + e.Target
	case storage.KindLogin:
		return e.Username
	case storage.KindNotice:
		return "[" + e.Level + "] " + e.Message
	}
	return e.Message
}
