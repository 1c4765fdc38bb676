// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jeranaias/vaulthub-tui/internal/api"
	"github.com/jeranaias/vaulthub-tui/internal/router"
)

func printProfile(w io.Writer, p *api.Profile) {
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Nickname"), p.Nickname)
	email := p.Email
	if p.Email != "" && !p.EmailVerified {
		email += " " + RenderConditional(WarningStyle, "(unverified)")
	}
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Email"), email)
	if p.Phone != "" {
		fmt.Fprintf(w, "%s%s\n", RenderLabel("Phone"), p.Phone)
	}
}

// profileFlags binds the editable profile fields and reports which were set.
type profileFlags struct {
	p api.Profile
}

func (f *profileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.p.Nickname, "nickname", "", "display name")
	cmd.Flags().StringVar(&f.p.Email, "email", "", "email address")
	cmd.Flags().StringVar(&f.p.Phone, "phone", "", "phone number")
}

func (f *profileFlags) changed(cmd *cobra.Command) map[string]string {
	out := map[string]string{}
	for flag, v := range map[string]string{"nickname": f.p.Nickname, "email": f.p.Email, "phone": f.p.Phone} {
		if cmd.Flags().Changed(flag) {
			out[flag] = v
		}
	}
	return out
}

func parseUserID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, &ValidationError{Field: "user id", Value: s, Reason: "must be a positive number"}
	}
	return uint(id), nil
}

func newProfileCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show and edit profiles",
	}
	ann := map[string]string{routeAnnotation: router.PathProfile}

	show := &cobra.Command{
		Use:         "show [user-id]",
		Short:       "Show your profile, or another user's (admin)",
		Args:        usageArgs(cobra.MaximumNArgs(1)),
		Annotations: ann,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			var (
				p   *api.Profile
				err error
			)
			if len(args) == 1 {
				id, perr := parseUserID(args[0])
				if perr != nil {
					return perr
				}
				p, err = rt.App.Client.GetUserProfile(rt.Ctx, id)
			} else {
				p, err = rt.App.Client.GetProfile(rt.Ctx)
			}
			if err != nil {
				return err
			}
			return rt.Emit(p, func(w io.Writer) { printProfile(w, p) })
		}),
	}

	var cf profileFlags
	create := &cobra.Command{
		Use:         "create",
		Short:       "Create your profile",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: ann,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			if err := requireFlag("nickname", cf.p.Nickname); err != nil {
				return err
			}
			p, err := rt.App.Client.CreateProfile(rt.Ctx, cf.p)
			if err != nil {
				return err
			}
			return rt.Emit(p, func(w io.Writer) { printProfile(w, p) })
		}),
	}
	cf.register(create)

	var uf profileFlags
	update := &cobra.Command{
		Use:   "update [user-id]",
		Short: "Change profile fields",
		Long: `Change profile fields.

Only the flags you pass are changed. With a user id the whole profile of that
user is replaced (admin).`,
		Args:        usageArgs(cobra.MaximumNArgs(1)),
		Annotations: ann,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			fields := uf.changed(rt.Cmd)
			if len(fields) == 0 {
				return &ValidationError{Field: "flags", Reason: "give at least one of --nickname, --email, --phone"}
			}
			var (
				p   *api.Profile
				err error
			)
			if len(args) == 1 {
				id, perr := parseUserID(args[0])
				if perr != nil {
					return perr
				}
				p, err = rt.App.Client.UpdateUserProfile(rt.Ctx, id, uf.p)
			} else {
				p, err = rt.App.Client.PatchProfile(rt.Ctx, fields)
			}
			if err != nil {
				return err
			}
			return rt.Emit(p, func(w io.Writer) { printProfile(w, p) })
		}),
	}
	uf.register(update)

	var yes bool
	del := &cobra.Command{
		Use:         "delete",
		Short:       "Delete your profile",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: ann,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			if !yes {
				if err := rt.confirm("Delete your profile? [y/N] "); err != nil {
					return err
				}
			}
			if err := rt.App.Client.DeleteProfile(rt.Ctx); err != nil {
				return err
			}
			return rt.Emit(map[string]bool{"deleted": true}, func(w io.Writer) {
				fmt.Fprintf(w, "%s Profile deleted\n", RenderStatus("ok"))
			})
		}),
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	var page, pageSize int
	list := &cobra.Command{
		Use:         "list",
		Short:       "List all profiles (admin)",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: ann,
		RunE: wrap(env, func(rt *Runtime, args []string) error {
			res, err := rt.App.Client.ListProfiles(rt.Ctx, page, pageSize)
			if err != nil {
				return err
			}
			return rt.Emit(res, func(w io.Writer) {
				rows := make([][]string, 0, len(res.Profiles))
				for _, p := range res.Profiles {
					rows = append(rows, []string{strconv.FormatUint(uint64(p.UserID), 10), p.Nickname, p.Email, p.Phone})
				}
				fmt.Fprintln(w, RenderTable([]string{"USER ID", "NICKNAME", "EMAIL", "PHONE"}, rows))
			})
		}),
	}
	list.Flags().IntVar(&page, "page", 1, "page number")
	list.Flags().IntVar(&pageSize, "page-size", 20, "profiles per page")

	cmd.AddCommand(show, create, update, del, list)
	return cmd
}
