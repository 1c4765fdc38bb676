// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/jeranaias/vaulthub-tui/internal/config"
)

// loadFileConfig reads the config file alone, without environment or flag
// overrides, so that `config set` does not persist them.
func loadFileConfig(explicit string) (*config.Config, string, error) {
	path, err := config.ResolvePath(explicit)
	if err != nil {
		return nil, "", &ConfigError{Err: err}
	}
	cfg := config.Default()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return cfg, path, nil
	}
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		err = config.LoadJSON(cfg, path)
	} else {
		err = config.LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, path, &ConfigError{Err: fmt.Errorf("%s: %w", path, err)}
	}
	return cfg, path, nil
}

func newConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit the client configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the effective configuration: file values with environment and flag
overrides applied. Secrets are redacted.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: wrapLocal(env, func(rt *Runtime, args []string) error {
			safe := rt.Config.Redacted()
			return rt.Emit(safe, func(w io.Writer) {
				_ = toml.NewEncoder(w).Encode(safe)
			})
		}),
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one effective value",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: wrapLocal(env, func(rt *Runtime, args []string) error {
			v, err := rt.Config.Redacted().Get(args[0])
			if err != nil {
				return &ValidationError{Field: "key", Value: args[0], Reason: err.Error(),
					Example: "vaulthub config keys"}
			}
			return rt.Emit(map[string]any{args[0]: v}, func(w io.Writer) {
				fmt.Fprintln(w, formatValue(v))
			})
		}),
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one value in the config file",
		Example: `  vaulthub config set api.base_url https://vault.example.com/api
  vaulthub config set api.success_codes 0
  vaulthub config set credential.backend redis`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, path, err := loadFileConfig(env.ConfigPath)
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return &ValidationError{Field: args[0], Value: args[1], Reason: err.Error()}
			}
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return &ConfigError{Err: err}
			}
			if env.JSON {
				return NewJSONResponse(c.CommandPath(), map[string]string{"path": path, "key": args[0]}).Print(env.Streams.Out)
			}
			fmt.Fprintf(env.Streams.Out, "%s %s updated in %s\n", RenderStatus("ok"), args[0], path)
			return nil
		},
	}

	keys := &cobra.Command{
		Use:   "keys",
		Short: "List the configuration keys",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(c *cobra.Command, args []string) error {
			if env.JSON {
				return NewJSONResponse(c.CommandPath(), config.GetAllKeys()).Print(env.Streams.Out)
			}
			for _, k := range config.GetAllKeys() {
				fmt.Fprintln(env.Streams.Out, k)
			}
			return nil
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(c *cobra.Command, args []string) error {
			p, err := config.ResolvePath(env.ConfigPath)
			if err != nil {
				return &ConfigError{Err: err}
			}
			if env.JSON {
				return NewJSONResponse(c.CommandPath(), map[string]string{"path": p}).Print(env.Streams.Out)
			}
			fmt.Fprintln(env.Streams.Out, p)
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(c *cobra.Command, args []string) error {
			p, err := config.ResolvePath(env.ConfigPath)
			if err != nil {
				return &ConfigError{Err: err}
			}
			if _, err := os.Stat(p); err == nil && !force {
				return &ValidationError{Field: "config", Value: p, Reason: "already exists; pass --force to overwrite"}
			}
			if err := config.Save(config.Default(), p); err != nil {
				return &ConfigError{Err: err}
			}
			if env.JSON {
				return NewJSONResponse(c.CommandPath(), map[string]string{"path": p}).Print(env.Streams.Out)
			}
			fmt.Fprintf(env.Streams.Out, "%s Wrote %s\n", RenderStatus("ok"), p)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(show, get, set, keys, path, initCmd)
	return cmd
}

func formatValue(v any) string {
	switch x := v.(type) {
	case []int:
		parts := make([]string, len(x))
		for i, n := range x {
			parts[i] = fmt.Sprint(n)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}
