package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/todu/internal/clierr"
	"github.com/twiced-technology-gmbh/todu/internal/config"
	"github.com/twiced-technology-gmbh/todu/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify the data directory configuration",
	Long: `View config.yml, get a specific key, or set a writable value. User
preferences such as sort order live in 'todu settings' instead.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// configAccessor describes how to get and set a config key.
type configAccessor struct {
	get func(*config.Config) any
	set func(*config.Config, string) error
}

var configAccessors = map[string]configAccessor{
	"version": {
		get: func(c *config.Config) any { return c.Version },
	},
	"dir": {
		get: func(c *config.Config) any { return c.Dir() },
	},
	"backend": {
		get: func(c *config.Config) any { return c.Backend },
		set: func(c *config.Config, v string) error { c.Backend = v; return nil },
	},
	"quota_bytes": {
		get: func(c *config.Config) any { return c.QuotaBytes },
		set: func(c *config.Config, v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return clierr.Newf(clierr.InvalidInput, "invalid quota_bytes %q: must be an integer", v)
			}
			c.QuotaBytes = n
			return nil
		},
	},
	"locale": {
		get: func(c *config.Config) any { return c.Locale },
		set: func(c *config.Config, v string) error { c.Locale = v; return nil },
	},
	"log_level": {
		get: func(c *config.Config) any { return c.LogLevel },
		set: func(c *config.Config, v string) error { c.LogLevel = v; return nil },
	},
	"activity_log": {
		get: func(c *config.Config) any { return c.ActivityEnabled() },
		set: func(c *config.Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return clierr.Newf(clierr.InvalidInput, "invalid activity_log %q: must be true or false", v)
			}
			c.ActivityLog = &b
			return nil
		},
	},
}

// allConfigKeys returns config keys in display order.
func allConfigKeys() []string {
	return []string{"version", "dir", "backend", "quota_bytes", "locale", "log_level", "activity_log"}
}

func lookupConfigKey(key string) (configAccessor, error) {
	acc, ok := configAccessors[key]
	if !ok {
		return acc, clierr.Newf(clierr.InvalidInput, "unknown config key %q", key).
			WithDetails(map[string]any{"allowed": allConfigKeys()})
	}
	return acc, nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputFormat() == output.FormatJSON {
		m := make(map[string]any, len(configAccessors))
		for _, key := range allConfigKeys() {
			m[key] = configAccessors[key].get(cfg)
		}
		return output.JSON(out, m)
	}

	for _, key := range allConfigKeys() {
		fmt.Fprintf(out, "%-14s %v\n", key, configAccessors[key].get(cfg))
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	acc, err := lookupConfigKey(args[0])
	if err != nil {
		return err
	}

	val := acc.get(cfg)
	if outputFormat() == output.FormatJSON {
		return output.JSON(cmd.OutOrStdout(), val)
	}
	fmt.Fprintln(cmd.OutOrStdout(), val)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	acc, err := lookupConfigKey(key)
	if err != nil {
		return err
	}
	if acc.set == nil {
		return clierr.Newf(clierr.InvalidInput, "config key %q is read-only", key)
	}
	if err := acc.set(cfg, strings.TrimSpace(value)); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return clierr.Wrap(clierr.InvalidInput, err)
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputFormat() == output.FormatJSON {
		return output.JSON(out, map[string]any{"key": key, "value": acc.get(cfg)})
	}
	output.Messagef(out, "Set %s = %v", key, acc.get(cfg))
	if key == "backend" {
		output.Messagef(out, "  Existing data is not copied; use export and import to move it.")
	}
	return nil
}
