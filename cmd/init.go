package cmd

import (
	"errors"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/twiced-technology-gmbh/todu/internal/clierr"
	"github.com/twiced-technology-gmbh/todu/internal/config"
	"github.com/twiced-technology-gmbh/todu/internal/kv"
	"github.com/twiced-technology-gmbh/todu/internal/output"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a data directory",
	Long:  `Creates the data directory with a default config.yml.`,
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().String("locale", "", "locale used for alphabetical ordering (BCP 47 tag)")
	initCmd.Flags().Int64("quota", config.DefaultQuotaBytes, "storage quota in bytes (0 = unlimited)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	dir, err := resolveDir()
	if err != nil {
		return err
	}

	cfg, err := config.Init(dir)
	if errors.Is(err, config.ErrExists) {
		return clierr.Newf(clierr.StoreExists, "already initialized in %s", dir).
			WithDetails(map[string]any{"dir": dir})
	}
	if err != nil {
		return err
	}

	if b := viper.GetString("backend"); b != "" {
		if !slices.Contains(kv.Kinds, b) {
			return clierr.Newf(clierr.InvalidInput, "invalid backend %q; allowed: %s", b, strings.Join(kv.Kinds, ", "))
		}
		cfg.Backend = b
	}
	if v, _ := cmd.Flags().GetString("locale"); v != "" {
		cfg.Locale = v
	}
	if cmd.Flags().Changed("quota") {
		cfg.QuotaBytes, _ = cmd.Flags().GetInt64("quota")
	}
	if err := cfg.Validate(); err != nil {
		return clierr.Wrap(clierr.InvalidInput, err)
	}
	if err := cfg.Save(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputFormat() == output.FormatJSON {
		return output.JSON(out, map[string]any{
			"status":  "initialized",
			"dir":     cfg.Dir(),
			"config":  cfg.ConfigPath(),
			"backend": cfg.Backend,
		})
	}

	output.Messagef(out, "Initialized todu in %s", cfg.Dir())
	output.Messagef(out, "  Config:  %s", cfg.ConfigPath())
	output.Messagef(out, "  Backend: %s", cfg.Backend)
	return nil
}
