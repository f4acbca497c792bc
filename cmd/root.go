// Package cmd implements the todu CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/twiced-technology-gmbh/todu/internal/clierr"
	"github.com/twiced-technology-gmbh/todu/internal/output"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "TODU"

// Global flags.
var (
	flagJSON    bool
	flagTable   bool
	flagCompact bool
	flagNoColor bool
)

var rootCmd = &cobra.Command{
	Use:   "todu",
	Short: "A local to-do list with live sync between terminals",
	Long: `todu keeps a to-do list in a local data directory. Every running todu
process sees changes made by the others. Run todu without a command to open
the interactive list.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runTUI,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		output.ConfigureColor(cmd.OutOrStdout(), flagNoColor || os.Getenv("NO_COLOR") != "")
	},
}

func init() {
	cobra.OnInitialize(initViper)

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flagJSON, "json", false, "output as JSON")
	pf.BoolVar(&flagTable, "table", false, "output as table")
	pf.BoolVar(&flagCompact, "compact", false, "compact one-line-per-record output")
	pf.BoolVar(&flagCompact, "oneline", false, "alias for --compact")
	pf.BoolVar(&flagNoColor, "no-color", false, "disable color output")
	pf.String("dir", "", "data directory (default ~/.config/todu)")
	pf.String("backend", "", "storage backend override (file, sqlite)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")

	for _, name := range []string{"dir", "backend", "log-level"} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}
}

// initViper lets TODU_DIR, TODU_BACKEND and TODU_LOG_LEVEL stand in for
// the matching flags.
func initViper() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// Execute runs the root command.
func Execute() {
	_, err := rootCmd.ExecuteC()
	if err == nil {
		return
	}
	os.Exit(reportError(os.Stdout, os.Stderr, err))
}

// reportError writes err in the active output format and returns the exit
// code.
func reportError(stdout, stderr io.Writer, err error) int {
	var silent *clierr.SilentError
	if errors.As(err, &silent) {
		return silent.Code
	}

	var cliErr *clierr.Error
	isCLI := errors.As(err, &cliErr)

	if outputFormat() == output.FormatJSON {
		if isCLI {
			output.JSONError(stdout, cliErr.Code, cliErr.Message, cliErr.Details)
			return cliErr.ExitCode()
		}
		output.JSONError(stdout, clierr.InternalError, err.Error(), nil)
		return 2 //nolint:mnd // exit code 2 for internal errors
	}

	fmt.Fprintln(stderr, "Error:", err)
	if isCLI {
		return cliErr.ExitCode()
	}
	return 1
}

// outputFormat returns the detected output format from flags/env.
func outputFormat() output.Format {
	return output.Detect(flagJSON, flagTable, flagCompact)
}
