package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/todu/internal/clierr"
	"github.com/twiced-technology-gmbh/todu/internal/output"
	"github.com/twiced-technology-gmbh/todu/internal/storage"
)

const exportFileMode = 0o600

var exportCmd = &cobra.Command{
	Use:   "export [FILE]",
	Short: "Export tasks, settings and categories as JSON",
	Long:  `Writes an export document to FILE, or to stdout when FILE is omitted or "-".`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import an export document",
	Long: `Reads an export document from FILE ("-" for stdin). Each part (tasks,
settings, categories, darkMode) is applied independently; malformed parts are
skipped and reported.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.store.Export()
	if err != nil {
		return clierr.Wrap(clierr.StorageFailed, err)
	}
	if len(args) == 0 || args[0] == "-" {
		return output.JSON(cmd.OutOrStdout(), doc)
	}

	f, err := os.OpenFile(args[0], os.O_CREATE|os.O_TRUNC|os.O_WRONLY, exportFileMode) //nolint:gosec // user-chosen export path
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	if err := output.JSON(f, doc); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing export file: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputFormat() == output.FormatJSON {
		return output.JSON(out, map[string]any{"status": "exported", "file": args[0], "tasks": len(doc.Tasks)})
	}
	output.Messagef(out, "Exported %d tasks to %s", len(doc.Tasks), args[0])
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	var raw []byte
	var err error
	if args[0] == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(args[0]) //nolint:gosec // user-chosen import path
	}
	if err != nil {
		return fmt.Errorf("reading import file: %w", err)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.store.Import(raw)
	if errors.Is(err, storage.ErrInvalidDocument) {
		return clierr.Wrap(clierr.ImportFailed, err)
	}
	if err != nil {
		return err
	}
	// The store wrote the tasks directly; pick them up and announce them.
	if err := a.eng.Reload(); err != nil {
		return clierr.Wrap(clierr.StorageFailed, err)
	}

	out := cmd.OutOrStdout()
	if outputFormat() == output.FormatJSON {
		if err := output.JSON(out, res); err != nil {
			return err
		}
	} else {
		output.ImportSummary(out, res)
	}
	if len(res.Failed) > 0 {
		return &clierr.SilentError{Code: 1}
	}
	return nil
}
