package cmd

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/todu/internal/clierr"
	"github.com/twiced-technology-gmbh/todu/internal/output"
)

var categoriesCmd = &cobra.Command{
	Use:     "categories",
	Aliases: []string{"cats"},
	Short:   "List categories",
	Long: `Lists the categories used by tasks in locale order. With --saved, lists the
saved category list offered for new tasks instead.`,
	Args: cobra.NoArgs,
	RunE: runCategories,
}

var categoriesAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a category to the saved list",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategoriesAdd,
}

var categoriesRemoveCmd = &cobra.Command{
	Use:     "remove NAME",
	Aliases: []string{"rm"},
	Short:   "Remove a category from the saved list",
	Long:    `Removes a category from the saved list. Tasks keep their category.`,
	Args:    cobra.ExactArgs(1),
	RunE:    runCategoriesRemove,
}

func init() {
	categoriesCmd.Flags().Bool("saved", false, "list the saved categories")
	categoriesCmd.AddCommand(categoriesAddCmd)
	categoriesCmd.AddCommand(categoriesRemoveCmd)
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var names []string
	if saved, _ := cmd.Flags().GetBool("saved"); saved {
		names = a.store.LoadCategories()
	} else {
		names = a.eng.Categories()
	}
	return printCategories(cmd, names)
}

func runCategoriesAdd(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if name == "" {
		return clierr.New(clierr.InvalidInput, "category name cannot be empty")
	}
	return updateSavedCategories(cmd, func(names []string) []string {
		if slices.Contains(names, name) {
			return names
		}
		return append(names, name)
	})
}

func runCategoriesRemove(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	return updateSavedCategories(cmd, func(names []string) []string {
		return slices.DeleteFunc(names, func(n string) bool { return n == name })
	})
}

func updateSavedCategories(cmd *cobra.Command, change func([]string) []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	names := change(a.store.LoadCategories())
	if !a.store.SaveCategories(names) {
		return clierr.New(clierr.StorageFailed, "categories could not be saved")
	}
	return printCategories(cmd, a.store.LoadCategories())
}

func printCategories(cmd *cobra.Command, names []string) error {
	out := cmd.OutOrStdout()
	if outputFormat() == output.FormatJSON {
		if names == nil {
			names = []string{}
		}
		return output.JSON(out, names)
	}
	for _, n := range names {
		output.Messagef(out, "%s", n)
	}
	return nil
}
