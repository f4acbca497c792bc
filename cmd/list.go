package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/todu/internal/clierr"
	"github.com/twiced-technology-gmbh/todu/internal/config"
	"github.com/twiced-technology-gmbh/todu/internal/engine"
	"github.com/twiced-technology-gmbh/todu/internal/output"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long: `Lists tasks with optional filtering and sorting. Sort order defaults to the
sortBy and sortOrder settings; completed tasks are hidden when
showCompletedTasks is off, unless --status is given.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().String("status", "", "filter by status (all, pending, completed)")
	listCmd.Flags().String("priority", "", "filter by priority (all, low, medium, high)")
	listCmd.Flags().String("category", "", "filter by category")
	listCmd.Flags().String("due", "", "filter by due date (all, overdue, today, upcoming, none)")
	listCmd.Flags().StringP("search", "s", "", "search text and category (case-insensitive)")
	listCmd.Flags().String("sort", "", "sort field ("+strings.Join(config.SortFields, ", ")+")")
	listCmd.Flags().String("order", "", "sort direction (asc, desc)")
	listCmd.Flags().BoolP("reverse", "r", false, "reverse the sort direction")
	listCmd.Flags().IntP("limit", "n", 0, "limit number of results")
	listCmd.Flags().Bool("stored", false, "list every task in stored order, ignoring filters and sorting")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var tasks []task.Task
	if stored, _ := cmd.Flags().GetBool("stored"); stored {
		tasks = a.eng.Tasks()
	} else {
		c, err := listCriteria(cmd, a.settings)
		if err != nil {
			return err
		}
		tasks = a.eng.Query(c)
	}
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return outputTaskList(cmd, tasks)
}

// listCriteria builds query criteria from flags over the settings defaults.
func listCriteria(cmd *cobra.Command, s config.Settings) (engine.Criteria, error) {
	flags := cmd.Flags()
	status, _ := flags.GetString("status")
	priority, _ := flags.GetString("priority")
	category, _ := flags.GetString("category")
	due, _ := flags.GetString("due")
	search, _ := flags.GetString("search")
	sortBy, _ := flags.GetString("sort")
	order, _ := flags.GetString("order")
	reverse, _ := flags.GetBool("reverse")

	if sortBy == "" {
		sortBy = s.SortBy
	}
	if order == "" {
		order = s.SortOrder
	}
	if status == "" && !s.ShowCompletedTasks {
		status = string(engine.StatusPending)
	}

	var c engine.Criteria
	var err error
	if c.Status, err = engine.ParseStatus(status); err != nil {
		return c, clierr.Wrap(clierr.InvalidStatus, err)
	}
	if c.Due, err = engine.ParseDueBucket(due); err != nil {
		return c, clierr.Wrap(clierr.InvalidInput, err)
	}
	if c.SortKey, err = engine.ParseSortKey(sortBy); err != nil {
		return c, clierr.Wrap(clierr.InvalidSort, err)
	}
	if c.Direction, err = engine.ParseDirection(order); err != nil {
		return c, clierr.Wrap(clierr.InvalidSort, err)
	}
	if reverse {
		c.Direction = flipDirection(c.Direction)
	}
	if priority != "" && priority != engine.All {
		p, err := task.ParsePriority(priority)
		if err != nil {
			return c, err
		}
		c.Priority = p
	}
	c.Category = category
	c.Search = search
	return c, nil
}

func flipDirection(d engine.Direction) engine.Direction {
	if d == engine.Ascending {
		return engine.Descending
	}
	return engine.Ascending
}

func outputTaskList(cmd *cobra.Command, tasks []task.Task) error {
	out := cmd.OutOrStdout()
	switch outputFormat() {
	case output.FormatJSON:
		if tasks == nil {
			tasks = []task.Task{}
		}
		return output.JSON(out, tasks)
	case output.FormatCompact:
		output.TaskCompact(out, tasks)
	default:
		output.TaskTable(out, tasks, time.Now())
	}
	return nil
}
