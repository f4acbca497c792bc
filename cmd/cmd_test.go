package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/todu/internal/clierr"
	"github.com/twiced-technology-gmbh/todu/internal/engine"
	"github.com/twiced-technology-gmbh/todu/internal/output"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

func TestMain(m *testing.M) {
	output.DisableColor()
	os.Exit(m.Run())
}

// resetFlags restores every flag to its default so state from one
// invocation does not leak into the next.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the CLI against dir and returns stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append([]string{"--dir", dir}, args...))

	_, err := rootCmd.ExecuteC()
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, args...)
	require.NoError(t, err, "todu %s", strings.Join(args, " "))
	return out
}

func initDir(t *testing.T, args ...string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "todu")
	mustRun(t, dir, append([]string{"init"}, args...)...)
	return dir
}

func addTask(t *testing.T, dir string, args ...string) task.Task {
	t.Helper()
	out := mustRun(t, dir, append([]string{"add", "--json"}, args...)...)
	var tk task.Task
	require.NoError(t, json.Unmarshal([]byte(out), &tk))
	return tk
}

func storedTasks(t *testing.T, dir string) []task.Task {
	t.Helper()
	out := mustRun(t, dir, "list", "--stored", "--json")
	var tasks []task.Task
	require.NoError(t, json.Unmarshal([]byte(out), &tasks))
	return tasks
}

func texts(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Text
	}
	return out
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var cliErr *clierr.Error
	require.True(t, errors.As(err, &cliErr), "expected clierr.Error, got %v", err)
	assert.Equal(t, code, cliErr.Code)
}

func TestInitTwiceFails(t *testing.T) {
	dir := initDir(t)
	_, err := run(t, dir, "init")
	requireCode(t, err, clierr.StoreExists)
}

func TestUninitializedDirIsRejected(t *testing.T) {
	_, err := run(t, filepath.Join(t.TempDir(), "missing"), "list")
	requireCode(t, err, clierr.StoreNotFound)
}

func TestAddAndList(t *testing.T) {
	dir := initDir(t)

	tk := addTask(t, dir, "Buy", "milk", "-p", "high", "-c", "shopping", "--due", "2030-01-02")
	assert.Equal(t, "Buy milk", tk.Text)
	assert.Equal(t, task.PriorityHigh, tk.Priority)
	assert.Equal(t, "shopping", tk.Category)
	require.NotNil(t, tk.DueDate)
	assert.Equal(t, "2030-01-02", tk.DueDate.String())

	tasks := storedTasks(t, dir)
	require.Len(t, tasks, 1)
	assert.Equal(t, tk.ID, tasks[0].ID)

	table := mustRun(t, dir, "list")
	assert.Contains(t, table, "Buy milk")
}

func TestAddFlagAliases(t *testing.T) {
	dir := initDir(t)
	tk := addTask(t, dir, "Call", "--prio", "low", "--cat", "phone")
	assert.Equal(t, task.PriorityLow, tk.Priority)
	assert.Equal(t, "phone", tk.Category)
}

func TestAddRejectsBadInput(t *testing.T) {
	dir := initDir(t)

	_, err := run(t, dir, "add", "   ")
	requireCode(t, err, clierr.EmptyText)

	_, err = run(t, dir, "add", "x", "-p", "urgent")
	requireCode(t, err, clierr.InvalidPriority)

	_, err = run(t, dir, "add", "x", "--due", "tomorrow")
	requireCode(t, err, clierr.InvalidDate)
}

func TestAddUsesSettingsDefaults(t *testing.T) {
	dir := initDir(t)
	mustRun(t, dir, "settings", "set", "defaultPriority", "low")
	mustRun(t, dir, "settings", "set", "defaultCategory", "errands")

	tk := addTask(t, dir, "Post office")
	assert.Equal(t, task.PriorityLow, tk.Priority)
	assert.Equal(t, "errands", tk.Category)

	out := mustRun(t, dir, "settings", "get", "defaultCategory")
	assert.Equal(t, "errands\n", out)
}

func TestSettingsRejectsUnknownKey(t *testing.T) {
	dir := initDir(t)
	_, err := run(t, dir, "settings", "set", "fontSize", "12")
	requireCode(t, err, clierr.InvalidSetting)

	_, err = run(t, dir, "settings", "set", "sortBy", "color")
	requireCode(t, err, clierr.InvalidSetting)
}

func TestListFiltersAndHidesCompleted(t *testing.T) {
	dir := initDir(t)
	a := addTask(t, dir, "alpha", "-c", "work")
	addTask(t, dir, "beta", "-c", "home")
	mustRun(t, dir, "done", a.ID)

	var tasks []task.Task
	out := mustRun(t, dir, "list", "--status", "completed", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &tasks))
	assert.Equal(t, []string{"alpha"}, texts(tasks))

	out = mustRun(t, dir, "list", "--category", "home", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &tasks))
	assert.Equal(t, []string{"beta"}, texts(tasks))

	mustRun(t, dir, "settings", "set", "showCompletedTasks", "false")
	out = mustRun(t, dir, "list", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &tasks))
	assert.Equal(t, []string{"beta"}, texts(tasks))

	_, err := run(t, dir, "list", "--status", "archived")
	requireCode(t, err, clierr.InvalidStatus)
}

func TestDoneTogglesAndBulkCompletes(t *testing.T) {
	dir := initDir(t)
	a := addTask(t, dir, "a")
	b := addTask(t, dir, "b")

	out := mustRun(t, dir, "done", "--json", a.ID)
	var toggled task.Task
	require.NoError(t, json.Unmarshal([]byte(out), &toggled))
	assert.True(t, toggled.Completed)
	assert.NotNil(t, toggled.CompletedAt)

	out = mustRun(t, dir, "done", "--json", a.ID+","+b.ID)
	var completed []task.Task
	require.NoError(t, json.Unmarshal([]byte(out), &completed))
	assert.Equal(t, []string{"b"}, texts(completed))

	for _, tk := range storedTasks(t, dir) {
		assert.True(t, tk.Completed, tk.Text)
	}
}

func TestResolveByShortID(t *testing.T) {
	dir := initDir(t)
	tk := addTask(t, dir, "find me")

	out := mustRun(t, dir, "show", "--json", task.ShortID(tk.ID))
	var got task.Task
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, tk.ID, got.ID)

	_, err := run(t, dir, "show", "zzzzzzzz")
	requireCode(t, err, clierr.TaskNotFound)
}

func TestEdit(t *testing.T) {
	dir := initDir(t)
	tk := addTask(t, dir, "draft", "--due", "2030-05-05")

	out := mustRun(t, dir, "edit", "--json", tk.ID, "--text", "final", "-p", "high", "--due", "none")
	var got task.Task
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "final", got.Text)
	assert.Equal(t, task.PriorityHigh, got.Priority)
	assert.Nil(t, got.DueDate)

	_, err := run(t, dir, "edit", tk.ID)
	requireCode(t, err, clierr.NoChanges)
}

func TestDeleteConfirmation(t *testing.T) {
	dir := initDir(t)
	a := addTask(t, dir, "a")
	b := addTask(t, dir, "b")
	c := addTask(t, dir, "c")

	// The test input is not a terminal, so prompting is refused.
	_, err := run(t, dir, "delete", a.ID)
	requireCode(t, err, clierr.ConfirmationReq)

	_, err = run(t, dir, "delete", a.ID+","+b.ID)
	requireCode(t, err, clierr.ConfirmationReq)

	mustRun(t, dir, "delete", "--yes", a.ID)
	assert.Equal(t, []string{"c", "b"}, texts(storedTasks(t, dir)))

	out, err := run(t, dir, "delete", "--yes", "--json", b.ID+",nope")
	var silent *clierr.SilentError
	require.ErrorAs(t, err, &silent)
	var results []output.BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.Equal(t, clierr.TaskNotFound, results[1].Code)

	assert.Equal(t, []string{c.Text}, texts(storedTasks(t, dir)))
}

func TestMoveUsesStoredPositions(t *testing.T) {
	dir := initDir(t)
	addTask(t, dir, "a")
	addTask(t, dir, "b")
	addTask(t, dir, "c")
	// New tasks go to the top.
	require.Equal(t, []string{"c", "b", "a"}, texts(storedTasks(t, dir)))

	mustRun(t, dir, "move", "1", "3")
	assert.Equal(t, []string{"b", "a", "c"}, texts(storedTasks(t, dir)))

	_, err := run(t, dir, "move", "1", "4")
	requireCode(t, err, clierr.InvalidIndex)
	_, err = run(t, dir, "move", "0", "1")
	requireCode(t, err, clierr.InvalidIndex)
}

func TestRecategorize(t *testing.T) {
	dir := initDir(t)
	a := addTask(t, dir, "a", "-c", "old")
	b := addTask(t, dir, "b", "-c", "old")

	mustRun(t, dir, "recategorize", a.ID+","+b.ID, "new")
	for _, tk := range storedTasks(t, dir) {
		assert.Equal(t, "new", tk.Category)
	}

	out := mustRun(t, dir, "categories", "--json")
	var cats []string
	require.NoError(t, json.Unmarshal([]byte(out), &cats))
	assert.Equal(t, []string{"new"}, cats)
}

func TestExportImport(t *testing.T) {
	src := initDir(t)
	addTask(t, src, "one")
	addTask(t, src, "two")
	mustRun(t, src, "settings", "set", "sortBy", "priority")

	file := filepath.Join(t.TempDir(), "backup.json")
	mustRun(t, src, "export", file)

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "2.0", doc["version"])

	dst := initDir(t, "--backend", "sqlite")
	mustRun(t, dst, "import", file)
	assert.Equal(t, []string{"two", "one"}, texts(storedTasks(t, dst)))
	assert.Equal(t, "priority\n", mustRun(t, dst, "settings", "get", "sortBy"))
}

func TestImportRejectsNonObject(t *testing.T) {
	dir := initDir(t)
	file := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(file, []byte(`[1,2,3]`), 0o600))

	_, err := run(t, dir, "import", file)
	requireCode(t, err, clierr.ImportFailed)
}

func TestClear(t *testing.T) {
	dir := initDir(t)
	addTask(t, dir, "gone soon")

	_, err := run(t, dir, "clear")
	requireCode(t, err, clierr.ConfirmationReq)

	mustRun(t, dir, "clear", "--yes")
	assert.Empty(t, storedTasks(t, dir))
}

func TestPurgeKeepsRecentCompletions(t *testing.T) {
	dir := initDir(t)
	tk := addTask(t, dir, "done today")
	mustRun(t, dir, "done", tk.ID)

	out := mustRun(t, dir, "purge", "--json", "--older-than", "30d")
	var res struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 0, res.Count)
	assert.Len(t, storedTasks(t, dir), 1)

	_, err := run(t, dir, "purge", "--older-than", "soon")
	requireCode(t, err, clierr.InvalidInput)
}

func TestLogShowsActivity(t *testing.T) {
	dir := initDir(t)
	tk := addTask(t, dir, "logged")
	mustRun(t, dir, "done", tk.ID)

	out := mustRun(t, dir, "log", "--json")
	var entries []struct {
		Action string `json:"action"`
		TaskID string `json:"taskId"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "create", entries[0].Action)
	assert.Equal(t, "complete", entries[1].Action)
	assert.Equal(t, tk.ID, entries[1].TaskID)

	mustRun(t, dir, "config", "set", "activity_log", "false")
	_, err := run(t, dir, "log")
	requireCode(t, err, clierr.InvalidSetting)
}

func TestInfo(t *testing.T) {
	dir := initDir(t)
	addTask(t, dir, "sized")

	out := mustRun(t, dir, "info", "--json")
	var got struct {
		Backend  string `json:"backend"`
		Writable bool   `json:"writable"`
		Storage  struct {
			TasksSize int64 `json:"tasksSize"`
			TotalSize int64 `json:"totalSize"`
		} `json:"storage"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "file", got.Backend)
	assert.True(t, got.Writable)
	assert.Positive(t, got.Storage.TasksSize)
	assert.GreaterOrEqual(t, got.Storage.TotalSize, got.Storage.TasksSize)
}

func TestReportErrorJSON(t *testing.T) {
	flagJSON = true
	defer func() { flagJSON = false }()

	var stdout, stderr bytes.Buffer
	code := reportError(&stdout, &stderr, clierr.New(clierr.TaskNotFound, "task \"x\" not found"))
	assert.Equal(t, 1, code)
	assert.Empty(t, stderr.String())

	var resp output.ErrorResponse
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.Equal(t, clierr.TaskNotFound, resp.Code)

	stdout.Reset()
	code = reportError(&stdout, &stderr, errors.New("boom"))
	assert.Equal(t, 2, code)
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.Equal(t, clierr.InternalError, resp.Code)
}

func TestReportErrorText(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 3, reportError(&stdout, &stderr, &clierr.SilentError{Code: 3}))
	assert.Empty(t, stderr.String())

	assert.Equal(t, 1, reportError(&stdout, &stderr, clierr.New(clierr.EmptyText, "task text cannot be empty")))
	assert.Equal(t, "Error: task text cannot be empty\n", stderr.String())
	assert.Empty(t, stdout.String())
}

func TestParseAge(t *testing.T) {
	d, err := parseAge("14d")
	require.NoError(t, err)
	assert.Equal(t, 14*24*time.Hour, d)

	d, err = parseAge("36h")
	require.NoError(t, err)
	assert.Equal(t, 36*time.Hour, d)

	_, err = parseAge("-2h")
	assert.Error(t, err)
	_, err = parseAge("d")
	assert.Error(t, err)
}

func TestWriteEvent(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local)
	tk := task.Task{ID: "0190f3a2-aaaa-bbbb-cccc-1234deadbeef", Text: "water plants", Completed: true}

	var buf bytes.Buffer
	require.NoError(t, writeEvent(&buf, engine.Event{Kind: engine.CompletionChanged, Task: tk}, now))
	assert.Equal(t, "09:30:00 completed deadbeef water plants\n", buf.String())

	buf.Reset()
	require.NoError(t, writeEvent(&buf, engine.Event{Kind: engine.Reordered, Tasks: []task.Task{tk, tk}}, now))
	assert.Equal(t, "09:30:00 reordered 2 tasks\n", buf.String())
}
