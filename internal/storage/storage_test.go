package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/todu/internal/config"
	"github.com/twiced-technology-gmbh/todu/internal/date"
	"github.com/twiced-technology-gmbh/todu/internal/kv"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

var clock = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, backend kv.Backend) *Store {
	t.Helper()
	n := 0
	return New(backend,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return clock }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
}

func mustLoad(t *testing.T, s *Store) []task.Task {
	t.Helper()
	tasks, err := s.LoadTasks()
	require.NoError(t, err)
	return tasks
}

func sampleTasks(t *testing.T) []task.Task {
	t.Helper()
	due := date.New(2024, 6, 1)
	a, err := task.New("write report", &due, task.PriorityHigh, "Work", clock)
	require.NoError(t, err)
	a.ID = "a"
	b, err := task.New("buy milk", nil, "", "", clock.Add(time.Minute))
	require.NoError(t, err)
	b.ID = "b"
	b.Toggle(clock.Add(2 * time.Minute))
	return []task.Task{a, b}
}

// ==== tasks ====

func TestLoadTasksEmpty(t *testing.T) {
	backend := kv.NewMemory(0)
	s := newTestStore(t, backend)

	tasks := mustLoad(t, s)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)

	_, ok, err := backend.Get(KeyTasks)
	require.NoError(t, err)
	assert.False(t, ok, "loading nothing must not write")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t, kv.NewMemory(0))
	want := sampleTasks(t)

	require.True(t, s.SaveTasks(want))
	assert.Equal(t, want, mustLoad(t, s))
}

func TestSaveWritesEnvelope(t *testing.T) {
	backend := kv.NewMemory(0)
	s := newTestStore(t, backend)
	require.True(t, s.SaveTasks(sampleTasks(t)))

	raw, ok, err := backend.Get(KeyTasks)
	require.NoError(t, err)
	require.True(t, ok)

	format, err := Sniff(raw)
	require.NoError(t, err)
	assert.Equal(t, FormatEnvelope, format)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.JSONEq(t, `"2.0"`, string(env["version"]))
	assert.JSONEq(t, `"2024-05-10T09:00:00Z"`, string(env["lastModified"]))
}

func TestLoadLegacyArray(t *testing.T) {
	backend := kv.NewMemory(0)
	require.NoError(t, backend.Set(KeyTasks, []byte(`[{"text":"a"}]`)))
	s := newTestStore(t, backend)

	tasks := mustLoad(t, s)
	require.Len(t, tasks, 1)
	got := tasks[0]
	assert.Equal(t, "id-1", got.ID)
	assert.Equal(t, "a", got.Text)
	assert.Equal(t, clock, got.CreatedAt)
	assert.Equal(t, clock, got.UpdatedAt)
	assert.Equal(t, "General", got.Category)
	assert.Equal(t, task.PriorityMedium, got.Priority)
	assert.False(t, got.Completed)

	raw, _, err := backend.Get(KeyTasks)
	require.NoError(t, err)
	format, err := Sniff(raw)
	require.NoError(t, err)
	assert.Equal(t, FormatEnvelope, format, "upgraded form must be persisted")

	// A second load reads the persisted ids instead of minting new ones.
	again := mustLoad(t, newTestStore(t, backend))
	require.Len(t, again, 1)
	assert.Equal(t, "id-1", again[0].ID)
}

func TestLoadLegacyKeepsKnownFields(t *testing.T) {
	backend := kv.NewMemory(0)
	legacy := `[
		{"id": 17, "text": " call mom ", "completed": true, "dueDate": "2024-01-01", "priority": "high", "category": "Personal"},
		{"text": "   "},
		{"text": 42}
	]`
	require.NoError(t, backend.Set(KeyTasks, []byte(legacy)))

	tasks := mustLoad(t, newTestStore(t, backend))
	require.Len(t, tasks, 1)
	got := tasks[0]
	assert.Equal(t, "17", got.ID)
	assert.Equal(t, "call mom", got.Text)
	assert.True(t, got.Completed)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2024-01-01", got.DueDate.String())
	assert.Equal(t, task.PriorityHigh, got.Priority)
	assert.Equal(t, "Personal", got.Category)
	require.NotNil(t, got.CompletedAt, "completed records get a completion time")
}

func TestLoadLegacyCompletedWithoutTimestamp(t *testing.T) {
	backend := kv.NewMemory(0)
	require.NoError(t, backend.Set(KeyTasks, []byte(`[{"text":"a","completed":true,"updatedAt":"2024-03-01T10:00:00Z"},{"text":"b","completed":true}]`)))

	tasks := mustLoad(t, newTestStore(t, backend))
	require.Len(t, tasks, 2)
	require.NotNil(t, tasks[0].CompletedAt)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), *tasks[0].CompletedAt)
	require.NotNil(t, tasks[1].CompletedAt)
	assert.Equal(t, clock, *tasks[1].CompletedAt)

	// The repair is persisted, so a reload sees the same timestamps.
	again := mustLoad(t, newTestStore(t, backend))
	require.NotNil(t, again[1].CompletedAt)
	assert.Equal(t, clock, *again[1].CompletedAt)
}

type failingBackend struct {
	kv.Backend
}

func (failingBackend) Get(string) ([]byte, bool, error) {
	return nil, false, errors.New("disk unavailable")
}

func TestLoadTasksReadFailure(t *testing.T) {
	backend := kv.NewMemory(0)
	s := newTestStore(t, backend)
	require.True(t, s.SaveTasks(sampleTasks(t)))

	broken := newTestStore(t, failingBackend{backend})
	tasks, err := broken.LoadTasks()
	require.ErrorIs(t, err, ErrUnreadable)
	assert.Nil(t, tasks)

	_, err = broken.Export()
	require.ErrorIs(t, err, ErrUnreadable)

	// Other keys still fall back to their defaults.
	assert.Equal(t, config.DefaultSettings(), broken.LoadSettings())
	assert.Equal(t, DefaultCategories, broken.LoadCategories())
	assert.Nil(t, broken.LoadDarkMode())

	assert.Len(t, mustLoad(t, s), 2, "a failed read must not touch stored tasks")
}

func TestLoadEnvelopeRepairsMissingIDs(t *testing.T) {
	backend := kv.NewMemory(0)
	raw := `{"tasks":[{"text":"x","createdAt":"2024-01-02T03:04:05Z"},{"id":"dup","text":"y"},{"id":"dup","text":"z"}],"version":"2.0"}`
	require.NoError(t, backend.Set(KeyTasks, []byte(raw)))

	tasks := mustLoad(t, newTestStore(t, backend))
	require.Len(t, tasks, 3)
	assert.Equal(t, "id-1", tasks[0].ID)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), tasks[0].CreatedAt)
	assert.Equal(t, "dup", tasks[1].ID)
	assert.NotEqual(t, "dup", tasks[2].ID)
}

func TestLoadMalformedTasks(t *testing.T) {
	for name, raw := range map[string]string{
		"garbage":        "not json at all",
		"broken object":  `{"tasks": [`,
		"tasks not list": `{"tasks": "nope"}`,
		"scalar":         `42`,
	} {
		t.Run(name, func(t *testing.T) {
			backend := kv.NewMemory(0)
			require.NoError(t, backend.Set(KeyTasks, []byte(raw)))
			tasks := mustLoad(t, newTestStore(t, backend))
			assert.NotNil(t, tasks)
			assert.Empty(t, tasks)
		})
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatEmpty},
		{"  null ", FormatEmpty},
		{`{"tasks":[]}`, FormatEnvelope},
		{"\n[]", FormatLegacy},
	}
	for _, tt := range tests {
		got, err := Sniff([]byte(tt.in))
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := Sniff([]byte(`"str"`))
	assert.Error(t, err)
}

func TestSaveTasksQuotaExceeded(t *testing.T) {
	s := newTestStore(t, kv.NewMemory(16))
	assert.False(t, s.SaveTasks(sampleTasks(t)))
}

// ==== settings, categories, dark mode ====

func TestSettingsDefaultsAndMerge(t *testing.T) {
	backend := kv.NewMemory(0)
	s := newTestStore(t, backend)
	assert.Equal(t, config.DefaultSettings(), s.LoadSettings())

	require.NoError(t, backend.Set(KeySettings, []byte(`{"theme":"dark","sortBy":"bogus"}`)))
	got := s.LoadSettings()
	assert.Equal(t, "dark", got.Theme)
	assert.Equal(t, "createdAt", got.SortBy, "invalid value falls back to default")
	assert.True(t, got.ShowCompletedTasks)
	assert.Equal(t, 30, got.AutoDeleteCompletedDays)

	require.NoError(t, backend.Set(KeySettings, []byte(`{{{`)))
	assert.Equal(t, config.DefaultSettings(), s.LoadSettings())
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t, kv.NewMemory(0))
	want := config.DefaultSettings()
	want.CompactView = true
	want.DefaultCategory = "Work"

	require.True(t, s.SaveSettings(want))
	assert.Equal(t, want, s.LoadSettings())
}

func TestCategories(t *testing.T) {
	backend := kv.NewMemory(0)
	s := newTestStore(t, backend)
	assert.Equal(t, []string{"General", "Work", "Personal"}, s.LoadCategories())

	require.True(t, s.SaveCategories([]string{"Home", "", "Home", " Errands "}))
	assert.Equal(t, []string{"Home", "Errands"}, s.LoadCategories())

	require.NoError(t, backend.Set(KeyCategories, []byte(`[1,2]`)))
	assert.Equal(t, DefaultCategories, s.LoadCategories())
}

func TestDarkMode(t *testing.T) {
	backend := kv.NewMemory(0)
	s := newTestStore(t, backend)
	assert.Nil(t, s.LoadDarkMode())

	on := true
	require.True(t, s.SaveDarkMode(&on))
	require.NotNil(t, s.LoadDarkMode())
	assert.True(t, *s.LoadDarkMode())

	require.True(t, s.SaveDarkMode(nil))
	assert.Nil(t, s.LoadDarkMode())
	_, ok, err := backend.Get(KeyDarkMode)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, backend.Set(KeyDarkMode, []byte("maybe")))
	assert.Nil(t, s.LoadDarkMode())
}

// ==== info ====

func TestInfoWithQuota(t *testing.T) {
	const quota = 64 * 1024
	backend := kv.NewMemory(quota)
	s := newTestStore(t, backend)
	require.True(t, s.SaveTasks(sampleTasks(t)))
	require.True(t, s.SaveCategories([]string{"Work"}))

	info, err := s.Info()
	require.NoError(t, err)
	assert.Positive(t, info.TasksSize)
	assert.Positive(t, info.CategoriesSize)
	assert.Zero(t, info.SettingsSize)
	assert.Equal(t, info.TasksSize+info.CategoriesSize, info.TotalSize)
	assert.Equal(t, ((quota-info.TotalSize)/1024)*1024, info.AvailableSize)
	assert.InDelta(t,
		float64(info.TotalSize)/float64(info.TotalSize+info.AvailableSize)*100,
		info.UsagePercentage, 0.0001)

	_, ok, err := backend.Get(probeKey)
	require.NoError(t, err)
	assert.False(t, ok, "probe key must be removed")
}

func TestInfoUnlimited(t *testing.T) {
	s := newTestStore(t, kv.NewMemory(0))
	info, err := s.Info()
	require.NoError(t, err)
	assert.Zero(t, info.TotalSize)
	assert.Zero(t, info.UsagePercentage)
	assert.Equal(t, int64(5*1024*1024), info.AvailableSize)
}

// ==== export / import ====

func TestExportImport(t *testing.T) {
	src := newTestStore(t, kv.NewMemory(0))
	require.True(t, src.SaveTasks(sampleTasks(t)))
	require.True(t, src.SaveCategories([]string{"Work", "Home"}))
	dark := false
	require.True(t, src.SaveDarkMode(&dark))

	doc, err := src.Export()
	require.NoError(t, err)
	assert.Equal(t, "2.0", doc.Version)
	assert.Equal(t, clock, doc.ExportDate)
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	dst := newTestStore(t, kv.NewMemory(0))
	res, err := dst.Import(data)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tasks", "settings", "categories", "darkMode"}, res.Applied)
	assert.Empty(t, res.Skipped)

	assert.Equal(t, mustLoad(t, src), mustLoad(t, dst))
	assert.Equal(t, []string{"Work", "Home"}, dst.LoadCategories())
	require.NotNil(t, dst.LoadDarkMode())
	assert.False(t, *dst.LoadDarkMode())
}

func TestImportPartial(t *testing.T) {
	backend := kv.NewMemory(0)
	s := newTestStore(t, backend)
	require.True(t, s.SaveTasks(sampleTasks(t)))

	res, err := s.Import([]byte(`{"tasks":"oops","settings":5,"categories":["A","A",""],"darkMode":true,"extra":1}`))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"categories", "darkMode"}, res.Applied)
	assert.ElementsMatch(t, []string{"tasks", "settings"}, res.Skipped)

	assert.Len(t, mustLoad(t, s), 2, "malformed tasks field must leave tasks untouched")
	assert.Equal(t, []string{"A"}, s.LoadCategories())
	require.NotNil(t, s.LoadDarkMode())
	assert.True(t, *s.LoadDarkMode())
}

func TestImportRejectsNonObject(t *testing.T) {
	s := newTestStore(t, kv.NewMemory(0))
	for _, in := range []string{"", "[]", "null", `"x"`, "{bad"} {
		_, err := s.Import([]byte(in))
		assert.ErrorIs(t, err, ErrInvalidDocument, in)
	}
}

func TestImportReportsFailedSave(t *testing.T) {
	s := newTestStore(t, kv.NewMemory(8))
	res, err := s.Import([]byte(`{"categories":["a-very-long-category-name"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"categories"}, res.Failed)
}

// ==== misc ====

func TestClearAll(t *testing.T) {
	backend := kv.NewMemory(0)
	s := newTestStore(t, backend)
	require.True(t, s.SaveTasks(sampleTasks(t)))
	require.True(t, s.SaveSettings(config.DefaultSettings()))
	require.NoError(t, backend.Set("unrelated", []byte("keep")))

	require.True(t, s.ClearAll())
	keys, err := backend.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"unrelated"}, keys)
}

func TestAvailable(t *testing.T) {
	assert.True(t, newTestStore(t, kv.NewMemory(0)).Available())

	closed := kv.NewMemory(0)
	require.NoError(t, closed.Close())
	assert.False(t, newTestStore(t, closed).Available())
}

func TestGenerateIDUnique(t *testing.T) {
	s := New(kv.NewMemory(0))
	seen := make(map[string]bool)
	for range 1000 {
		id := s.GenerateID()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestSubscribeExternal(t *testing.T) {
	hub := kv.NewHub(0)
	writerBackend := hub.Open()
	writer := newTestStore(t, writerBackend)
	reader := newTestStore(t, hub.Open())

	type call struct {
		key      string
		old, new []byte
	}
	var calls []call
	stop, err := reader.SubscribeExternal(func(key string, oldValue, newValue []byte) {
		calls = append(calls, call{key, oldValue, newValue})
	})
	require.NoError(t, err)
	defer stop()

	require.True(t, writer.SaveTasks(sampleTasks(t)))
	require.NoError(t, writerBackend.Set("unrelated", []byte("x")))
	require.True(t, reader.SaveCategories([]string{"mine"}))

	require.Len(t, calls, 1)
	assert.Equal(t, KeyTasks, calls[0].key)
	assert.Nil(t, calls[0].old)
	assert.NotEmpty(t, calls[0].new)
}
