package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/todu/internal/date"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

// EnvelopeVersion is written with every saved collection.
const EnvelopeVersion = "2.0"

// Format is the detected encoding of a stored task collection.
type Format int

// Stored collection encodings.
const (
	FormatEmpty    Format = iota // nothing stored
	FormatEnvelope               // {tasks, lastModified, version}
	FormatLegacy                 // bare array of partial records
)

func (f Format) String() string {
	switch f {
	case FormatEnvelope:
		return "envelope"
	case FormatLegacy:
		return "legacy"
	default:
		return "empty"
	}
}

var errUnknownFormat = errors.New("stored tasks are neither an envelope nor an array")

// Sniff detects the encoding of raw by its first significant byte.
func Sniff(raw []byte) (Format, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return FormatEmpty, nil
	}
	switch trimmed[0] {
	case '{':
		return FormatEnvelope, nil
	case '[':
		return FormatLegacy, nil
	default:
		return FormatEmpty, errUnknownFormat
	}
}

type envelope struct {
	Tasks        []task.Task `json:"tasks"`
	LastModified time.Time   `json:"lastModified"`
	Version      string      `json:"version"`
}

type rawEnvelope struct {
	Tasks   []json.RawMessage `json:"tasks"`
	Version string            `json:"version"`
}

// LoadTasks returns the stored collection. Legacy arrays and records missing
// ids or timestamps are repaired and written back before returning. Any
// malformed data yields an empty collection; only a backend read failure
// returns an error, wrapping ErrUnreadable.
func (s *Store) LoadTasks() ([]task.Task, error) {
	raw, ok, err := s.read(KeyTasks)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []task.Task{}, nil
	}

	format, err := Sniff(raw)
	if err != nil {
		s.log.Warn("failed to load tasks", "key", KeyTasks, "value", describe(raw), "error", err)
		return []task.Task{}, nil
	}

	var records []json.RawMessage
	switch format {
	case FormatEmpty:
		return []task.Task{}, nil
	case FormatLegacy:
		if err := json.Unmarshal(raw, &records); err != nil {
			s.log.Warn("failed to load tasks", "key", KeyTasks, "format", format, "error", err)
			return []task.Task{}, nil
		}
	case FormatEnvelope:
		var env rawEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.log.Warn("failed to load tasks", "key", KeyTasks, "format", format, "error", err)
			return []task.Task{}, nil
		}
		records = env.Tasks
	}

	tasks, repaired := s.decodeRecords(records)
	if format == FormatLegacy || repaired {
		s.log.Info("upgraded stored tasks", "format", format, "count", len(tasks))
		s.SaveTasks(tasks)
	}
	return tasks, nil
}

// SaveTasks writes tasks inside a versioned envelope.
func (s *Store) SaveTasks(tasks []task.Task) bool {
	if tasks == nil {
		tasks = []task.Task{}
	}
	data, err := json.Marshal(envelope{
		Tasks:        tasks,
		LastModified: s.now().UTC(),
		Version:      EnvelopeVersion,
	})
	if err != nil {
		s.log.Warn("failed to save tasks", "error", err)
		return false
	}
	return s.write(KeyTasks, data)
}

// DecodeTasks decodes an array of possibly partial task records, repairing
// what it can and dropping what it cannot.
func (s *Store) DecodeTasks(raw json.RawMessage) ([]task.Task, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	tasks, _ := s.decodeRecords(records)
	return tasks, nil
}

func (s *Store) decodeRecords(records []json.RawMessage) ([]task.Task, bool) {
	now := s.now().UTC()
	tasks := make([]task.Task, 0, len(records))
	seen := make(map[string]bool, len(records))
	repaired := false
	for i, rec := range records {
		t, changed, err := s.decodeRecord(rec, now)
		if err != nil {
			s.log.Warn("dropping malformed task record", "index", i, "error", err)
			repaired = true
			continue
		}
		if seen[t.ID] {
			t.ID = s.newID()
			changed = true
		}
		seen[t.ID] = true
		repaired = repaired || changed
		tasks = append(tasks, t)
	}
	return tasks, repaired
}

// looseTask accepts the shapes older versions wrote: numeric ids, missing
// timestamps, free-form dates.
type looseTask struct {
	ID          json.RawMessage `json:"id"`
	Text        string          `json:"text"`
	Completed   bool            `json:"completed"`
	DueDate     *string         `json:"dueDate"`
	Priority    string          `json:"priority"`
	Category    string          `json:"category"`
	CreatedAt   *string         `json:"createdAt"`
	UpdatedAt   *string         `json:"updatedAt"`
	CompletedAt *string         `json:"completedAt"`
}

func (s *Store) decodeRecord(raw json.RawMessage, now time.Time) (task.Task, bool, error) {
	var lt looseTask
	if err := json.Unmarshal(raw, &lt); err != nil {
		return task.Task{}, false, err
	}
	text := strings.TrimSpace(lt.Text)
	if text == "" {
		return task.Task{}, false, task.ErrEmptyText
	}

	changed := text != lt.Text
	t := task.Task{Text: text, Completed: lt.Completed}

	t.ID = looseID(lt.ID)
	if t.ID == "" {
		t.ID = s.newID()
		changed = true
	}

	if lt.DueDate != nil && *lt.DueDate != "" {
		d, err := date.Parse(*lt.DueDate)
		if err != nil {
			changed = true
		} else {
			t.DueDate = &d
		}
	}

	p, err := task.ParsePriority(lt.Priority)
	if err != nil {
		p = task.DefaultPriority
	}
	t.Priority = p
	changed = changed || string(p) != lt.Priority

	t.Category = strings.TrimSpace(lt.Category)
	if t.Category == "" {
		t.Category = task.DefaultCategory
	}
	changed = changed || t.Category != lt.Category

	created, ok := looseTime(lt.CreatedAt)
	if !ok {
		created = now
		changed = true
	}
	t.CreatedAt = created

	updated, ok := looseTime(lt.UpdatedAt)
	if !ok {
		updated = created
		changed = true
	}
	t.UpdatedAt = updated

	at, ok := looseTime(lt.CompletedAt)
	switch {
	case t.Completed && ok:
		t.CompletedAt = &at
	case t.Completed:
		// Completed without a usable timestamp: the last update is the
		// closest known completion time.
		t.CompletedAt = &updated
		changed = true
	case lt.CompletedAt != nil:
		changed = true
	}
	return t, changed, nil
}

func looseID(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err == nil {
		return n.String()
	}
	return ""
}

func looseTime(s *string) (time.Time, bool) {
	if s == nil || *s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// describe is used in log lines for values that failed to decode.
func describe(raw []byte) string {
	const maxLen = 64
	if len(raw) > maxLen {
		return fmt.Sprintf("%s... (%d bytes)", raw[:maxLen], len(raw))
	}
	return string(raw)
}
