package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/twiced-technology-gmbh/todu/internal/date"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

// All matches every value of a criteria field.
const All = "all"

// Status filters by completion.
type Status string

// Status values.
const (
	StatusAll       Status = All
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
)

// DueBucket filters by due date relative to today.
type DueBucket string

// DueBucket values.
const (
	DueAll      DueBucket = All
	DueOverdue  DueBucket = "overdue"
	DueToday    DueBucket = "today"
	DueUpcoming DueBucket = "upcoming"
	DueNone     DueBucket = "none"
)

// SortKey selects the field results are ordered by.
type SortKey string

// SortKey values.
const (
	SortCreatedAt    SortKey = "createdAt"
	SortDueDate      SortKey = "dueDate"
	SortPriority     SortKey = "priority"
	SortAlphabetical SortKey = "alphabetical"
	SortCategory     SortKey = "category"
)

// Direction is the sort direction.
type Direction string

// Direction values.
const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Criteria selects and orders tasks. The zero value matches everything,
// newest first.
type Criteria struct {
	Status    Status
	Priority  task.Priority // empty or "all" matches any
	Category  string        // empty or "all" matches any
	Due       DueBucket
	Search    string // case-insensitive substring of text or category
	SortKey   SortKey
	Direction Direction
}

// ParseStatus validates a status filter value. Empty means all.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case "", StatusAll:
		return StatusAll, nil
	case StatusCompleted, StatusPending:
		return st, nil
	default:
		return "", fmt.Errorf("invalid status %q (valid: all, completed, pending)", s)
	}
}

// ParseDueBucket validates a due filter value. Empty means all; "no-date"
// is accepted as an alias of "none".
func ParseDueBucket(s string) (DueBucket, error) {
	switch b := DueBucket(strings.ToLower(strings.TrimSpace(s))); b {
	case "", DueAll:
		return DueAll, nil
	case "no-date":
		return DueNone, nil
	case DueOverdue, DueToday, DueUpcoming, DueNone:
		return b, nil
	default:
		return "", fmt.Errorf("invalid due filter %q (valid: all, overdue, today, upcoming, none)", s)
	}
}

// ParseSortKey validates a sort key. Empty means createdAt.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.TrimSpace(s)); k {
	case "":
		return SortCreatedAt, nil
	case SortCreatedAt, SortDueDate, SortPriority, SortAlphabetical, SortCategory:
		return k, nil
	default:
		return "", fmt.Errorf("invalid sort key %q (valid: createdAt, dueDate, priority, alphabetical, category)", s)
	}
}

// ParseDirection validates a sort direction. Empty means descending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc", "descending":
		return Descending, nil
	case "asc", "ascending":
		return Ascending, nil
	default:
		return "", fmt.Errorf("invalid sort direction %q (valid: asc, desc)", s)
	}
}

// Filter returns the tasks matching all criteria (AND logic), in their
// original order. The input is not modified.
func Filter(tasks []task.Task, c Criteria, today date.Date) []task.Task {
	result := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if matches(t, c, today) {
			result = append(result, t.Clone())
		}
	}
	return result
}

func matches(t task.Task, c Criteria, today date.Date) bool {
	switch c.Status {
	case StatusCompleted:
		if !t.Completed {
			return false
		}
	case StatusPending:
		if t.Completed {
			return false
		}
	}
	if c.Priority != "" && c.Priority != All && t.Priority != c.Priority {
		return false
	}
	if c.Category != "" && c.Category != All && t.Category != c.Category {
		return false
	}
	if !matchesDue(t, c.Due, today) {
		return false
	}
	return matchesSearch(t, c.Search)
}

func matchesDue(t task.Task, bucket DueBucket, today date.Date) bool {
	switch bucket {
	case DueOverdue:
		return t.DueDate != nil && t.DueDate.Before(today) && !t.Completed
	case DueToday:
		return t.DueDate != nil && t.DueDate.Equal(today)
	case DueUpcoming:
		return t.DueDate != nil && t.DueDate.After(today)
	case DueNone:
		return t.DueDate == nil
	default:
		return true
	}
}

// matchesSearch performs case-insensitive substring matching on text and category.
// A whitespace-only query matches everything; otherwise the query is used as
// typed, surrounding spaces included.
func matchesSearch(t task.Task, query string) bool {
	if strings.TrimSpace(query) == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(t.Text), q) ||
		strings.Contains(strings.ToLower(t.Category), q)
}

// Sort orders tasks in place. The sort is stable; tasks without a due date
// always follow dated ones when sorting by due date. compareText orders
// text and categories.
func Sort(tasks []task.Task, key SortKey, dir Direction, compareText func(a, b string) int) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return less(tasks[i], tasks[j], key, dir, compareText)
	})
}

func less(a, b task.Task, key SortKey, dir Direction, compareText func(a, b string) int) bool {
	if key == SortDueDate {
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return false
		case a.DueDate == nil:
			return false // nil sorts last
		case b.DueDate == nil:
			return true
		}
	}
	c := compareTasks(a, b, key, compareText)
	if dir == Ascending {
		return c < 0
	}
	return c > 0
}

func compareTasks(a, b task.Task, key SortKey, compareText func(a, b string) int) int {
	switch key {
	case SortDueDate:
		return a.DueDate.Compare(*b.DueDate)
	case SortPriority:
		return a.Priority.Rank() - b.Priority.Rank()
	case SortAlphabetical:
		return compareText(a.Text, b.Text)
	case SortCategory:
		return compareText(a.Category, b.Category)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}
