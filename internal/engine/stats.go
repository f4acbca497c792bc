package engine

import (
	"math"
	"sort"
	"time"

	"github.com/twiced-technology-gmbh/todu/internal/date"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

const (
	weekDays  = 7
	monthDays = 30
)

// PriorityCounts holds a count per priority.
type PriorityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// CategoryCount holds the number of tasks in one category.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Window summarizes tasks created within a trailing period.
type Window struct {
	Completed int `json:"completed"`
	Created   int `json:"created"`
}

// Productivity holds the trailing 7 and 30 day windows.
type Productivity struct {
	ThisWeek  Window `json:"thisWeek"`
	ThisMonth Window `json:"thisMonth"`
}

// Stats is a read-only aggregate over the whole collection.
type Stats struct {
	Total          int             `json:"total"`
	Completed      int             `json:"completed"`
	Pending        int             `json:"pending"`
	CompletionRate int             `json:"completionRate"` // whole percent
	ByPriority     PriorityCounts  `json:"byPriority"`
	CompletedToday int             `json:"completedToday"`
	DueToday       int             `json:"dueToday"`
	Overdue        int             `json:"overdue"`
	Categories     []CategoryCount `json:"categories"` // most used first
	Productivity   Productivity    `json:"productivity"`
}

// Summarize computes Stats for tasks as of now. Day comparisons use the
// local calendar day.
func Summarize(tasks []task.Task, now time.Time) Stats {
	today := date.Today(now)
	weekStart := now.AddDate(0, 0, -weekDays)
	monthStart := now.AddDate(0, 0, -monthDays)

	s := Stats{Total: len(tasks), Categories: []CategoryCount{}}
	catIndex := make(map[string]int)

	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		}

		switch t.Priority {
		case task.PriorityHigh:
			s.ByPriority.High++
		case task.PriorityMedium:
			s.ByPriority.Medium++
		case task.PriorityLow:
			s.ByPriority.Low++
		}

		if t.Completed && t.CompletedAt != nil && date.SameDay(*t.CompletedAt, now) {
			s.CompletedToday++
		}
		if !t.Completed && t.DueDate != nil {
			switch {
			case t.DueDate.Equal(today):
				s.DueToday++
			case t.DueDate.Before(today):
				s.Overdue++
			}
		}

		if i, ok := catIndex[t.Category]; ok {
			s.Categories[i].Count++
		} else {
			catIndex[t.Category] = len(s.Categories)
			s.Categories = append(s.Categories, CategoryCount{Name: t.Category, Count: 1})
		}

		if !t.CreatedAt.Before(weekStart) {
			s.Productivity.ThisWeek.add(t)
		}
		if !t.CreatedAt.Before(monthStart) {
			s.Productivity.ThisMonth.add(t)
		}
	}

	s.Pending = s.Total - s.Completed
	if s.Total > 0 {
		s.CompletionRate = int(math.Round(float64(s.Completed) / float64(s.Total) * 100)) //nolint:mnd // percent
	}
	sort.SliceStable(s.Categories, func(i, j int) bool {
		return s.Categories[i].Count > s.Categories[j].Count
	})
	return s
}

func (w *Window) add(t task.Task) {
	w.Created++
	if t.Completed {
		w.Completed++
	}
}
