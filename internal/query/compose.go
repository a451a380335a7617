// Package query turns a stored task filter into an explicit predicate
// over the task collection. Composition is a logical AND of
// independently optional clauses; an empty filter composes to the
// identity predicate.
package query

import (
	"strings"

	"github.com/aididalam/tasktrack/internal/models"
)

// Predicate decides whether a task belongs to a filtered result set.
type Predicate func(task *models.Task) bool

// Compose builds the predicate for the given filter. It is pure:
// the same filter always yields a predicate with the same behavior,
// and clause order has no observable effect.
func Compose(f models.TaskFilter) Predicate {
	clauses := make([]Predicate, 0, 4)

	if f.SearchText != "" {
		clauses = append(clauses, searchClause(f.SearchText))
	}
	if f.StartDate != nil {
		clauses = append(clauses, startDateClause(*f.StartDate))
	}
	if f.EndDate != nil {
		clauses = append(clauses, endDateClause(*f.EndDate))
	}
	if statuses := SplitStatuses(f.Statuses); len(statuses) > 0 {
		clauses = append(clauses, statusClause(statuses))
	}

	return func(task *models.Task) bool {
		for _, clause := range clauses {
			if !clause(task) {
				return false
			}
		}
		return true
	}
}

// Apply filters tasks with the composed predicate, preserving order.
func Apply(tasks []*models.Task, f models.TaskFilter) []*models.Task {
	matches := Compose(f)

	filtered := make([]*models.Task, 0, len(tasks))
	for _, task := range tasks {
		if matches(task) {
			filtered = append(filtered, task)
		}
	}
	return filtered
}

// SplitStatuses splits a comma-separated status list,
// discarding empty entries.
func SplitStatuses(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	statuses := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			statuses = append(statuses, part)
		}
	}
	return statuses
}

// searchClause matches the search text as a case-insensitive substring
// of the task name, its status label, or its due date rendered as text.
func searchClause(search string) Predicate {
	search = strings.ToLower(search)
	return func(task *models.Task) bool {
		if strings.Contains(strings.ToLower(task.Name), search) {
			return true
		}
		if strings.Contains(strings.ToLower(task.Status), search) {
			return true
		}
		return task.DueDate != nil &&
			strings.Contains(task.DueDate.String(), search)
	}
}

// A task without a due date never matches a date-range clause.

func startDateClause(start models.Date) Predicate {
	return func(task *models.Task) bool {
		return task.DueDate != nil && !task.DueDate.Before(start.Time)
	}
}

func endDateClause(end models.Date) Predicate {
	return func(task *models.Task) bool {
		return task.DueDate != nil && !task.DueDate.After(end.Time)
	}
}

func statusClause(statuses []string) Predicate {
	return func(task *models.Task) bool {
		for _, status := range statuses {
			if task.Status == status {
				return true
			}
		}
		return false
	}
}
