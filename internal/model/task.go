package model

import (
	"fmt"
	"strings"
	"time"
)

// CreatedLayout is the text layout of Task.CreatedAt.
const CreatedLayout = "2006-01-02 15:04:05"

// DeadlineLayout is the text layout of Task.Deadline.
const DeadlineLayout = "2006-01-02"

// Priority is a free-text label. The store never validates it; the
// input boundaries offer the three known labels.
type Priority string

const (
	Low    Priority = "Low"
	Medium Priority = "Medium"
	High   Priority = "High"
)

// Priorities lists the known labels in ascending order.
var Priorities = []Priority{Low, Medium, High}

// ParsePriority maps a case-insensitive label to its canonical form.
func ParsePriority(s string) (Priority, error) {
	for _, p := range Priorities {
		if strings.EqualFold(strings.TrimSpace(s), string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q (want low, medium or high)", s)
}

// Next cycles Low -> Medium -> High -> Low. Unknown labels become Low.
func (p Priority) Next() Priority {
	for i, q := range Priorities {
		if q == p {
			return Priorities[(i+1)%len(Priorities)]
		}
	}
	return Low
}

// ValidateDeadline accepts an empty string (unset) or a YYYY-MM-DD date.
func ValidateDeadline(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(DeadlineLayout, s); err != nil {
		return fmt.Errorf("invalid deadline %q (want YYYY-MM-DD)", s)
	}
	return nil
}

// Task is the domain model for a tracked to-do item.
type Task struct {
	ID        int      `json:"id"`
	Title     string   `json:"title"`
	Priority  Priority `json:"priority"`
	Deadline  string   `json:"deadline"`
	Completed bool     `json:"completed"`
	CreatedAt string   `json:"created_at"`
}

// Status is the human label for the completion flag.
func (t Task) Status() string {
	if t.Completed {
		return "done"
	}
	return "pending"
}

// Created parses CreatedAt in the local time zone.
func (t Task) Created() (time.Time, bool) {
	ts, err := time.ParseInLocation(CreatedLayout, t.CreatedAt, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Patch describes an edit. A nil field means no change requested;
// a non-nil empty string clears the field.
type Patch struct {
	Title    *string
	Priority *string
	Deadline *string
}

// Empty reports whether no field is requested.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Priority == nil && p.Deadline == nil
}

// Apply writes the requested fields onto t and reports whether any
// value actually changed.
func (p Patch) Apply(t *Task) bool {
	changed := false
	if p.Title != nil && *p.Title != t.Title {
		t.Title = *p.Title
		changed = true
	}
	if p.Priority != nil && Priority(*p.Priority) != t.Priority {
		t.Priority = Priority(*p.Priority)
		changed = true
	}
	if p.Deadline != nil && *p.Deadline != t.Deadline {
		t.Deadline = *p.Deadline
		changed = true
	}
	return changed
}
