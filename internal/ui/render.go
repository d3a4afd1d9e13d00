package ui

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Makepad-fr/taskman/internal/model"
)

const maxTitle = 60

// Header is the counts line shown above every listing.
func Header(label string, done, pending int) string {
	t := Current()
	return fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		t.Title.Render(label),
		t.Success.Render("✔"), done,
		t.Pending.Render("•"), pending,
		t.Accent.Render("Total"), done+pending,
	)
}

// Listing renders the full framed list for the CLI.
func Listing(label string, tasks []model.Task, group bool, now time.Time) string {
	done, pending := Stats(tasks)
	lines := []string{
		Header(label, done, pending),
		Current().Muted.Render(ProgressBar(done, done+pending, 28)),
		"",
	}
	if group {
		lines = append(lines, GroupLines(tasks, now)...)
	} else {
		lines = append(lines, FlatLines(tasks, now)...)
	}
	return Panel(lines)
}

// Stats counts done and pending tasks.
func Stats(tasks []model.Task) (done, pending int) {
	for _, it := range tasks {
		if it.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}

// FlatLines renders one line per task in the given order.
func FlatLines(tasks []model.Task, now time.Time) []string {
	if len(tasks) == 0 {
		return []string{Current().Muted.Render("no tasks")}
	}
	out := make([]string, 0, len(tasks))
	for _, it := range tasks {
		out = append(out, TaskLine(it, now))
	}
	return out
}

// GroupLines renders pending tasks first, then done tasks.
func GroupLines(tasks []model.Task, now time.Time) []string {
	var pend, done []model.Task
	for _, it := range tasks {
		if it.Completed {
			done = append(done, it)
		} else {
			pend = append(pend, it)
		}
	}
	t := Current()
	var lines []string
	lines = append(lines, t.Accent.Render("Pending"))
	if len(pend) == 0 {
		lines = append(lines, t.Muted.Render("(none)"))
	} else {
		lines = append(lines, FlatLines(pend, now)...)
	}
	lines = append(lines, "")
	lines = append(lines, t.Accent.Render("Done"))
	if len(done) == 0 {
		lines = append(lines, t.Muted.Render("(none)"))
	} else {
		lines = append(lines, FlatLines(done, now)...)
	}
	return lines
}

// TaskLine renders "#id box title  priority  deadline  age".
func TaskLine(it model.Task, now time.Time) string {
	t := Current()
	box := t.Muted.Render(t.BoxUnchecked)
	title := Truncate(it.Title, maxTitle)
	if it.Completed {
		box = t.Success.Render(t.BoxChecked)
		title = t.Done.Render(title)
	}
	return fmt.Sprintf("%s %s %s  %s  %s  %s",
		t.Muted.Render(fmt.Sprintf("#%-3d", it.ID)),
		box,
		title,
		PriorityLabel(it.Priority),
		DeadlineLabel(it, now),
		t.Muted.Render(Age(it, now)),
	)
}

// PriorityLabel colors the known priorities.
func PriorityLabel(p model.Priority) string {
	t := Current()
	s := string(p)
	if s == "" {
		s = "-"
	}
	switch p {
	case model.High:
		return t.Error.Render(s)
	case model.Medium:
		return t.Pending.Render(s)
	}
	return t.Muted.Render(s)
}

// DeadlineLabel shows the deadline, "N/A" when unset, and flags overdue
// pending tasks.
func DeadlineLabel(it model.Task, now time.Time) string {
	t := Current()
	if it.Deadline == "" {
		return t.Muted.Render("N/A")
	}
	d, err := time.ParseInLocation(model.DeadlineLayout, it.Deadline, now.Location())
	if err != nil || it.Completed {
		return it.Deadline
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if d.Before(today) {
		return t.Error.Render(it.Deadline + " overdue")
	}
	return it.Deadline
}

// Age renders CreatedAt relative to now, or the raw text if unparsable.
func Age(it model.Task, now time.Time) string {
	ts, ok := it.Created()
	if !ok {
		return it.CreatedAt
	}
	return "created " + humanize.RelTime(ts, now, "ago", "from now")
}

// Truncate shortens s to n runes with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// Detail renders every field of one task.
func Detail(it model.Task, now time.Time) string {
	t := Current()
	deadline := it.Deadline
	if deadline == "" {
		deadline = "N/A"
	}
	status := t.Pending.Render("○ Pending")
	if it.Completed {
		status = t.Success.Render("✓ Complete")
	}
	return Panel([]string{
		t.Title.Render(fmt.Sprintf("Task #%d", it.ID)),
		"",
		fmt.Sprintf("%s %s", t.Muted.Render("Title:   "), it.Title),
		fmt.Sprintf("%s %s", t.Muted.Render("Priority:"), PriorityLabel(it.Priority)),
		fmt.Sprintf("%s %s", t.Muted.Render("Deadline:"), deadline),
		fmt.Sprintf("%s %s", t.Muted.Render("Status:  "), status),
		fmt.Sprintf("%s %s (%s)", t.Muted.Render("Created: "), it.CreatedAt, Age(it, now)),
	})
}
