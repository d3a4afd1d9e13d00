package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Makepad-fr/taskman/internal/model"
)

var now = time.Date(2024, 6, 10, 12, 0, 0, 0, time.Local)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		done, total, width int
		want               string
	}{
		{0, 0, 10, "░░░░░░░░░░   0%"},
		{1, 2, 10, "█████░░░░░  50%"},
		{3, 3, 5, "█████ 100%"},
		{1, 1, 2, "█████ 100%"},
	}
	for _, tt := range tests {
		if got := ProgressBar(tt.done, tt.total, tt.width); got != tt.want {
			t.Errorf("ProgressBar(%d,%d,%d) = %q, want %q", tt.done, tt.total, tt.width, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("ünïcödé title", 8); got != "ünïcö..." {
		t.Errorf("got %q", got)
	}
	if got := Truncate("abcdef", 2); got != "ab" {
		t.Errorf("got %q", got)
	}
}

func TestDeadlineLabel(t *testing.T) {
	SetTheme("mono")
	defer SetTheme("classic")

	tests := []struct {
		task model.Task
		want string
	}{
		{model.Task{}, "N/A"},
		{model.Task{Deadline: "2024-06-10"}, "2024-06-10"},
		{model.Task{Deadline: "2024-06-01"}, "2024-06-01 overdue"},
		{model.Task{Deadline: "2024-06-01", Completed: true}, "2024-06-01"},
		{model.Task{Deadline: "someday"}, "someday"},
	}
	for _, tt := range tests {
		if got := DeadlineLabel(tt.task, now); got != tt.want {
			t.Errorf("DeadlineLabel(%+v) = %q, want %q", tt.task, got, tt.want)
		}
	}
}

func TestAge(t *testing.T) {
	task := model.Task{CreatedAt: "2024-06-10 09:00:00"}
	if got := Age(task, now); got != "created 3 hours ago" {
		t.Errorf("Age = %q", got)
	}
	if got := Age(model.Task{CreatedAt: "yesterday"}, now); got != "yesterday" {
		t.Errorf("Age raw fallback = %q", got)
	}
}

func TestListingGrouped(t *testing.T) {
	SetTheme("mono")
	defer SetTheme("classic")

	tasks := []model.Task{
		{ID: 1, Title: "Write report", Priority: model.High, CreatedAt: "2024-06-10 09:00:00"},
		{ID: 2, Title: "Buy milk", Completed: true, CreatedAt: "2024-06-09 09:00:00"},
	}
	out := Listing("Tasks", tasks, true, now)
	for _, want := range []string{"Tasks", "Total 2", "Pending", "Done", "[ ] Write report", "[x] Buy milk", "#1", "High"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Write report") > strings.Index(out, "Buy milk") {
		t.Error("pending group should come first")
	}
}

func TestListingEmpty(t *testing.T) {
	out := Listing("Tasks", nil, false, now)
	if !strings.Contains(out, "no tasks") {
		t.Errorf("got:\n%s", out)
	}
}

func TestOKAndFail(t *testing.T) {
	SetTheme("mono")
	defer SetTheme("classic")

	var buf bytes.Buffer
	OK(&buf, "added")
	Fail(&buf, "boom")
	if got := buf.String(); got != "ok added\nerror: boom\n" {
		t.Errorf("got %q", got)
	}
}

func TestDetail(t *testing.T) {
	out := Detail(model.Task{ID: 4, Title: "Call mom", CreatedAt: "2024-06-10 11:00:00"}, now)
	for _, want := range []string{"Task #4", "Call mom", "N/A", "Pending", "created 1 hour ago"} {
		if !strings.Contains(out, want) {
			t.Errorf("detail missing %q:\n%s", want, out)
		}
	}
}
