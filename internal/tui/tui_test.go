package tui

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/taskman/internal/model"
	"github.com/Makepad-fr/taskman/internal/store"
	"github.com/Makepad-fr/taskman/internal/store/jsonstore"
)

var now = time.Date(2024, 5, 20, 9, 0, 0, 0, time.Local)

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	right = tea.KeyMsg{Type: tea.KeyRight}
	up    = tea.KeyMsg{Type: tea.KeyUp}
)

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(jsonstore.New(filepath.Join(t.TempDir(), "tasks.json")),
		store.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newModel(s *store.Store) Model {
	return New(s, Options{Now: func() time.Time { return now }})
}

func TestAddFlow(t *testing.T) {
	s := newStore(t)
	m := newModel(s)

	m = send(m, runes("a"), runes("Write report"), enter)
	if m.mode != modeForm || m.step != stepPriority {
		t.Fatalf("after title: mode=%v step=%v", m.mode, m.step)
	}
	m = send(m, right, right, enter)
	if m.step != stepDeadline || m.draftPriority != model.High {
		t.Fatalf("after priority: step=%v prio=%v", m.step, m.draftPriority)
	}
	m = send(m, runes("2024-06-01"), enter)
	if m.mode != modeList {
		t.Fatalf("form still open: %v (status %q)", m.mode, m.status)
	}

	tasks := s.List()
	if len(tasks) != 1 {
		t.Fatalf("tasks: %+v", tasks)
	}
	got := tasks[0]
	if got.Title != "Write report" || got.Priority != model.High || got.Deadline != "2024-06-01" || got.Completed {
		t.Errorf("created %+v", got)
	}
	if m.status != "added #1" || m.statusErr {
		t.Errorf("status %q err=%v", m.status, m.statusErr)
	}
	if len(m.list.Items()) != 1 {
		t.Errorf("list not refreshed: %d items", len(m.list.Items()))
	}
}

func TestAddRejectsEmptyTitle(t *testing.T) {
	s := newStore(t)
	m := send(newModel(s), runes("a"), runes("   "), enter)
	if m.mode != modeForm || m.step != stepTitle {
		t.Fatalf("form should stay on title: mode=%v step=%v", m.mode, m.step)
	}
	if !m.statusErr || m.status != store.ErrEmptyTitle.Error() {
		t.Errorf("status %q", m.status)
	}
	m = send(m, esc)
	if m.mode != modeList || len(s.List()) != 0 {
		t.Errorf("esc should cancel without changes")
	}
}

func TestAddRejectsBadDeadline(t *testing.T) {
	s := newStore(t)
	m := send(newModel(s), runes("a"), runes("x"), enter, enter, runes("tomorrow"), enter)
	if m.mode != modeForm || !m.statusErr {
		t.Fatalf("bad deadline accepted: mode=%v status=%q", m.mode, m.status)
	}
	if len(s.List()) != 0 {
		t.Error("task created despite bad deadline")
	}
}

func TestToggleAndDelete(t *testing.T) {
	s := newStore(t)
	s.Create("Buy milk", model.Low, "")
	m := newModel(s)

	m = send(m, space)
	if got, _ := s.Get(1); !got.Completed {
		t.Fatal("space did not toggle")
	}
	m = send(m, space)
	if got, _ := s.Get(1); got.Completed {
		t.Fatal("second space did not toggle back")
	}

	m = send(m, runes("d"))
	if m.mode != modeConfirm {
		t.Fatalf("mode %v, want confirm", m.mode)
	}
	m = send(m, runes("n"))
	if m.mode != modeList || len(s.List()) != 1 {
		t.Fatal("cancel deleted the task")
	}

	m = send(m, runes("d"), runes("y"))
	if len(s.List()) != 0 {
		t.Fatal("task not deleted")
	}
	if m.status != "deleted #1" {
		t.Errorf("status %q", m.status)
	}

	// nothing selected: keys are no-ops
	m = send(m, space, runes("d"), runes("e"))
	if m.mode != modeList {
		t.Errorf("mode %v on empty list", m.mode)
	}
}

func TestEditFlow(t *testing.T) {
	s := newStore(t)
	s.Create("Write report", model.High, "2024-06-01")
	m := newModel(s)

	m = send(m, runes("e"))
	if m.ti.Value() != "Write report" || m.editID != 1 {
		t.Fatalf("edit form not prefilled: %q id=%d", m.ti.Value(), m.editID)
	}
	m = send(m, runes(" now"), enter, enter)
	if m.ti.Value() != "2024-06-01" {
		t.Fatalf("deadline not prefilled: %q", m.ti.Value())
	}
	m = send(m, up, enter)

	got, _ := s.Get(1)
	if got.Title != "Write report now" || got.Priority != model.High || got.Deadline != "2024-06-02" {
		t.Errorf("edited %+v", got)
	}
	if m.status != "updated #1" {
		t.Errorf("status %q", m.status)
	}
}

func TestQuit(t *testing.T) {
	m := newModel(newStore(t))
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

type failingSaves struct{}

func (failingSaves) Load() (jsonstore.Snapshot, error) {
	return jsonstore.Snapshot{Tasks: []model.Task{{ID: 1, Title: "a", Priority: model.Low}}, State: jsonstore.StateLoaded}, nil
}
func (failingSaves) Save([]model.Task, int) error { return errors.New("read-only file system") }
func (failingSaves) Path() string                 { return "ro.json" }

func TestFlushErrorShownInStatus(t *testing.T) {
	s, err := store.New(failingSaves{})
	if err != nil {
		t.Fatal(err)
	}
	m := send(newModel(s), space)
	if !m.statusErr || !strings.Contains(m.status, "not saved: read-only file system") {
		t.Errorf("status %q err=%v", m.status, m.statusErr)
	}
	if got, _ := s.Get(1); !got.Completed {
		t.Error("in-memory toggle lost")
	}
}

func TestSubstringFilter(t *testing.T) {
	ranks := substringFilter("ork", []string{"Work out", "Home", "Homework"})
	if len(ranks) != 2 || ranks[0].Index != 0 || ranks[1].Index != 2 {
		t.Errorf("ranks %+v", ranks)
	}
	if got := substringFilter("zzz", []string{"a"}); len(got) != 0 {
		t.Errorf("unexpected match %+v", got)
	}
}

func TestShiftDeadline(t *testing.T) {
	tests := []struct {
		cur, key, want string
	}{
		{"", "up", "2024-05-20"},
		{"garbage", "down", "2024-05-20"},
		{"2024-02-28", "up", "2024-02-29"},
		{"2024-03-01", "down", "2024-02-29"},
		{"2024-01-31", "pgup", "2024-03-02"},
		{"2024-06-15", "pgdown", "2024-05-15"},
	}
	for _, tt := range tests {
		if got := shiftDeadline(tt.cur, tt.key, now); got != tt.want {
			t.Errorf("shiftDeadline(%q, %q) = %q, want %q", tt.cur, tt.key, got, tt.want)
		}
	}
}

func TestViewShowsTasksAndForm(t *testing.T) {
	s := newStore(t)
	s.Create("Write report", model.High, "")
	m := newModel(s)
	if v := m.View(); !strings.Contains(v, "Write report") {
		t.Errorf("view missing task:\n%s", v)
	}
	m = send(m, runes("a"))
	if v := m.View(); !strings.Contains(v, "Add task") {
		t.Errorf("view missing form:\n%s", v)
	}
}
