// Package store owns the in-memory task collection and flushes it through a
// Persister after every mutation.
package store

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/taskman/internal/model"
	"github.com/Makepad-fr/taskman/internal/store/jsonstore"
)

var (
	// ErrEmptyTitle is returned when a title is empty after trimming.
	ErrEmptyTitle = errors.New("title cannot be empty")
	// ErrNotFound is returned for an unknown task id.
	ErrNotFound = errors.New("task not found")
)

// FlushError reports a failed write. The mutation that triggered it is
// still applied in memory, so memory and disk have diverged.
type FlushError struct {
	Path string
	Err  error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("flush %s: %v", e.Path, e.Err)
}

func (e *FlushError) Unwrap() error { return e.Err }

// Persister is the storage the Store flushes to.
type Persister interface {
	Load() (jsonstore.Snapshot, error)
	Save(tasks []model.Task, nextID int) error
	Path() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now for CreatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for flush diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Store is the authoritative task collection for the running process.
// It is not safe for concurrent use.
type Store struct {
	p      Persister
	tasks  []model.Task
	nextID int
	state  jsonstore.State
	now    func() time.Time
	log    *log.Logger
}

// New loads the collection through p. A corrupt data file is returned as an
// error; the caller decides whether to continue.
func New(p Persister, opts ...Option) (*Store, error) {
	s := &Store{
		p:   p,
		now: time.Now,
		log: log.New(io.Discard),
	}
	for _, o := range opts {
		o(s)
	}

	snap, err := p.Load()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", p.Path(), err)
	}
	s.tasks = snap.Tasks
	if s.tasks == nil {
		s.tasks = []model.Task{}
	}
	s.state = snap.State
	s.nextID = nextIDFor(snap.NextID, s.tasks)

	switch snap.State {
	case jsonstore.StateLegacy:
		s.log.Info("loaded unversioned data file; it is rewritten on the next change", "path", p.Path(), "tasks", len(s.tasks))
		for _, d := range snap.Dropped {
			s.log.Warn("dropped unreadable record", "path", p.Path(), "reason", d)
		}
	case jsonstore.StateAbsent:
		s.log.Debug("no data file yet", "path", p.Path())
	default:
		s.log.Debug("loaded", "path", p.Path(), "tasks", len(s.tasks), "next_id", s.nextID)
	}
	return s, nil
}

// nextIDFor never goes below max(id)+1, whatever the file claims.
func nextIDFor(persisted int, tasks []model.Task) int {
	next := 1
	if persisted > next {
		next = persisted
	}
	for _, t := range tasks {
		if t.ID >= next {
			next = t.ID + 1
		}
	}
	return next
}

// State reports how the data file looked at load time.
func (s *Store) State() jsonstore.State { return s.state }

// Path returns the data file location.
func (s *Store) Path() string { return s.p.Path() }

// NextID is the identifier the next Create will assign.
func (s *Store) NextID() int { return s.nextID }

// Create appends a pending task and flushes.
func (s *Store) Create(title string, priority model.Priority, deadline string) (model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, ErrEmptyTitle
	}
	t := model.Task{
		ID:        s.nextID,
		Title:     title,
		Priority:  priority,
		Deadline:  deadline,
		CreatedAt: s.now().Format(model.CreatedLayout),
	}
	s.nextID++
	s.tasks = append(s.tasks, t)
	return t, s.flush("create", t.ID)
}

// Get returns the first task with id.
func (s *Store) Get(id int) (model.Task, error) {
	i := s.index(id)
	if i < 0 {
		return model.Task{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return s.tasks[i], nil
}

// List returns a copy of all tasks in insertion order.
func (s *Store) List() []model.Task {
	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Update applies the requested fields of p. It flushes on success even when
// nothing changed.
func (s *Store) Update(id int, p model.Patch) (model.Task, error) {
	i := s.index(id)
	if i < 0 {
		return model.Task{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return model.Task{}, ErrEmptyTitle
		}
		p.Title = &title
	}
	if !p.Apply(&s.tasks[i]) {
		s.log.Debug("update changed nothing", "id", id)
	}
	return s.tasks[i], s.flush("update", id)
}

// ToggleComplete flips the completion flag.
func (s *Store) ToggleComplete(id int) (model.Task, error) {
	i := s.index(id)
	if i < 0 {
		return model.Task{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	s.tasks[i].Completed = !s.tasks[i].Completed
	return s.tasks[i], s.flush("toggle", id)
}

// Delete removes the task permanently.
func (s *Store) Delete(id int) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	return s.flush("delete", id)
}

// Search returns tasks whose title contains keyword, ignoring case, in
// collection order.
func (s *Store) Search(keyword string) []model.Task {
	out := []model.Task{}
	for _, t := range s.tasks {
		if Match(t.Title, keyword) {
			out = append(out, t)
		}
	}
	return out
}

// Match is the search rule: case-insensitive substring.
func Match(title, keyword string) bool {
	return strings.Contains(strings.ToLower(title), strings.ToLower(keyword))
}

// Stats counts done and pending tasks.
func (s *Store) Stats() (done, pending int) {
	for _, t := range s.tasks {
		if t.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}

func (s *Store) index(id int) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) flush(op string, id int) error {
	if err := s.p.Save(s.tasks, s.nextID); err != nil {
		s.log.Error("flush failed; in-memory state kept", "op", op, "id", id, "path", s.p.Path(), "err", err)
		return &FlushError{Path: s.p.Path(), Err: err}
	}
	s.state = jsonstore.StateLoaded
	s.log.Debug("flushed", "op", op, "id", id, "tasks", len(s.tasks))
	return nil
}
