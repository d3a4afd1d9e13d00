// Package tui is the interactive task list. Every change goes straight to
// the store, which flushes it to disk.
package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/taskman/internal/model"
	"github.com/Makepad-fr/taskman/internal/store"
	"github.com/Makepad-fr/taskman/internal/ui"
)

// Options tune the interactive list.
type Options struct {
	Now    func() time.Time
	Logger *log.Logger
}

// Run starts the Bubble Tea program on the alternate screen.
func Run(s *store.Store, opts Options) error {
	p := tea.NewProgram(New(s, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type mode int

const (
	modeList mode = iota
	modeForm
	modeConfirm
)

type formStep int

const (
	stepTitle formStep = iota
	stepPriority
	stepDeadline
)

// listItem adapts a task to bubbles/list.Item.
type listItem struct {
	task model.Task
}

func (i listItem) FilterValue() string { return i.task.Title }

// Custom delegate to control how items render (single line)
type itemDelegate struct {
	now func() time.Time
}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	prefix := "  "
	if index == m.Index() {
		prefix = ui.Current().Selected.Render("> ")
	}
	fmt.Fprint(w, prefix+ui.TaskLine(it.task, d.now()))
}

var keys = struct {
	add, edit, toggle, del key.Binding
}{
	add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
	edit:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "done/undo")),
	del:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
}

// Model is the Bubble Tea model of the task list.
type Model struct {
	store *store.Store
	now   func() time.Time
	log   *log.Logger

	list list.Model
	mode mode

	// add/edit form; editID 0 means add
	editID        int
	step          formStep
	ti            textinput.Model
	draftTitle    string
	draftPriority model.Priority

	// delete confirmation
	target model.Task

	status    string
	statusErr bool
}

// New builds the model around an opened store.
func New(s *store.Store, opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	l := list.New(nil, itemDelegate{now: opts.Now}, 80, 20)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Filter = substringFilter
	l.Styles.Title = ui.Current().Title
	l.FilterInput.Prompt = "search: "
	l.SetStatusBarItemName("task", "tasks")
	extra := func() []key.Binding { return []key.Binding{keys.add, keys.edit, keys.toggle, keys.del} }
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	m := Model{
		store: s,
		now:   opts.Now,
		log:   opts.Logger,
		list:  l,
		ti:    ti,
	}
	m.refresh()
	return m
}

// substringFilter ranks list items by the store's search rule, keeping
// collection order.
func substringFilter(term string, targets []string) []list.Rank {
	var ranks []list.Rank
	for i, t := range targets {
		if store.Match(t, term) {
			ranks = append(ranks, list.Rank{Index: i})
		}
	}
	return ranks
}

// refresh reloads items and the header from the store.
func (m *Model) refresh() tea.Cmd {
	tasks := m.store.List()
	items := make([]list.Item, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, listItem{task: t})
	}
	done, pending := m.store.Stats()
	m.list.Title = ui.Header("Tasks", done, pending)
	return m.list.SetItems(items)
}

func (m Model) selected() (model.Task, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Task{}, false
	}
	return it.task, true
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status, m.statusErr = msg, isErr
}

// report turns a store result into a status line.
func (m *Model) report(ok string, err error) {
	var fe *store.FlushError
	switch {
	case err == nil:
		m.setStatus(ok, false)
	case errors.As(err, &fe):
		m.setStatus("not saved: "+fe.Err.Error(), true)
	default:
		m.log.Debug("action rejected", "err", err)
		m.setStatus(err.Error(), true)
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		m.list.SetSize(max(ws.Width-4, 20), max(ws.Height-7, 3))
		return m, nil
	}

	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modeConfirm:
		return m.updateConfirm(msg)
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok || m.list.SettingFilter() {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch km.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.list.IsFiltered() {
			m.list.ResetFilter()
			return m, nil
		}
		return m, tea.Quit
	case " ":
		if t, ok := m.selected(); ok {
			t, err := m.store.ToggleComplete(t.ID)
			m.report(fmt.Sprintf("#%d is now %s", t.ID, t.Status()), err)
			return m, m.refresh()
		}
		return m, nil
	case "a":
		m.startForm(model.Task{Priority: model.Low})
		return m, textinput.Blink
	case "e":
		if t, ok := m.selected(); ok {
			m.startForm(t)
			return m, textinput.Blink
		}
		return m, nil
	case "d":
		if t, ok := m.selected(); ok {
			m.target = t
			m.mode = modeConfirm
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// startForm opens the add form (t.ID == 0) or the edit form for t.
func (m *Model) startForm(t model.Task) {
	m.mode = modeForm
	m.editID = t.ID
	m.step = stepTitle
	m.draftTitle = t.Title
	m.draftPriority = t.Priority
	if m.draftPriority == "" {
		m.draftPriority = model.Low
	}
	m.target = t
	m.ti.SetValue(t.Title)
	m.ti.CursorEnd()
	m.ti.Placeholder = "Task title..."
	m.ti.Focus()
	m.setStatus("", false)
}

func (m *Model) closeForm() {
	m.mode = modeList
	m.ti.SetValue("")
	m.ti.Blur()
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.ti, cmd = m.ti.Update(msg)
		return m, cmd
	}
	if km.String() == "esc" || km.String() == "ctrl+c" {
		m.closeForm()
		m.setStatus("cancelled", false)
		return m, nil
	}

	switch m.step {
	case stepTitle:
		if km.String() == "enter" {
			title := strings.TrimSpace(m.ti.Value())
			if title == "" {
				m.setStatus(store.ErrEmptyTitle.Error(), true)
				return m, nil
			}
			m.draftTitle = title
			m.step = stepPriority
			m.ti.Blur()
			m.setStatus("", false)
			return m, nil
		}

	case stepPriority:
		switch km.String() {
		case "left", "h", "shift+tab":
			m.draftPriority = m.draftPriority.Next().Next()
		case "right", "l", "tab", " ":
			m.draftPriority = m.draftPriority.Next()
		case "enter":
			m.step = stepDeadline
			m.ti.SetValue(m.target.Deadline)
			m.ti.CursorEnd()
			m.ti.Placeholder = "YYYY-MM-DD (empty for none)"
			m.ti.Focus()
		}
		return m, nil

	case stepDeadline:
		switch km.String() {
		case "up", "down", "pgup", "pgdown":
			m.ti.SetValue(shiftDeadline(m.ti.Value(), km.String(), m.now()))
			m.ti.CursorEnd()
			return m, nil
		case "enter":
			deadline := strings.TrimSpace(m.ti.Value())
			if err := model.ValidateDeadline(deadline); err != nil {
				m.setStatus(err.Error(), true)
				return m, nil
			}
			return m.commit(deadline)
		}
	}

	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

// commit writes the finished form through the store.
func (m Model) commit(deadline string) (tea.Model, tea.Cmd) {
	if m.editID == 0 {
		t, err := m.store.Create(m.draftTitle, m.draftPriority, deadline)
		m.report(fmt.Sprintf("added #%d", t.ID), err)
	} else {
		title, prio := m.draftTitle, string(m.draftPriority)
		t, err := m.store.Update(m.editID, model.Patch{Title: &title, Priority: &prio, Deadline: &deadline})
		m.report(fmt.Sprintf("updated #%d", t.ID), err)
	}
	m.closeForm()
	return m, m.refresh()
}

// shiftDeadline moves a date by a day (up/down) or a month (pgup/pgdown).
// An empty or invalid value starts from today.
func shiftDeadline(cur, k string, now time.Time) string {
	d, err := time.Parse(model.DeadlineLayout, strings.TrimSpace(cur))
	if err != nil {
		return now.Format(model.DeadlineLayout)
	}
	switch k {
	case "up":
		d = d.AddDate(0, 0, 1)
	case "down":
		d = d.AddDate(0, 0, -1)
	case "pgup":
		d = d.AddDate(0, 1, 0)
	case "pgdown":
		d = d.AddDate(0, -1, 0)
	}
	return d.Format(model.DeadlineLayout)
}

func (m Model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch km.String() {
	case "y", "Y":
		err := m.store.Delete(m.target.ID)
		m.report(fmt.Sprintf("deleted #%d", m.target.ID), err)
		m.mode = modeList
		return m, m.refresh()
	case "n", "N", "esc", "q":
		m.mode = modeList
		m.setStatus("cancelled", false)
	}
	return m, nil
}

func (m Model) View() string {
	t := ui.Current()
	content := m.list.View()

	box := lipgloss.NewStyle().Border(t.Border).BorderForeground(t.BorderColor).Padding(0, 1)
	switch m.mode {
	case modeForm:
		content += "\n" + box.Render(m.formView())
	case modeConfirm:
		content += "\n" + box.Render(fmt.Sprintf("Delete #%d %q? %s",
			m.target.ID, m.target.Title, t.Muted.Render("y/n")))
	}

	if m.status != "" {
		st := t.Success
		if m.statusErr {
			st = t.Error
		}
		content += "\n" + st.Render(m.status)
	}
	return ui.Panel([]string{content})
}

func (m Model) formView() string {
	t := ui.Current()
	heading := "Add task"
	if m.editID != 0 {
		heading = fmt.Sprintf("Edit task #%d", m.editID)
	}
	switch m.step {
	case stepPriority:
		var opts []string
		for _, p := range model.Priorities {
			if p == m.draftPriority {
				opts = append(opts, t.Selected.Render(" "+string(p)+" "))
			} else {
				opts = append(opts, " "+string(p)+" ")
			}
		}
		return fmt.Sprintf("%s: %s\nPriority: %s\n%s", heading, m.draftTitle,
			strings.Join(opts, " "), t.Muted.Render("←/→ change · enter next · esc cancel"))
	case stepDeadline:
		return fmt.Sprintf("%s: %s [%s]\nDeadline\n%s\n%s", heading, m.draftTitle, m.draftPriority,
			m.ti.View(), t.Muted.Render("↑/↓ day · pgup/pgdown month · enter save · esc cancel"))
	}
	return fmt.Sprintf("%s\nTitle\n%s\n%s", heading, m.ti.View(), t.Muted.Render("enter next · esc cancel"))
}
