package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"weekplan/internal/calendar"
	"weekplan/internal/config"
	"weekplan/internal/storage"
	"weekplan/internal/task"
)

type mode int

const (
	modeWeek mode = iota
	modeEdit
)

// storeChangedMsg is delivered when the store reports a write.
type storeChangedMsg struct{}

type formState struct {
	original task.Task
	day      time.Time
	title    string
	start    string
	end      string
	location string
	index    int
}

type Model struct {
	store      *storage.Store
	cfg        config.Config
	nav        *calendar.Navigator
	week       []calendar.Day
	tasks      map[string][]task.Task
	version    uint64
	dayIdx     int
	cursor     int
	mode       mode
	input      textinput.Model
	status     string
	confirmDel bool
	pendingDel *task.Task
	form       *formState
}

// New builds the week view on top of store. The initial selection is today.
func New(store *storage.Store, cfg config.Config, w calendar.Window) Model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 40

	m := Model{
		store:  store,
		cfg:    cfg,
		nav:    calendar.NewNavigator(w),
		input:  ti,
		mode:   modeWeek,
		status: fmt.Sprintf("Press '%s' to add a task, '%s'/'%s' to change week.", cfg.Keys.Add, cfg.Keys.PrevWeek, cfg.Keys.NextWeek),
	}
	m.week = m.nav.Week()
	today := w.Today()
	for i, d := range m.week {
		if d.Same(today) {
			m.dayIdx = i
		}
	}
	m.reload()
	return m
}

// Run starts the interactive program and blocks until it exits.
func Run(store *storage.Store, cfg config.Config) error {
	program := tea.NewProgram(New(store, cfg, cfg.Window()))
	cancel := store.Subscribe(func() {
		// Writes usually originate inside Update, which must not block on Send.
		go program.Send(storeChangedMsg{})
	})
	defer cancel()
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.form != nil {
			return m.updateEditMode(msg.String(), msg)
		}
		if m.confirmDel {
			return m.updateDeleteConfirm(msg.String())
		}
		return m.updateWeekMode(msg.String())
	case storeChangedMsg:
		if m.store.Version() != m.version {
			m.reload()
		}
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
	}
	return m, nil
}

func (m Model) updateWeekMode(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", m.cfg.Keys.Quit:
		return m, tea.Quit
	case m.cfg.Keys.Down, "down":
		m.cursor = clampCursor(m.cursor+1, len(m.dayTasks()))
	case m.cfg.Keys.Up, "up":
		m.cursor = clampCursor(m.cursor-1, len(m.dayTasks()))
	case m.cfg.Keys.NextDay, "right":
		m.selectDay(m.dayIdx + 1)
	case m.cfg.Keys.PrevDay, "left":
		m.selectDay(m.dayIdx - 1)
	case m.cfg.Keys.NextWeek:
		m.week = m.nav.Next()
		m.afterWeekChange()
	case m.cfg.Keys.PrevWeek:
		m.week = m.nav.Prev()
		m.afterWeekChange()
	case m.cfg.Keys.ThisWeek:
		m.week = m.nav.Reset()
		m.afterWeekChange()
	case m.cfg.Keys.Add:
		day := m.selectedDay()
		t := task.Placeholder(day.Date, m.cfg.Placeholder)
		if err := m.store.Add(t, day.Date); err != nil {
			m.status = fmt.Sprintf("add failed: %v", err)
			return m, nil
		}
		m.reload()
		m.cursor = clampCursor(len(m.dayTasks())-1, len(m.dayTasks()))
		m.status = fmt.Sprintf("Added %q on %s", t.Title, day.Date.Format("Mon 02"))
	case m.cfg.Keys.Delete:
		t, ok := m.selectedTask()
		if !ok {
			return m, nil
		}
		m.confirmDel = true
		m.pendingDel = &t
		m.status = fmt.Sprintf("Delete \"%s\"? y/n", t.Title)
	case m.cfg.Keys.Edit, m.cfg.Keys.Confirm:
		t, ok := m.selectedTask()
		if !ok {
			m.status = "No task to edit"
			return m, nil
		}
		return m.startEdit(t)
	}
	return m, nil
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.cfg.Keys.Cancel:
		m.status = "Delete cancelled"
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	case "y", "Y":
		if m.pendingDel == nil {
			m.status = "Nothing to delete"
			m.confirmDel = false
			return m, nil
		}
		if err := m.store.Remove(*m.pendingDel, m.selectedDay().Date); err != nil {
			m.status = fmt.Sprintf("delete failed: %v", err)
		} else {
			m.reload()
			m.status = "Deleted task"
		}
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) startEdit(t task.Task) (tea.Model, tea.Cmd) {
	m.form = &formState{
		original: t,
		day:      m.selectedDay().Date,
		title:    t.Title,
		start:    t.Start.Format(task.ClockLayout),
		end:      t.End.Format(task.ClockLayout),
		location: t.Location,
	}
	m.input.SetValue(m.form.currentValue())
	m.input.Placeholder = m.form.currentLabel()
	m.input.Focus()
	m.mode = modeEdit
	m.status = m.formPrompt()
	return m, nil
}

func (m Model) updateEditMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.form = nil
		m.mode = modeWeek
		m.input.Blur()
		m.status = "Edit cancelled"
		return m, nil
	case "tab", "down":
		m.moveField(1)
		return m, nil
	case "shift+tab", "up":
		m.moveField(-1)
		return m, nil
	case m.cfg.Keys.Confirm, "enter":
		m.form.setCurrentValue(m.input.Value())
		if m.form.index >= len(formFields())-1 {
			return m.saveEdit()
		}
		m.moveField(1)
		return m, nil
	case "ctrl+s":
		m.form.setCurrentValue(m.input.Value())
		return m.saveEdit()
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m *Model) moveField(delta int) {
	m.form.setCurrentValue(m.input.Value())
	m.form.index = wrapIndex(m.form.index+delta, len(formFields()))
	m.input.SetValue(m.form.currentValue())
	m.input.Placeholder = m.form.currentLabel()
	m.status = m.formPrompt()
}

func (m Model) saveEdit() (tea.Model, tea.Cmd) {
	updated, err := m.form.apply()
	if err != nil {
		m.status = fmt.Sprintf("invalid time: %v", err)
		return m, nil
	}
	if err := m.store.Update(updated, m.form.day); err != nil {
		if errors.Is(err, task.ErrInvalidRange) {
			m.status = "End must be after start"
		} else {
			m.status = fmt.Sprintf("save failed: %v", err)
		}
		return m, nil
	}
	m.form = nil
	m.mode = modeWeek
	m.input.Blur()
	m.reload()
	for i, t := range m.dayTasks() {
		if t.ID == updated.ID {
			m.cursor = i
			break
		}
	}
	m.status = "Task saved"
	return m, nil
}

// reload re-reads the visible week from the store.
func (m *Model) reload() {
	m.version = m.store.Version()
	tasks := make(map[string][]task.Task, len(m.week))
	for _, d := range m.week {
		list, err := m.store.TasksFor(d.Date)
		if err != nil {
			m.status = fmt.Sprintf("reload failed: %v", err)
		}
		tasks[d.ID] = list
	}
	m.tasks = tasks
	m.cursor = clampCursor(m.cursor, len(m.dayTasks()))
}

func (m *Model) afterWeekChange() {
	m.dayIdx = 0
	m.cursor = 0
	m.reload()
	m.status = "Week of " + m.week[0].Date.Format("Jan 2, 2006")
}

func (m *Model) selectDay(idx int) {
	m.dayIdx = clampCursor(idx, len(m.week))
	m.cursor = 0
}

func (m Model) selectedDay() calendar.Day {
	return m.week[clampCursor(m.dayIdx, len(m.week))]
}

func (m Model) dayTasks() []task.Task {
	return m.tasks[m.selectedDay().ID]
}

func (m Model) selectedTask() (task.Task, bool) {
	tasks := m.dayTasks()
	if len(tasks) == 0 {
		return task.Task{}, false
	}
	return tasks[clampCursor(m.cursor, len(tasks))], true
}

func formFields() []string {
	return []string{"title", "start (HH:MM)", "end (HH:MM)", "location"}
}

func (fs formState) currentLabel() string {
	return formFields()[fs.index]
}

func (fs formState) currentValue() string {
	switch fs.index {
	case 0:
		return fs.title
	case 1:
		return fs.start
	case 2:
		return fs.end
	case 3:
		return fs.location
	default:
		return ""
	}
}

func (fs *formState) setCurrentValue(v string) {
	switch fs.index {
	case 0:
		fs.title = v
	case 1:
		fs.start = v
	case 2:
		fs.end = v
	case 3:
		fs.location = v
	}
}

// apply applies the form to the original task. Only the time of day is
// editable; the task stays on its day.
func (fs formState) apply() (task.Task, error) {
	start, err := task.AtClock(fs.original.Start, fs.start)
	if err != nil {
		return task.Task{}, err
	}
	end, err := task.AtClock(fs.original.End, fs.end)
	if err != nil {
		return task.Task{}, err
	}
	t := fs.original
	t.Title = fs.title
	t.Start = start
	t.End = end
	t.Location = strings.TrimSpace(fs.location)
	return t, nil
}

func (m Model) formPrompt() string {
	if m.form == nil {
		return ""
	}
	return fmt.Sprintf("Editing %s (field %d of %d). Enter to advance, ctrl+s to save, Esc to cancel.",
		m.form.currentLabel(), m.form.index+1, len(formFields()))
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
