package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"weekplan/internal/calendar"
	"weekplan/internal/config"
	"weekplan/internal/task"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	dayStyle      = lipgloss.NewStyle().Width(5).Align(lipgloss.Center)
	todayStyle    = dayStyle.Underline(true)
	selectedStyle = dayStyle.Bold(true).Reverse(true)
	mutedStyle    = lipgloss.NewStyle().Faint(true)
	cursorStyle   = lipgloss.NewStyle().Bold(true)
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderDays())
	b.WriteString("\n---\n")

	if m.form != nil {
		b.WriteString("Edit Task (tab/shift+tab to move, enter to advance, ctrl+s to save, esc to cancel)")
		b.WriteString("\n\n")
		b.WriteString(m.renderForm())
		b.WriteString("\n")
		b.WriteString("Field: " + m.form.currentLabel())
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
	}

	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(renderHelp(m.cfg.Keys))
	return b.String()
}

func (m Model) renderHeader() string {
	title := "This Week"
	if off := m.nav.Offset(); off != 0 {
		title = fmt.Sprintf("Week %+d", off)
	}
	selected := m.selectedDay().Date

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render(selected.Format("Jan 2006")))
	b.WriteString("\n")

	today := m.nav.Window.Today()
	labels := make([]string, len(m.week))
	for i, d := range m.week {
		style := dayStyle
		switch {
		case i == m.dayIdx:
			style = selectedStyle
		case d.Same(today):
			style = todayStyle
		}
		labels[i] = style.Render(d.Date.Format("Mon") + "\n" + d.Date.Format("02"))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, labels...))
	return b.String()
}

func (m Model) renderDays() string {
	var b strings.Builder
	for i, d := range m.week {
		b.WriteString(titleStyle.Render(d.Date.Format("Mon 02")))
		b.WriteString("\n")
		b.WriteString(m.renderDayTasks(i, d))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderDayTasks(idx int, d calendar.Day) string {
	tasks := m.tasks[d.ID]
	if len(tasks) == 0 {
		return mutedStyle.Render("  No task found on this day! Try adding some new tasks") + "\n"
	}
	var b strings.Builder
	for i, t := range tasks {
		cursor := " "
		if idx == m.dayIdx && i == m.cursor && m.mode == modeWeek {
			cursor = cursorStyle.Render(">")
		}
		b.WriteString(fmt.Sprintf("%s • %s\n", cursor, renderTask(t)))
	}
	return b.String()
}

func renderTask(t task.Task) string {
	line := fmt.Sprintf("%-24s %s", emptyPlaceholder(t.Title), t.TimeRange())
	if t.Location != "" {
		line += "  " + mutedStyle.Render(t.Location)
	}
	return line
}

func (m Model) renderForm() string {
	fields := formFields()
	values := []string{m.form.title, m.form.start, m.form.end, m.form.location}
	var b strings.Builder
	for i, name := range fields {
		prefix := " "
		if i == m.form.index {
			prefix = ">"
		}
		b.WriteString(fmt.Sprintf("%s %-14s : %s\n", prefix, name, emptyPlaceholder(values[i])))
	}
	return b.String()
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s day • %s/%s task • %s/%s week • %s this week • %s add • %s edit • %s delete • %s quit",
		k.PrevDay, k.NextDay, k.Up, k.Down, k.PrevWeek, k.NextWeek, k.ThisWeek, k.Add, k.Edit, k.Delete, k.Quit)
}

func emptyPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return "(empty)"
	}
	return v
}
