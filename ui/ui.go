// Package ui hosts the task list in a terminal front-end. The bubbletea
// event loop is the single thread of control: every remote operation
// runs as a command and lands back here as a message, so the entity
// cache and selection are only ever mutated between renders.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskboard/client"
	"taskboard/controller"
	"taskboard/domain"
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeSearch
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Strikethrough(true)
	highStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	lowStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	categoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("108"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

type changedMsg struct{}

type failureMsg struct{ err error }

type opDoneMsg struct{ err error }

// Model is the bubbletea model for the task list screen.
type Model struct {
	ctrl   *controller.Controller
	tasks  []domain.Task
	cursor int
	mode   mode
	input  textinput.Model
	status string

	search          string
	completedFilter string
	priorityFilter  string

	confirmDel bool
	pendingDel *domain.Task
}

// Run drives the UI until the user quits.
func Run(ctrl *controller.Controller) error {
	ti := textinput.New()
	ti.Placeholder = "Task content"
	ti.CharLimit = 200
	ti.Width = 40

	m := Model{
		ctrl:   ctrl,
		input:  ti,
		status: "a add · space select · A select all · x/u complete · d delete · D delete selected · J/K move · / search · f/p filter · q quit",
	}

	program := tea.NewProgram(m)
	ctrl.OnChange(func() { program.Send(changedMsg{}) })
	ctrl.OnError(func(err error) { program.Send(failureMsg{err: err}) })

	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.runOp(func(ctx context.Context) error { return m.ctrl.RefreshCategories(ctx) }),
		m.refreshCmd(),
		m.statsCmd(),
	)
}

func (m Model) runOp(op func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: op(context.Background())}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	filter := controller.BuildFilter(controller.FilterInputs{
		Search:    m.search,
		Completed: m.completedFilter,
		Priority:  m.priorityFilter,
	})
	ctrl := m.ctrl
	return func() tea.Msg {
		return opDoneMsg{err: ctrl.Refresh(context.Background(), filter)}
	}
}

func (m Model) statsCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.RefreshStats(context.Background())
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		m.tasks = m.ctrl.Store().Tasks()
		m.cursor = clampCursor(m.cursor, len(m.tasks))
		return m, nil
	case failureMsg:
		m.status = "error: " + msg.err.Error()
		return m, nil
	case opDoneMsg:
		if msg.err != nil && !client.IsStale(msg.err) {
			m.status = "error: " + msg.err.Error()
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
		return m, nil
	case tea.KeyMsg:
		if m.confirmDel {
			return m.updateDeleteConfirm(msg.String())
		}
		switch m.mode {
		case modeAdd:
			return m.updateAddMode(msg)
		case modeSearch:
			return m.updateSearchMode(msg)
		default:
			return m.updateListMode(msg.String())
		}
	}
	return m, nil
}

func (m Model) updateAddMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		m.input.SetValue("")
		m.status = "Cancelled"
		return m, nil
	case "enter":
		content := strings.TrimSpace(m.input.Value())
		draft := domain.TaskDraft{Content: content, Priority: domain.PriorityMedium}
		if err := draft.Validate(); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.mode = modeList
		m.input.SetValue("")
		m.status = "Creating…"
		return m, m.runOp(func(ctx context.Context) error { return m.ctrl.Create(ctx, draft) })
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateSearchMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		m.input.SetValue("")
		return m, nil
	case "enter":
		m.search = m.input.Value()
		m.mode = modeList
		m.input.SetValue("")
		return m, m.refreshCmd()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	m.confirmDel = false
	if key != "enter" && key != "y" {
		m.pendingDel = nil
		m.status = "Cancelled"
		return m, nil
	}
	if m.pendingDel != nil {
		id := m.pendingDel.ID
		m.pendingDel = nil
		m.status = "Deleting…"
		return m, m.runOp(func(ctx context.Context) error { return m.ctrl.Delete(ctx, id) })
	}
	m.status = "Deleting selected…"
	return m, m.runOp(func(ctx context.Context) error { return m.ctrl.BatchDelete(ctx) })
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	sel := m.ctrl.Selection()
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "j", "down":
		m.cursor = clampCursor(m.cursor+1, len(m.tasks))
	case "k", "up":
		m.cursor = clampCursor(m.cursor-1, len(m.tasks))
	case "a":
		m.mode = modeAdd
		m.input.Placeholder = "Task content"
		m.input.Focus()
		return m, textinput.Blink
	case "/":
		m.mode = modeSearch
		m.input.Placeholder = "Search"
		m.input.SetValue(m.search)
		m.input.Focus()
		return m, textinput.Blink
	case " ":
		if t, ok := m.cursorTask(); ok {
			sel.Toggle(t.ID)
		}
	case "A":
		if sel.State(len(m.tasks)) == controller.Checked {
			sel.Clear()
		} else {
			sel.SelectAll(m.ctrl.Store().TaskIDs())
		}
	case "x":
		return m.batchOrCursorComplete(true)
	case "u":
		return m.batchOrCursorComplete(false)
	case "d":
		if t, ok := m.cursorTask(); ok {
			task := t
			m.pendingDel = &task
			m.confirmDel = true
			m.status = fmt.Sprintf("Delete %q? (y/enter to confirm)", t.Content)
		}
	case "D":
		if !sel.IsEmpty() {
			m.confirmDel = true
			m.status = fmt.Sprintf("Delete %d selected tasks? (y/enter to confirm)", sel.Count())
		}
	case "J":
		return m.move(m.cursor + 1)
	case "K":
		return m.move(m.cursor - 1)
	case "f":
		m.completedFilter = cycle(m.completedFilter, "", "false", "true")
		return m, m.refreshCmd()
	case "p":
		m.priorityFilter = cycle(m.priorityFilter, "", "high", "medium", "low")
		return m, m.refreshCmd()
	case "r":
		return m, tea.Batch(m.refreshCmd(), m.statsCmd())
	}
	return m, nil
}

func (m Model) batchOrCursorComplete(completed bool) (tea.Model, tea.Cmd) {
	if !m.ctrl.Selection().IsEmpty() {
		return m, m.runOp(func(ctx context.Context) error { return m.ctrl.BatchComplete(ctx, completed) })
	}
	if t, ok := m.cursorTask(); ok {
		id := t.ID
		return m, m.runOp(func(ctx context.Context) error { return m.ctrl.SetCompleted(ctx, id, completed) })
	}
	return m, nil
}

func (m Model) move(newIndex int) (tea.Model, tea.Cmd) {
	t, ok := m.cursorTask()
	if !ok || newIndex < 0 || newIndex >= len(m.tasks) {
		return m, nil
	}
	id := t.ID
	m.cursor = newIndex
	return m, m.runOp(func(ctx context.Context) error { return m.ctrl.MoveTask(ctx, id, newIndex) })
}

func (m Model) cursorTask() (domain.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.tasks) {
		return domain.Task{}, false
	}
	return m.tasks[m.cursor], true
}

func (m Model) View() string {
	var b strings.Builder

	stats := m.ctrl.Stats()
	b.WriteString(headerStyle.Render(fmt.Sprintf(
		"Tasks — total %d · done %d · pending %d · %.1f%%",
		stats.TotalTasks, stats.CompletedTasks, stats.PendingTasks, stats.CompletionRate,
	)))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.filterLine()))
	b.WriteString("\n\n")

	if len(m.tasks) == 0 {
		b.WriteString(statusStyle.Render("No tasks.\n"))
	}
	sel := m.ctrl.Selection()
	for i, t := range m.tasks {
		b.WriteString(m.renderTask(i, t, sel.Has(t.ID)))
		b.WriteString("\n")
	}

	if m.mode == modeAdd || m.mode == modeSearch {
		b.WriteString("\n" + m.input.View() + "\n")
	}
	if m.status != "" {
		b.WriteString("\n" + statusStyle.Render(m.status) + "\n")
	}
	return b.String()
}

func (m Model) filterLine() string {
	parts := []string{}
	if m.search != "" {
		parts = append(parts, "search: "+m.search)
	}
	if m.completedFilter != "" {
		parts = append(parts, "completed: "+m.completedFilter)
	}
	if m.priorityFilter != "" {
		parts = append(parts, "priority: "+m.priorityFilter)
	}
	if len(parts) == 0 {
		return "no filter"
	}
	return strings.Join(parts, " · ")
}

func (m Model) renderTask(i int, t domain.Task, selected bool) string {
	cursor := "  "
	if i == m.cursor {
		cursor = cursorStyle.Render("> ")
	}
	check := "[ ]"
	if selected {
		check = "[x]"
	}
	done := "·"
	if t.Completed {
		done = "✓"
	}

	content := t.Content
	if t.Completed {
		content = doneStyle.Render(content)
	}
	switch t.Priority {
	case domain.PriorityHigh:
		content = highStyle.Render("!") + " " + content
	case domain.PriorityLow:
		content = lowStyle.Render("-") + " " + content
	}

	meta := []string{categoryStyle.Render(m.ctrl.Store().CategoryName(t))}
	if t.DueDate != nil {
		meta = append(meta, "due "+t.DueDate.String())
	}
	return fmt.Sprintf("%s%s %s %s  %s", cursor, check, done, content, statusStyle.Render(strings.Join(meta, " · ")))
}

func clampCursor(cursor, length int) int {
	if length == 0 {
		return 0
	}
	if cursor < 0 {
		return 0
	}
	if cursor >= length {
		return length - 1
	}
	return cursor
}

func cycle(current string, values ...string) string {
	for i, v := range values {
		if v == current {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}
