// Package gridview renders the 7x3 weekly grid and handles cursor
// movement and keyboard task moves. The grid owns no data; it reads the
// shared board, drag tracker, and slot settings owned by the app.
package gridview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/weekplanner/internal/keys"
	"github.com/nhle/weekplanner/internal/model"
	"github.com/nhle/weekplanner/internal/plan"
	"github.com/nhle/weekplanner/internal/theme"
)

// TaskMovedMsg is dispatched when a grab-and-drop committed a move.
type TaskMovedMsg struct {
	Task model.Task
}

// MoveRejectedMsg is dispatched when a drop landed on an occupied
// cell; the app may surface a hint.
type MoveRejectedMsg struct{}

// Model is the Bubble Tea model for the weekly grid.
type Model struct {
	board *plan.Board
	drag  *plan.Drag
	slots *plan.Slots
	keys  *keys.KeyMap

	cursorDay  int
	cursorSlot int
	width      int
	height     int
}

// New creates a grid over the shared planner state.
func New(board *plan.Board, drag *plan.Drag, slots *plan.Slots, km *keys.KeyMap) Model {
	return Model{
		board: board,
		drag:  drag,
		slots: slots,
		keys:  km,
	}
}

// Cursor returns the (day, slot) pair under the cursor.
func (m Model) Cursor() (day, slot string) {
	return model.Weekdays[m.cursorDay], model.SlotIDs[m.cursorSlot]
}

// CursorTask returns the task under the cursor, if any.
func (m Model) CursorTask() (model.Task, bool) {
	day, slot := m.Cursor()
	return m.board.TaskAt(day, slot)
}

// Dragging reports whether a task is currently grabbed.
func (m Model) Dragging() bool {
	_, ok := m.drag.Dragging()
	return ok
}

// SetSize updates the grid dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Update handles navigation and grab/drop keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Left):
		if m.cursorDay > 0 {
			m.cursorDay--
		}
	case key.Matches(keyMsg, m.keys.Right):
		if m.cursorDay < len(model.Weekdays)-1 {
			m.cursorDay++
		}
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursorSlot > 0 {
			m.cursorSlot--
		}
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursorSlot < len(model.SlotIDs)-1 {
			m.cursorSlot++
		}
	case key.Matches(keyMsg, m.keys.Grab):
		return m.handleGrab()
	case key.Matches(keyMsg, m.keys.Back):
		if m.Dragging() {
			m.drag.Cancel()
		}
	}

	if m.Dragging() {
		day, slot := m.Cursor()
		m.drag.Hover(day, slot)
	}
	return m, nil
}

// handleGrab picks up the task under the cursor, or drops the grabbed
// task onto the cursor cell. Dropping a task back onto its own cell
// releases it quietly.
func (m Model) handleGrab() (Model, tea.Cmd) {
	day, slot := m.Cursor()

	if dragged, active := m.drag.Dragging(); active {
		if dragged.Day == day && dragged.TimeSlot == slot {
			m.drag.Cancel()
			return m, nil
		}
		if m.drag.Drop(day, slot) {
			moved, _ := m.board.Get(dragged.ID)
			return m, func() tea.Msg { return TaskMovedMsg{Task: moved} }
		}
		return m, func() tea.Msg { return MoveRejectedMsg{} }
	}

	if task, ok := m.board.TaskAt(day, slot); ok {
		m.drag.Begin(task)
		m.drag.Hover(day, slot)
	}
	return m, nil
}

// View renders the grid.
func (m Model) View() string {
	cellW := m.cellWidth()
	gutterW := 14

	// Weekday header row.
	headerCells := make([]string, 0, len(model.Weekdays)+1)
	headerCells = append(headerCells, strings.Repeat(" ", gutterW))
	for _, day := range model.Weekdays {
		headerCells = append(headerCells, theme.DayHeaderStyle.Width(cellW+2).Render(day))
	}
	rows := []string{lipgloss.JoinHorizontal(lipgloss.Bottom, headerCells...)}

	dragged, dragging := m.drag.Dragging()

	for slotIdx, slotID := range model.SlotIDs {
		entry := m.slots.Get(slotID)
		gutter := lipgloss.JoinVertical(lipgloss.Left,
			theme.SlotLabelStyle.Render(truncate(entry.Name, gutterW-1)),
			theme.SlotSubtitleStyle.Render(truncate(entry.Subtitle, gutterW-1)),
		)
		gutter = lipgloss.NewStyle().Width(gutterW).Render(gutter)

		cells := []string{gutter}
		for dayIdx, day := range model.Weekdays {
			cells = append(cells, m.renderCell(day, slotID, dayIdx, slotIdx, cellW, dragged, dragging))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Center, cells...))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderCell renders one grid cell with the style matching its role in
// the current gesture.
func (m Model) renderCell(day, slotID string, dayIdx, slotIdx, cellW int, dragged model.Task, dragging bool) string {
	task, occupied := m.board.TaskAt(day, slotID)
	underCursor := dayIdx == m.cursorDay && slotIdx == m.cursorSlot

	var content string
	switch {
	case occupied && task.Completed:
		content = theme.CompletedTaskStyle.Render(truncate("✓ "+task.Title, cellW))
	case occupied:
		content = truncate(task.Title, cellW)
	default:
		content = theme.SlotSubtitleStyle.Render("·")
	}

	style := theme.CellStyle
	switch {
	case dragging && occupied && task.ID == dragged.ID:
		style = theme.DragCellStyle
	case dragging && underCursor && !occupied:
		style = theme.DropTargetStyle
	case underCursor:
		style = theme.CursorCellStyle
	}

	return style.Width(cellW).Render(content)
}

// cellWidth derives a cell width from the terminal size.
func (m Model) cellWidth() int {
	w := (m.width - 14 - len(model.Weekdays)*2) / len(model.Weekdays)
	if w < 10 {
		w = 10
	}
	if w > 22 {
		w = 22
	}
	return w
}

// truncate shortens s to fit width columns, ellipsizing when needed.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return fmt.Sprintf("%s…", string(runes[:width-1]))
}
