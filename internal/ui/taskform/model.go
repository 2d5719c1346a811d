// Package taskform holds the create/edit dialog for a single task.
package taskform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/weekplanner/internal/model"
	"github.com/nhle/weekplanner/internal/theme"
)

// TaskCreatedMsg is dispatched when a new task is created via the form.
type TaskCreatedMsg struct {
	Task model.Task
}

// TaskUpdatedMsg is dispatched when an existing task is updated via the form.
type TaskUpdatedMsg struct {
	Task model.Task
}

// TaskFormCancelMsg is dispatched when the user cancels the form.
type TaskFormCancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	day         string
	slot        string
	completed   bool
}

// Model is the Bubble Tea model for the task create/edit form.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	slots    model.SlotSettings
	editMode bool
	editing  model.Task
	width    int
	height   int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// SetSlotSettings supplies the current slot names for the slot selector.
func (m *Model) SetSlotSettings(slots model.SlotSettings) {
	m.slots = slots
}

// StartCreate initializes the form for a new task aimed at (day, slot).
// Either may be empty for an unplaced task.
func (m *Model) StartCreate(day, slot string) tea.Cmd {
	m.editMode = false
	m.editing = model.Task{}
	m.fb.title = ""
	m.fb.description = ""
	m.fb.day = day
	m.fb.slot = slot
	m.fb.completed = false
	m.form = m.buildForm()
	return m.form.Init()
}

// StartCreateDraft initializes the form prefilled from a suggestion.
func (m *Model) StartCreateDraft(title, description, day, slot string) tea.Cmd {
	m.editMode = false
	m.editing = model.Task{}
	m.fb.title = title
	m.fb.description = description
	m.fb.day = day
	m.fb.slot = slot
	m.fb.completed = false
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form for editing an existing task.
func (m *Model) StartEdit(task model.Task) tea.Cmd {
	m.editMode = true
	m.editing = task
	m.fb.title = task.Title
	m.fb.description = task.Description
	m.fb.day = task.Day
	m.fb.slot = task.TimeSlot
	m.fb.completed = task.Completed
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return TaskFormCancelMsg{} }
	}

	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.editMode {
		titleText = "Edit Task"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("What needs to be done?").
			Value(&m.fb.title).
			Validate(validateRequired("Title")),
		huh.NewText().
			Title("Description").
			Placeholder("Optional details...").
			Value(&m.fb.description),
		m.dayField(),
		m.slotField(),
	}
	if m.editMode {
		fields = append(fields,
			huh.NewConfirm().
				Title("Completed").
				Value(&m.fb.completed),
		)
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) dayField() huh.Field {
	opts := []huh.Option[string]{
		huh.NewOption("Unscheduled", ""),
	}
	for _, day := range model.Weekdays {
		opts = append(opts, huh.NewOption(day, day))
	}
	return huh.NewSelect[string]().
		Title("Day").
		Options(opts...).
		Value(&m.fb.day)
}

func (m *Model) slotField() huh.Field {
	opts := []huh.Option[string]{
		huh.NewOption("Unscheduled", ""),
	}
	for _, id := range model.SlotIDs {
		label := id
		if entry, ok := m.slots[id]; ok && entry.Name != "" {
			label = fmt.Sprintf("%s (%s)", entry.Name, entry.Subtitle)
		}
		opts = append(opts, huh.NewOption(label, id))
	}
	return huh.NewSelect[string]().
		Title("Time Slot").
		Options(opts...).
		Value(&m.fb.slot)
}

func (m Model) handleSubmit() tea.Cmd {
	task := model.Task{
		Title:       strings.TrimSpace(m.fb.title),
		Description: strings.TrimSpace(m.fb.description),
		Day:         m.fb.day,
		TimeSlot:    m.fb.slot,
		Completed:   m.fb.completed,
	}

	if m.editMode {
		task.ID = m.editing.ID
		task.CreatedAt = m.editing.CreatedAt
		return func() tea.Msg { return TaskUpdatedMsg{Task: task} }
	}
	return func() tea.Msg { return TaskCreatedMsg{Task: task} }
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
