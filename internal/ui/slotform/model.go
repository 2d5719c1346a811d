// Package slotform holds the dialog for renaming the three time slots.
package slotform

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/weekplanner/internal/model"
	"github.com/nhle/weekplanner/internal/theme"
)

// SlotsUpdatedMsg is dispatched when the user submits new slot names.
type SlotsUpdatedMsg struct {
	Settings model.SlotSettings
}

// SlotFormCancelMsg is dispatched when the user cancels the form.
type SlotFormCancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	names     [3]string
	subtitles [3]string
}

// Model is the Bubble Tea model for the slot settings form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	width  int
	height int
}

// New creates a new slot form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start initializes the form from the current settings.
func (m *Model) Start(settings model.SlotSettings) tea.Cmd {
	for i, id := range model.SlotIDs {
		entry := settings[id]
		m.fb.names[i] = entry.Name
		m.fb.subtitles[i] = entry.Subtitle
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the slot form.
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
		return m, func() tea.Msg { return SlotFormCancelMsg{} }
	}

	return m, cmd
}

// View renders the slot form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Time Slots") + "\n" + m.form.View()

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
	var fields []huh.Field
	for i, id := range model.SlotIDs {
		fields = append(fields,
			huh.NewInput().
				Title(id+" name").
				Value(&m.fb.names[i]),
			huh.NewInput().
				Title(id+" hours").
				Placeholder("e.g. 10am - 2pm").
				Value(&m.fb.subtitles[i]),
		)
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

// handleSubmit merges the edited fields over the defaults. Blank names
// fall back to the slot's default name so a cell header never goes
// empty.
func (m Model) handleSubmit() tea.Cmd {
	settings := model.DefaultSlotSettings()
	for i, id := range model.SlotIDs {
		entry := settings[id]
		if m.fb.names[i] != "" {
			entry.Name = m.fb.names[i]
		}
		entry.Subtitle = m.fb.subtitles[i]
		settings[id] = entry
	}
	return func() tea.Msg { return SlotsUpdatedMsg{Settings: settings} }
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
