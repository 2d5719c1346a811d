// Package suggest holds the AI suggestion dialog: a prompt input, a
// spinner while the request is in flight, and a pick list of returned
// task ideas.
package suggest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/weekplanner/internal/ai"
	"github.com/nhle/weekplanner/internal/theme"
)

const requestTimeout = 45 * time.Second

// DraftChosenMsg is dispatched when the user picks an idea to turn into
// a task. Day and Slot carry the cell the dialog was opened from.
type DraftChosenMsg struct {
	Title       string
	Description string
	Day         string
	Slot        string
}

// CloseMsg is dispatched when the user dismisses the dialog.
type CloseMsg struct{}

// resultMsg carries the suggestion response back onto the update loop.
type resultMsg struct {
	suggestion ai.Suggestion
	note       string
}

type phase int

const (
	phasePrompt phase = iota
	phaseLoading
	phasePicking
)

// Model is the Bubble Tea model for the suggestion dialog.
type Model struct {
	suggester *ai.Suggester
	input     textinput.Model
	spinner   spinner.Model

	phase      phase
	day        string
	slot       string
	suggestion ai.Suggestion
	note       string
	selected   int
	width      int
	height     int
}

// New creates a suggestion dialog backed by the given suggester.
func New(suggester *ai.Suggester, width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "What kind of tasks do you need?"
	ti.Prompt = "> "
	ti.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		suggester: suggester,
		input:     ti,
		spinner:   sp,
		width:     width,
		height:    height,
	}
}

// Start resets the dialog for the given target cell and focuses the
// prompt input.
func (m *Model) Start(day, slot string) tea.Cmd {
	m.phase = phasePrompt
	m.day = day
	m.slot = slot
	m.suggestion = ai.Suggestion{}
	m.note = ""
	m.selected = 0
	m.input.Reset()
	return tea.Batch(m.input.Focus(), textinput.Blink)
}

// Update handles messages for the suggestion dialog.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		m.phase = phasePicking
		m.suggestion = msg.suggestion
		m.note = msg.note
		m.selected = 0
		return m, nil

	case spinner.TickMsg:
		if m.phase != phaseLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.phase == phaseLoading {
			return m, nil
		}
		return m, func() tea.Msg { return CloseMsg{} }

	case "enter":
		switch m.phase {
		case phasePrompt:
			prompt := strings.TrimSpace(m.input.Value())
			if prompt == "" {
				return m, nil
			}
			m.phase = phaseLoading
			m.input.Blur()
			return m, tea.Batch(m.spinner.Tick, m.fetch(prompt))
		case phasePicking:
			if m.selected < len(m.suggestion.Tasks) {
				idea := m.suggestion.Tasks[m.selected]
				day, slot := m.day, m.slot
				return m, func() tea.Msg {
					return DraftChosenMsg{
						Title:       idea.Title,
						Description: idea.Description,
						Day:         day,
						Slot:        slot,
					}
				}
			}
		}
		return m, nil

	case "up", "k":
		if m.phase == phasePicking && m.selected > 0 {
			m.selected--
		}
		return m, nil

	case "down", "j":
		if m.phase == phasePicking && m.selected < len(m.suggestion.Tasks)-1 {
			m.selected++
		}
		return m, nil
	}

	if m.phase == phasePrompt {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// fetch returns a command that requests suggestions. When the request
// fails, canned fallback ideas are shown with a note about the failure.
func (m Model) fetch(prompt string) tea.Cmd {
	suggester := m.suggester
	day, slot := m.day, m.slot
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if !suggester.Configured() {
			return resultMsg{
				suggestion: ai.Fallback(prompt),
				note:       "No API key configured; showing generic ideas.",
			}
		}

		suggestion, err := suggester.Suggest(ctx, prompt, day, slot)
		if err != nil {
			return resultMsg{
				suggestion: ai.Fallback(prompt),
				note:       fmt.Sprintf("Suggestion request failed (%v); showing generic ideas.", err),
			}
		}
		return resultMsg{suggestion: suggestion}
	}
}

// View renders the suggestion dialog.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	var body string
	switch m.phase {
	case phasePrompt:
		body = m.input.View() + "\n\n" +
			theme.HelpStyle.Render("enter: get suggestions  esc: cancel")
	case phaseLoading:
		body = m.spinner.View() + " Thinking..."
	case phasePicking:
		body = m.renderIdeas()
	}

	target := "your week"
	if m.day != "" && m.slot != "" {
		target = fmt.Sprintf("%s %s", m.day, m.slot)
	}

	content := titleStyle.Render("Suggest tasks for "+target) + "\n" + body

	return theme.PanelStyle.
		Width(m.panelWidth()).
		Render(content)
}

func (m Model) renderIdeas() string {
	var sections []string

	if m.note != "" {
		sections = append(sections, theme.HelpStyle.Render(m.note), "")
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	selectedStyle := titleStyle.Foreground(theme.ColorBlue)
	descStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)

	for i, idea := range m.suggestion.Tasks {
		marker := "  "
		style := titleStyle
		if i == m.selected {
			marker = "> "
			style = selectedStyle
		}
		sections = append(sections, marker+style.Render(idea.Title))
		if idea.Description != "" {
			sections = append(sections, "  "+descStyle.Render(idea.Description))
		}
	}

	sections = append(sections, "",
		theme.HelpStyle.Render("enter: add as task  esc: close"))
	return strings.Join(sections, "\n")
}

// SetSize updates the dialog dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = m.panelWidth() - 8
}

func (m Model) panelWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 90 {
		w = 90
	}
	return w
}
