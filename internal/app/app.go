// Package app holds the root Bubble Tea model: view routing, keyboard
// dispatch, and the glue between the planner state and the sync
// orchestrator.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/weekplanner/internal/ai"
	"github.com/nhle/weekplanner/internal/auth"
	"github.com/nhle/weekplanner/internal/keys"
	"github.com/nhle/weekplanner/internal/model"
	"github.com/nhle/weekplanner/internal/persist"
	"github.com/nhle/weekplanner/internal/plan"
	appsync "github.com/nhle/weekplanner/internal/sync"
	"github.com/nhle/weekplanner/internal/theme"
	"github.com/nhle/weekplanner/internal/ui"
	"github.com/nhle/weekplanner/internal/ui/authform"
	"github.com/nhle/weekplanner/internal/ui/gridview"
	"github.com/nhle/weekplanner/internal/ui/helpview"
	"github.com/nhle/weekplanner/internal/ui/slotform"
	"github.com/nhle/weekplanner/internal/ui/suggest"
	"github.com/nhle/weekplanner/internal/ui/taskform"
)

const authTimeout = 30 * time.Second

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewGrid ViewState = iota
	ViewTaskForm
	ViewSlotForm
	ViewAuthForm
	ViewSuggest
	ViewClearConfirm
	ViewHelp
)

// bannerFlagMsg carries the persisted usage-banner preference.
type bannerFlagMsg struct {
	show bool
}

// authResultMsg carries the outcome of a sign in / sign up attempt.
type authResultMsg struct {
	identity auth.Identity
	err      error
}

// Model is the root Bubble Tea model.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	board *plan.Board
	slots *plan.Slots
	drag  *plan.Drag

	gateway *persist.Gateway
	authMgr *auth.Manager
	orch    *appsync.Orchestrator

	grid        gridview.Model
	taskForm    taskform.Model
	slotForm    slotform.Model
	authForm    authform.Model
	suggestView suggest.Model
	helpView    helpview.Model

	ready       bool
	showBanner  bool
	noticeShown bool
	statusText  string
	hint        string
}

// New creates the root application model.
func New(
	gateway *persist.Gateway,
	authMgr *auth.Manager,
	orch *appsync.Orchestrator,
	suggester *ai.Suggester,
) Model {
	km := keys.DefaultKeyMap()
	board := plan.NewBoard()
	slots := plan.NewSlots()
	drag := plan.NewDrag(board)

	return Model{
		currentView: ViewGrid,
		keys:        km,
		board:       board,
		slots:       slots,
		drag:        drag,
		gateway:     gateway,
		authMgr:     authMgr,
		orch:        orch,
		grid:        gridview.New(board, drag, slots, km),
		taskForm:    taskform.New(80, 24),
		slotForm:    slotform.New(80, 24),
		authForm:    authform.New(80, 24),
		suggestView: suggest.New(suggester, 80, 24),
		helpView:    helpview.New(km, 80, 24),
	}
}

// Init starts the sync orchestrator and loads display preferences.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.orch.Start(),
		m.loadBannerFlag(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.grid.SetSize(contentWidth, contentHeight)
		m.taskForm.SetSize(contentWidth, contentHeight)
		m.slotForm.SetSize(contentWidth, contentHeight)
		m.authForm.SetSize(contentWidth, contentHeight)
		m.suggestView.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		// Forward to the active view so huh forms can lay themselves out.
		return m.updateActiveView(msg)

	case appsync.TasksHydratedMsg:
		m.board.Replace(msg.Tasks)
		return m, m.orch.WaitForEvent()

	case appsync.SettingsHydratedMsg:
		m.slots.Replace(msg.Settings)
		m.taskForm.SetSlotSettings(m.slots.Snapshot())
		return m, m.orch.WaitForEvent()

	case appsync.HydrationDoneMsg:
		if msg.State == appsync.StateAuthenticated {
			m.statusText = "synced to cloud"
		} else if !m.authMgr.Configured() && !m.noticeShown {
			m.hint = "Running local only. Configure a cloud backend to sync across devices."
			m.noticeShown = true
		}
		return m, m.orch.WaitForEvent()

	case appsync.SaveResultMsg:
		m.statusText = msg.Status
		return m, m.orch.WaitForEvent()

	case bannerFlagMsg:
		m.showBanner = msg.show
		return m, nil

	case gridview.TaskMovedMsg:
		return m, m.persistTasks()

	case gridview.MoveRejectedMsg:
		m.hint = "That slot is taken."
		return m, nil

	case taskform.TaskCreatedMsg:
		m.board.Create(msg.Task)
		m.currentView = ViewGrid
		return m, m.persistTasks()

	case taskform.TaskUpdatedMsg:
		m.board.Update(msg.Task.ID, msg.Task)
		m.currentView = ViewGrid
		return m, m.persistTasks()

	case taskform.TaskFormCancelMsg:
		m.currentView = ViewGrid
		return m, nil

	case slotform.SlotsUpdatedMsg:
		m.slots.Replace(msg.Settings)
		m.taskForm.SetSlotSettings(m.slots.Snapshot())
		m.currentView = ViewGrid
		m.orch.SaveSettings(m.slots.Snapshot())
		return m, nil

	case slotform.SlotFormCancelMsg:
		m.currentView = ViewGrid
		return m, nil

	case authform.SubmitMsg:
		return m, m.authenticate(msg)

	case authform.CancelMsg:
		m.currentView = ViewGrid
		return m, nil

	case authResultMsg:
		return m.handleAuthResult(msg)

	case suggest.DraftChosenMsg:
		m.currentView = ViewTaskForm
		return m, m.taskForm.StartCreateDraft(
			msg.Title, msg.Description, msg.Day, msg.Slot)

	case suggest.CloseMsg:
		m.currentView = ViewGrid
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.orch.Stop()
			return m, tea.Quit
		}
		if m.currentView == ViewGrid {
			if handled, mm, cmd := m.handleGridKey(msg); handled {
				return mm, cmd
			}
		}
		if m.currentView == ViewClearConfirm {
			return m.handleClearConfirmKey(msg)
		}
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil
		}
	}

	return m.updateActiveView(msg)
}

// handleGridKey processes grid-level action keys. Navigation and
// grab/drop keys fall through to the grid model.
func (m Model) handleGridKey(msg tea.KeyMsg) (bool, Model, tea.Cmd) {
	dragging := m.grid.Dragging()

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.orch.Stop()
		return true, m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return true, m, nil

	case key.Matches(msg, m.keys.New):
		day, slot := m.grid.Cursor()
		if _, occupied := m.grid.CursorTask(); occupied {
			day, slot = "", ""
		}
		m.previousView = m.currentView
		m.currentView = ViewTaskForm
		return true, m, m.taskForm.StartCreate(day, slot)

	case key.Matches(msg, m.keys.Edit), key.Matches(msg, m.keys.Select):
		if dragging {
			break
		}
		task, ok := m.grid.CursorTask()
		if !ok {
			if key.Matches(msg, m.keys.Select) {
				day, slot := m.grid.Cursor()
				m.currentView = ViewTaskForm
				return true, m, m.taskForm.StartCreate(day, slot)
			}
			return true, m, nil
		}
		m.currentView = ViewTaskForm
		return true, m, m.taskForm.StartEdit(task)

	case key.Matches(msg, m.keys.Delete):
		if task, ok := m.grid.CursorTask(); ok {
			m.board.Delete(task.ID)
			return true, m, m.persistTasks()
		}
		return true, m, nil

	case key.Matches(msg, m.keys.Toggle):
		if task, ok := m.grid.CursorTask(); ok {
			task.Completed = !task.Completed
			m.board.Update(task.ID, task)
			return true, m, m.persistTasks()
		}
		return true, m, nil

	case key.Matches(msg, m.keys.ClearAll):
		if m.board.Len() == 0 {
			return true, m, nil
		}
		m.currentView = ViewClearConfirm
		return true, m, nil

	case key.Matches(msg, m.keys.Slots):
		m.currentView = ViewSlotForm
		return true, m, m.slotForm.Start(m.slots.Snapshot())

	case key.Matches(msg, m.keys.Suggest):
		day, slot := m.grid.Cursor()
		m.currentView = ViewSuggest
		return true, m, m.suggestView.Start(day, slot)

	case key.Matches(msg, m.keys.Sample):
		m.board.Replace(model.SampleTasks())
		m.hint = "Loaded the sample week."
		return true, m, m.persistTasks()

	case key.Matches(msg, m.keys.HowTo):
		m.showBanner = !m.showBanner
		return true, m, m.saveBannerFlag(m.showBanner)

	case key.Matches(msg, m.keys.Account):
		nm, cmd := m.handleAccountKey()
		return true, nm, cmd
	}

	return false, m, nil
}

// handleAccountKey opens the account form, or signs out when a session
// is active.
func (m Model) handleAccountKey() (Model, tea.Cmd) {
	if !m.authMgr.Configured() {
		m.hint = "No cloud backend configured. Edit the config file to enable sync."
		return m, nil
	}

	if _, signedIn := m.authMgr.Current(); signedIn {
		m.authMgr.SignOut()
		m.orch.SignedOut()
		m.statusText = ""
		m.hint = "Signed out. Your tasks stay on this machine."
		return m, nil
	}

	m.currentView = ViewAuthForm
	return m, m.authForm.Start("")
}

// handleClearConfirmKey resolves the clear-all confirmation prompt.
func (m Model) handleClearConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "y":
		m.board.ClearAll()
		m.currentView = ViewGrid
		return m, m.persistTasks()
	case "esc", "n":
		m.currentView = ViewGrid
		return m, nil
	}
	return m, nil
}

// authenticate runs the sign in / sign up request off the update loop.
func (m Model) authenticate(msg authform.SubmitMsg) tea.Cmd {
	mgr := m.authMgr
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		defer cancel()

		var (
			id  auth.Identity
			err error
		)
		if msg.Mode == authform.ModeSignUp {
			id, err = mgr.SignUp(ctx, msg.Email, msg.Password)
		} else {
			id, err = mgr.SignIn(ctx, msg.Email, msg.Password)
		}
		return authResultMsg{identity: id, err: err}
	}
}

// handleAuthResult adopts a new session or re-opens the account form
// with the failure message.
func (m Model) handleAuthResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		problem := msg.err.Error()
		var authErr *auth.Error
		if errors.As(msg.err, &authErr) {
			problem = authErr.Message
		}
		m.currentView = ViewAuthForm
		return m, m.authForm.Start(problem)
	}

	m.currentView = ViewGrid
	m.hint = fmt.Sprintf("Signed in as %s.", msg.identity.Email)
	m.orch.SignedIn()
	return m, nil
}

// persistTasks queues a task save from the current board contents.
func (m Model) persistTasks() tea.Cmd {
	m.orch.SaveTasks(m.board.Snapshot())
	return nil
}

// loadBannerFlag reads the usage-banner preference from local storage.
func (m Model) loadBannerFlag() tea.Cmd {
	g := m.gateway
	return func() tea.Msg {
		show := g.LoadFlag(context.Background(), persist.FlagShowHowToUse, true)
		return bannerFlagMsg{show: show}
	}
}

// saveBannerFlag persists the usage-banner preference.
func (m Model) saveBannerFlag(show bool) tea.Cmd {
	g := m.gateway
	return func() tea.Msg {
		_ = g.SaveFlag(context.Background(), persist.FlagShowHowToUse, show)
		return nil
	}
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewGrid:
		m.grid, cmd = m.grid.Update(msg)
	case ViewTaskForm:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewSlotForm:
		m.slotForm, cmd = m.slotForm.Update(msg)
	case ViewAuthForm:
		m.authForm, cmd = m.authForm.Update(msg)
	case ViewSuggest:
		m.suggestView, cmd = m.suggestView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Weekly Planner", m.headerStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewGrid:
		return m.renderGrid()
	case ViewTaskForm:
		return m.taskForm.View()
	case ViewSlotForm:
		return m.slotForm.View()
	case ViewAuthForm:
		return m.authForm.View()
	case ViewSuggest:
		return m.suggestView.View()
	case ViewClearConfirm:
		return m.renderClearConfirm()
	case ViewHelp:
		return m.helpView.View()
	default:
		return ""
	}
}

// renderGrid composes the banner, the grid, and the stats line.
func (m Model) renderGrid() string {
	sections := make([]string, 0, 4)

	if m.showBanner {
		sections = append(sections, theme.BannerStyle.Render(howToUseText))
	}

	sections = append(sections, m.grid.View())

	stats := m.board.Stats()
	statsLine := fmt.Sprintf("%d tasks, %d done", stats.Total, stats.Completed)
	if stats.Total > 0 {
		statsLine += fmt.Sprintf(" (%d%%)", 100*stats.Completed/stats.Total)
	}
	if m.statusText != "" {
		statsLine += "  " + theme.SyncStyle(m.statusText).Render(m.statusText)
	}
	sections = append(sections, theme.HelpStyle.Render(statsLine))

	if m.hint != "" {
		sections = append(sections, theme.HelpStyle.Render(m.hint))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderClearConfirm renders the destructive-action prompt.
func (m Model) renderClearConfirm() string {
	stats := m.board.Stats()
	text := fmt.Sprintf(
		"Delete all %d tasks? This cannot be undone.\n\nenter/y: delete everything   esc/n: keep my tasks",
		stats.Total,
	)
	return theme.PanelStyle.
		BorderForeground(theme.ColorRed).
		Render(text)
}

// headerStatus describes the account state for the header's right side.
func (m Model) headerStatus() string {
	if id, ok := m.authMgr.Current(); ok {
		if m.orch.State() == appsync.StateHydrating {
			return id.Email + " (loading...)"
		}
		return id.Email
	}
	if m.orch.State() == appsync.StateHydrating {
		return "loading..."
	}
	return "offline"
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewTaskForm, ViewSlotForm, ViewAuthForm:
		return "enter submit | esc cancel"
	case ViewSuggest:
		return "enter select | j/k move | esc close"
	case ViewClearConfirm:
		return "enter/y confirm | esc/n cancel"
	case ViewHelp:
		return "press any key to close"
	default:
		if m.grid.Dragging() {
			return "h/j/k/l move | space drop | esc cancel move"
		}
		return "q quit | ? help | n new | space move | g suggest | a account"
	}
}

// howToUseText matches the collapsible usage banner shown above the grid.
const howToUseText = "Move with h/j/k/l. Press space to pick up a task, " +
	"move to an empty cell, and space again to drop it. " +
	"n creates a task, e edits, x marks done. Press u to hide this banner."
