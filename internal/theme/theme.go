package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the application title bar.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// CellStyle is the base style for a grid cell.
var CellStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder).
	Padding(0, 1)

// CursorCellStyle highlights the cell under the cursor.
var CursorCellStyle = CellStyle.
	BorderForeground(ColorBlue).
	Bold(true)

// DragCellStyle marks the cell whose task is being moved.
var DragCellStyle = CellStyle.
	BorderForeground(ColorMagenta)

// DropTargetStyle marks a legal drop target while a task is grabbed.
var DropTargetStyle = CellStyle.
	BorderForeground(ColorGreen)

// DayHeaderStyle renders the weekday column headers.
var DayHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorBlue).
	Align(lipgloss.Center)

// SlotLabelStyle renders a slot's name in the row gutter.
var SlotLabelStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite)

// SlotSubtitleStyle renders a slot's time range under its name.
var SlotSubtitleStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// CompletedTaskStyle renders finished tasks.
var CompletedTaskStyle = lipgloss.NewStyle().
	Foreground(ColorGreen).
	Strikethrough(true)

// BannerStyle wraps the how-to-use banner.
var BannerStyle = lipgloss.NewStyle().
	Padding(0, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorYellow).
	Foreground(ColorGray)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// ErrorStyle renders error text in the status line.
var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// PanelStyle provides a standard rounded border for dialog panels.
var PanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// SyncStyle returns a color-coded style for the given save status text.
func SyncStyle(status string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch status {
	case "synced to cloud":
		return base.Foreground(ColorGreen)
	case "saved locally":
		return base.Foreground(ColorBlue)
	case "cloud unavailable, saved locally":
		return base.Foreground(ColorOrange)
	case "save failed":
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorGray)
	}
}

// SlotStyle returns a color-coded style for the given slot id.
func SlotStyle(slotID string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch slotID {
	case "Morning":
		return base.Foreground(ColorYellow)
	case "Afternoon":
		return base.Foreground(ColorOrange)
	case "Evening":
		return base.Foreground(ColorMagenta)
	default:
		return base.Foreground(ColorGray)
	}
}
