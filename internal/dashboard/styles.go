package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Dashboard palette
const (
	ColorDarkBg    = lipgloss.Color("#0A0A0F")
	ColorSurfaceBg = lipgloss.Color("#12121A")
	ColorBorder    = lipgloss.Color("#2A2A4A")

	ColorHealthy  = lipgloss.Color("#39FF14")
	ColorWarning  = lipgloss.Color("#FFAA00")
	ColorCritical = lipgloss.Color("#FF0055")

	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0")
	ColorTextMuted     = lipgloss.Color("#6B6B8D")

	ColorAccent = lipgloss.Color("#FF2E97")
	ColorGraph  = lipgloss.Color("#00FFFF")
)

// Thresholds for metric severity levels
const (
	WarningThreshold  = 70.0
	CriticalThreshold = 90.0
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorSurfaceBg).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1).
			MarginRight(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	StaleBadgeStyle = lipgloss.NewStyle().
			Foreground(ColorDarkBg).
			Background(ColorWarning).
			Bold(true).
			Padding(0, 1)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorCritical)
)

// Connection state glyphs
const (
	GlyphConnected    = "◉"
	GlyphDisconnected = "◌"
	GlyphClosed       = "○"
)

// ConnectingSpinnerFrames animate the loading and connecting states.
var ConnectingSpinnerFrames = []string{"◐", "◓", "◑", "◒"}

// MetricColor returns green below 70%, amber below 90%, red otherwise.
func MetricColor(percent float64) lipgloss.Color {
	switch {
	case percent >= CriticalThreshold:
		return ColorCritical
	case percent >= WarningThreshold:
		return ColorWarning
	default:
		return ColorHealthy
	}
}

// MetricStyle returns a style with the threshold color for percent.
func MetricStyle(percent float64) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(MetricColor(percent))
}

// ThinProgressBar renders ━ for the filled share and ─ for the rest.
func ThinProgressBar(width int, percent float64) string {
	width = max(width, 1)
	percent = min(max(percent, 0), 100)
	filled := min(int(percent/100.0*float64(width)), width)

	bar := strings.Repeat("━", filled) + strings.Repeat("─", width-filled)
	return MetricStyle(percent).Render(bar)
}

// SectionHeader renders ╭─ Title ──── Value ╮ padded to width.
func SectionHeader(title, value string, width int) string {
	width = max(width, 10)

	leftWidth := 3 + lipgloss.Width(title) + 1
	rightWidth := 1 + lipgloss.Width(value) + 2
	fillWidth := max(width-leftWidth-rightWidth, 1)

	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)
	titleStyle := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(ColorGraph).Bold(true)

	return borderStyle.Render("╭─ ") +
		titleStyle.Render(title) +
		borderStyle.Render(" "+strings.Repeat("─", fillWidth)+" ") +
		valueStyle.Render(value) +
		borderStyle.Render(" ╮")
}

// SectionFooter renders the bottom border of a section.
func SectionFooter(width int) string {
	width = max(width, 2)
	return lipgloss.NewStyle().Foreground(ColorBorder).Render("╰" + strings.Repeat("─", width-2) + "╯")
}

// SectionContentLine renders │ content │ padded to width.
func SectionContentLine(content string, width int) string {
	width = max(width, 4)
	border := lipgloss.NewStyle().Foreground(ColorBorder).Render("│")
	padding := max(width-4-lipgloss.Width(content), 0)
	return border + " " + content + strings.Repeat(" ", padding) + " " + border
}
