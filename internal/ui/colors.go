package ui

import "github.com/charmbracelet/lipgloss"

// Semantic colors as ANSI codes for broad terminal compatibility
const (
	ColorSuccess lipgloss.Color = "2"
	ColorError   lipgloss.Color = "1"
	ColorWarning lipgloss.Color = "3"
	ColorInfo    lipgloss.Color = "6"
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7"
	ColorSecondary lipgloss.Color = "4"
	ColorMuted     lipgloss.Color = "8"
)

// Accent colors shared with the dashboard palette
const (
	ColorNeonPink lipgloss.Color = "#FF2E97"
	ColorNeonCyan lipgloss.Color = "#00FFFF"
)

// GradientColors cycle through the spinner frames.
var GradientColors = []lipgloss.Color{
	ColorNeonPink,
	lipgloss.Color("#BF40FF"),
	ColorNeonCyan,
	lipgloss.Color("#39FF14"),
}
