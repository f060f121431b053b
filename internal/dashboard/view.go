package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/stylesync/internal/stream"
)

// LoadingText is shown until the first snapshot arrives.
const LoadingText = "Loading..."

// StaleText labels values kept from a dropped connection.
const StaleText = "STALE"

const defaultWidth = 100

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if m.Loading() {
		b.WriteString(m.renderLoading())
	} else {
		b.WriteString(m.renderCPUSection())
		b.WriteString("\n")
		b.WriteString(m.renderCards())
	}

	if m.ShowFooter() {
		b.WriteString("\n")
		b.WriteString(m.renderFooter())
	}
	return b.String()
}

func (m Model) contentWidth() int {
	if m.width == 0 {
		return defaultWidth
	}
	return m.width
}

// renderHeader shows the endpoint, the connection state and the age of the
// newest snapshot.
func (m Model) renderHeader() string {
	title := lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Render("stylesync")

	parts := []string{title, m.renderConnState()}
	if m.LayoutMode() != LayoutMinimal {
		parts = append(parts, LabelStyle.Render(m.url))
	}
	parts = append(parts, LabelStyle.Render("last update "+m.updateText()))

	if m.status.DecodeErrors > 0 {
		parts = append(parts, ErrorTextStyle.Render(fmt.Sprintf("%d bad frames", m.status.DecodeErrors)))
	}

	header := strings.Join(parts, MutedStyle.Render(" | "))
	if m.Stale() {
		header += " " + StaleBadgeStyle.Render(StaleText)
	}
	return HeaderStyle.Render(header)
}

func (m Model) renderConnState() string {
	if m.events == nil {
		return ""
	}
	st := m.status
	switch st.State {
	case stream.StateConnected:
		return lipgloss.NewStyle().Foreground(ColorHealthy).Render(GlyphConnected + " connected")
	case stream.StateConnecting:
		return m.spinner.View() + LabelStyle.Render(" connecting")
	case stream.StateClosed:
		return MutedStyle.Render(GlyphClosed + " closed")
	default:
		text := GlyphDisconnected + " disconnected"
		if st.Reconnecting {
			text += fmt.Sprintf(" (retry %d in %s)", st.Attempt, st.RetryIn)
		}
		return ErrorTextStyle.Render(text)
	}
}

func (m Model) updateText() string {
	switch secs := m.SecondsSinceUpdate(); {
	case secs < 0:
		return "never"
	case secs == 0:
		return "just now"
	default:
		return fmt.Sprintf("%ds ago", secs)
	}
}

func (m Model) renderLoading() string {
	lines := []string{m.spinner.View() + " " + ValueStyle.Render(LoadingText)}
	if m.events != nil && m.status.LastError != nil {
		lines = append(lines, ErrorTextStyle.Render(m.status.LastError.Error()))
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
}

// renderCPUSection draws the braille CPU graph with the first and last
// window labels under it.
func (m Model) renderCPUSection() string {
	width := m.contentWidth()
	cpu := m.state.Current.CPUPercent
	value := MetricStyle(cpu).Render(fmt.Sprintf("%.1f%%", cpu))

	lines := []string{SectionHeader("CPU", value, width)}
	if m.LayoutMode() == LayoutMinimal {
		lines = append(lines, SectionContentLine(ThinProgressBar(width-4, cpu), width))
		lines = append(lines, SectionFooter(width))
		return strings.Join(lines, "\n")
	}

	graphWidth := width - 4
	graph := RenderBrailleGraph(m.state.CPUSeries, graphWidth, m.GraphHeight())
	for _, row := range strings.Split(graph, "\n") {
		lines = append(lines, SectionContentLine(row, width))
	}
	lines = append(lines, SectionContentLine(axisLabels(m.state.LabelSeries, graphWidth), width))
	lines = append(lines, SectionFooter(width))
	return strings.Join(lines, "\n")
}

// axisLabels places the oldest label on the left and the newest on the
// right of a width-wide line.
func axisLabels(labels []string, width int) string {
	if len(labels) == 0 {
		return ""
	}
	first, last := labels[0], labels[len(labels)-1]
	if len(labels) == 1 {
		pad := max(width-lipgloss.Width(last), 0)
		return MutedStyle.Render(strings.Repeat(" ", pad) + last)
	}
	pad := max(width-lipgloss.Width(first)-lipgloss.Width(last), 1)
	return MutedStyle.Render(first + strings.Repeat(" ", pad) + last)
}

// renderCards renders the memory and disk cards side by side when there is
// room, stacked otherwise.
func (m Model) renderCards() string {
	width := m.contentWidth()
	cur := m.state.Current

	cardWidth := width - 4
	if m.LayoutMode() >= LayoutStandard {
		cardWidth = (width - 6) / 2
	}

	memory := m.renderCard("Memory", cur.Memory.Percent,
		fmt.Sprintf("%s available of %s", formatGB(cur.Memory.AvailableBytes), formatGB(cur.Memory.TotalBytes)),
		m.state.MemorySeries, cardWidth)
	disk := m.renderCard("Disk", cur.Disk.Percent,
		fmt.Sprintf("%s free of %s", formatGB(cur.Disk.FreeBytes), formatGB(cur.Disk.TotalBytes)),
		m.state.DiskSeries, cardWidth)

	if m.LayoutMode() >= LayoutStandard {
		return lipgloss.JoinHorizontal(lipgloss.Top, memory, disk)
	}
	return lipgloss.JoinVertical(lipgloss.Left, memory, disk)
}

func (m Model) renderCard(title string, percent float64, detail string, series []float64, width int) string {
	inner := max(width-4, 10)

	heading := LabelStyle.Render(title) + " " + MetricStyle(percent).Bold(true).Render(fmt.Sprintf("%.1f%%", percent))
	lines := []string{
		heading,
		ThinProgressBar(inner, percent),
		MutedStyle.Render(detail),
	}
	if m.LayoutMode() != LayoutMinimal {
		lines = append(lines, RenderMiniSparkline(series, inner))
	}
	return CardStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) renderFooter() string {
	hints := []string{"q quit", "c clear", "? help"}
	return FooterStyle.Render(strings.Join(hints, " | "))
}

// formatGB formats a byte count in gigabytes (1024^3) with one decimal.
func formatGB(bytes uint64) string {
	return fmt.Sprintf("%.1f GB", float64(bytes)/(1<<30))
}
