package dashboard

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Plain output so assertions can match rendered text
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestMetricColor(t *testing.T) {
	tests := []struct {
		percent float64
		want    lipgloss.Color
	}{
		{0, ColorHealthy},
		{69.9, ColorHealthy},
		{70, ColorWarning},
		{89.9, ColorWarning},
		{90, ColorCritical},
		{150, ColorCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MetricColor(tt.percent), "percent %v", tt.percent)
	}
}

func TestRenderBrailleGraph(t *testing.T) {
	t.Run("empty input renders nothing", func(t *testing.T) {
		assert.Empty(t, RenderBrailleGraph(nil, 10, 3))
		assert.Empty(t, RenderBrailleGraph([]float64{50}, 0, 3))
		assert.Empty(t, RenderBrailleGraph([]float64{50}, 10, 0))
	})

	t.Run("one row per height", func(t *testing.T) {
		out := RenderBrailleGraph([]float64{10, 20, 30}, 10, 4)
		lines := strings.Split(out, "\n")
		require.Len(t, lines, 4)
		for _, line := range lines {
			assert.Equal(t, 10, lipgloss.Width(line))
		}
	})

	t.Run("full values fill the newest column", func(t *testing.T) {
		out := RenderBrailleGraph([]float64{100, 100}, 5, 2)
		lines := strings.Split(out, "\n")
		require.Len(t, lines, 2)
		for _, line := range lines {
			runes := []rune(line)
			assert.Equal(t, '⣿', runes[len(runes)-1])
			assert.Equal(t, brailleBase, runes[0], "short series is right-aligned")
		}
	})

	t.Run("out of range values stay inside the graph", func(t *testing.T) {
		out := RenderBrailleGraph([]float64{-20, 250}, 1, 1)
		assert.Equal(t, "⢸", out)
	})

	t.Run("zero draws an empty column", func(t *testing.T) {
		out := RenderBrailleGraph([]float64{0, 0}, 1, 1)
		assert.Equal(t, string(brailleBase), out)
	})
}

func TestRenderMiniSparkline(t *testing.T) {
	assert.Empty(t, RenderMiniSparkline(nil, 5))
	assert.Empty(t, RenderMiniSparkline([]float64{1}, 0))

	out := RenderMiniSparkline([]float64{0, 50, 100}, 10)
	assert.Equal(t, "▁▄█", out, "short series is not stretched")

	out = RenderMiniSparkline([]float64{0, 100, 0, 100}, 2)
	assert.Equal(t, "██", out, "downsampling keeps peaks")
}

func TestResampleData(t *testing.T) {
	tests := []struct {
		name   string
		data   []float64
		target int
		want   []float64
	}{
		{"empty", nil, 3, nil},
		{"zero target", []float64{1}, 0, nil},
		{"same size", []float64{1, 2}, 2, []float64{1, 2}},
		{"single value fills", []float64{7}, 3, []float64{7, 7, 7}},
		{"downsample keeps max", []float64{1, 9, 2, 3}, 2, []float64{9, 3}},
		{"upsample interpolates", []float64{0, 10}, 3, []float64{0, 5, 10}},
		{"upsample to one keeps newest", []float64{1, 2}, 1, []float64{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resampleData(tt.data, tt.target))
		})
	}
}

func TestThinProgressBar(t *testing.T) {
	assert.Equal(t, "━━━━━─────", ThinProgressBar(10, 50))
	assert.Equal(t, "──────────", ThinProgressBar(10, -5))
	assert.Equal(t, "━━━━━━━━━━", ThinProgressBar(10, 140))
	assert.Equal(t, "─", ThinProgressBar(0, 10))
}

func TestSectionLines(t *testing.T) {
	header := SectionHeader("CPU", "42.5%", 40)
	assert.Equal(t, 40, lipgloss.Width(header))
	assert.Contains(t, header, "CPU")
	assert.Contains(t, header, "42.5%")

	assert.Equal(t, 40, lipgloss.Width(SectionFooter(40)))

	line := SectionContentLine("hello", 40)
	assert.Equal(t, 40, lipgloss.Width(line))
	assert.True(t, strings.HasPrefix(line, "│ hello"))
}
