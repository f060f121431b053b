package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille patterns use a 2x4 dot matrix per character:
//
//	        Col 0  Col 1
//	Row 0:   ⠁      ⠈     (dots 1, 4)
//	Row 1:   ⠂      ⠐     (dots 2, 5)
//	Row 2:   ⠄      ⠠     (dots 3, 6)
//	Row 3:   ⡀      ⢀     (dots 7, 8)
//
// U+2800 is the empty pattern; dot n sets bit n-1.

const brailleBase = '⠀'

// sparklineBlocks are the 8 vertical levels, lowest first.
var sparklineBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// brailleDots maps [row][col] to the bit offset inside a braille rune.
var brailleDots = [4][2]uint8{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

// percentScale maps a percentage onto 0..1. Out-of-range values are
// clamped here so accepted outliers still draw inside the graph.
func percentScale(v float64) float64 {
	return min(max(v/100.0, 0), 1)
}

// RenderBrailleGraph plots percentage data as a braille area graph. Each
// character holds two samples and four vertical levels. Short series are
// right-aligned so the newest sample is always at the right edge; long ones
// are downsampled keeping peaks. Each column is colored by its highest
// sample.
func RenderBrailleGraph(data []float64, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	totalDots := height * 4
	targetPoints := width * 2

	resampled := data
	if len(data) > targetPoints {
		resampled = resampleData(data, targetPoints)
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = make([]rune, width)
		for j := range grid[i] {
			grid[i][j] = brailleBase
		}
	}
	colMax := make([]float64, width)
	colUsed := make([]bool, width)

	offset := max(targetPoints-len(resampled), 0)
	for i, val := range resampled {
		charCol := (i + offset) / 2
		if charCol >= width {
			continue
		}
		if !colUsed[charCol] || val > colMax[charCol] {
			colMax[charCol] = val
			colUsed[charCol] = true
		}

		subCol := (i + offset) % 2
		dotHeight := min(int(percentScale(val)*float64(totalDots)), totalDots)
		for dot := range dotHeight {
			row := height - 1 - dot/4
			subRow := 3 - dot%4
			grid[row][charCol] |= rune(1 << brailleDots[subRow][subCol])
		}
	}

	lines := make([]string, 0, height)
	for _, row := range grid {
		var b strings.Builder
		for col, char := range row {
			color := ColorTextMuted
			if colUsed[col] {
				color = MetricColor(colMax[col])
			}
			b.WriteString(lipgloss.NewStyle().Foreground(color).Render(string(char)))
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// RenderMiniSparkline renders one row of block characters on a fixed 0-100
// scale, colored by the newest value.
func RenderMiniSparkline(data []float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}

	points := data
	if len(data) > width {
		points = resampleData(data, width)
	}

	var b strings.Builder
	top := len(sparklineBlocks) - 1
	for _, val := range points {
		idx := min(int(percentScale(val)*float64(top)), top)
		b.WriteRune(sparklineBlocks[idx])
	}
	return MetricStyle(data[len(data)-1]).Render(b.String())
}

// resampleData resizes data to targetSize. Downsampling keeps the max of
// each bucket so spikes survive; upsampling interpolates linearly.
func resampleData(data []float64, targetSize int) []float64 {
	if len(data) == 0 || targetSize <= 0 {
		return nil
	}
	if len(data) == targetSize {
		return data
	}

	result := make([]float64, targetSize)
	if len(data) == 1 {
		for i := range result {
			result[i] = data[0]
		}
		return result
	}

	if len(data) > targetSize {
		bucket := float64(len(data)) / float64(targetSize)
		for i := range targetSize {
			start := int(float64(i) * bucket)
			end := min(int(float64(i+1)*bucket), len(data))
			if start >= end {
				start = max(end-1, 0)
			}
			peak := data[start]
			for _, v := range data[start+1 : end] {
				peak = max(peak, v)
			}
			result[i] = peak
		}
		return result
	}

	if targetSize == 1 {
		result[0] = data[len(data)-1]
		return result
	}
	scale := float64(len(data)-1) / float64(targetSize-1)
	for i := range targetSize {
		pos := float64(i) * scale
		idx := int(pos)
		if idx >= len(data)-1 {
			result[i] = data[len(data)-1]
			continue
		}
		frac := pos - float64(idx)
		result[i] = data[idx]*(1-frac) + data[idx+1]*frac
	}
	return result
}
