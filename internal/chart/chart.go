// Package chart provides sparkline rendering with colour-coded temperature
// bands, visible gaps for missing samples, a timeline with minute labels
// and a range scale bar.
package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/iothub/internal/fleet"
	"github.com/luki/iothub/internal/history"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

const (
	padGlyph  = '╌' // before the first sample
	gapGlyph  = '·' // device offline at that tick
	tickGlyph = '╵' // minute boundary, timeline only
)

var (
	colorCold    = lipgloss.Color("39")  // blue
	colorComfort = lipgloss.Color("78")  // soft green
	colorWarm    = lipgloss.Color("208") // orange
	colorOnline  = lipgloss.Color("78")
	colorOffline = lipgloss.Color("196")
	colorPad     = lipgloss.Color("236")
	colorGap     = lipgloss.Color("240")
	colorTick    = lipgloss.Color("239")
)

// TempColor returns the colour of a temperature's display band.
func TempColor(temp float64) lipgloss.Color {
	switch fleet.Band(temp) {
	case fleet.Cold:
		return colorCold
	case fleet.Warm:
		return colorWarm
	default:
		return colorComfort
	}
}

// StatusColor returns the colour of a connectivity state.
func StatusColor(s fleet.Status) lipgloss.Color {
	if s == fleet.Online {
		return colorOnline
	}
	return colorOffline
}

func isMinuteTick(values []history.Value, i int) bool {
	v := values[i]
	if v.Time.IsZero() {
		return false
	}
	if v.Time.Second() == 0 {
		return true
	}
	if i > 0 && !values[i-1].Time.IsZero() {
		return v.Time.Minute() != values[i-1].Time.Minute()
	}
	return false
}

// RenderSparkline renders one device column, one cell per row. Missing
// samples are drawn as a gap glyph so they never read as a low
// temperature. Minute boundaries belong to RenderTimeline; every cell here
// is a sample or a gap.
func RenderSparkline(values []history.Value, width int, rangeMin, rangeMax float64) string {
	if width <= 0 {
		return ""
	}

	pad := lipgloss.NewStyle().Foreground(colorPad)
	if len(values) == 0 {
		return pad.Render(strings.Repeat(string(padGlyph), width))
	}

	if len(values) > width {
		values = values[len(values)-width:]
	}

	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder
	for i := 0; i < width-len(values); i++ {
		sb.WriteString(pad.Render(string(padGlyph)))
	}

	gapStyle := lipgloss.NewStyle().Foreground(colorGap)

	for _, v := range values {
		switch {
		case !v.HasTemp:
			sb.WriteString(gapStyle.Render(string(gapGlyph)))
		default:
			norm := (v.Temp - rangeMin) / span
			norm = math.Max(0, math.Min(1, norm))
			idx := int(norm * 7)
			if idx > 7 {
				idx = 7
			}
			style := lipgloss.NewStyle().Foreground(TempColor(v.Temp))
			sb.WriteString(style.Render(string(sparkBlocks[idx])))
		}
	}

	return sb.String()
}

// RenderTimeline renders the line under a sparkline: a tick glyph in the
// column of each minute boundary and, where room allows, its HH:MM label
// right after it, or right before it near the right edge.
func RenderTimeline(values []history.Value, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	if len(values) > width {
		values = values[len(values)-width:]
	}

	padLen := width - len(values)

	line := make([]rune, width)
	for i := range line {
		line[i] = ' '
	}

	type tick struct {
		pos   int
		label string
	}
	var ticks []tick
	for i, v := range values {
		if isMinuteTick(values, i) {
			ticks = append(ticks, tick{pos: padLen + i, label: v.Time.Format("15:04")})
		}
	}

	lastEnd := -1
	for _, t := range ticks {
		if t.pos <= lastEnd {
			continue
		}
		line[t.pos] = tickGlyph
		prevEnd := lastEnd
		lastEnd = t.pos

		start := t.pos + 1
		if start+len(t.label) > width {
			start = t.pos - len(t.label)
			if start <= prevEnd {
				continue
			}
		}
		for j, ch := range t.label {
			line[start+j] = ch
		}
		if end := start + len(t.label) - 1; end > lastEnd {
			lastEnd = end
		}
	}

	return lipgloss.NewStyle().Foreground(colorTick).Render(string(line))
}

// RenderRangeScale renders a bar showing where current sits between the
// clamp bounds, with markers at the cold and warm band edges.
func RenderRangeScale(current, rangeMin, rangeMax float64, width int) string {
	if width <= 0 {
		return ""
	}

	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}

	posOf := func(v float64) int {
		p := int(float64(width-1) * (v - rangeMin) / span)
		if p < 0 {
			return 0
		}
		if p >= width {
			return width - 1
		}
		return p
	}

	coldPos := posOf(18)
	warmPos := posOf(25)
	curPos := posOf(current)

	var sb strings.Builder
	for i := 0; i < width; i++ {
		switch i {
		case curPos:
			style := lipgloss.NewStyle().Foreground(TempColor(current)).Bold(true)
			sb.WriteString(style.Render("◆"))
		case coldPos:
			sb.WriteString(lipgloss.NewStyle().Foreground(colorCold).Render("▪"))
		case warmPos:
			sb.WriteString(lipgloss.NewStyle().Foreground(colorWarm).Render("▪"))
		default:
			sb.WriteString(lipgloss.NewStyle().Foreground(colorPad).Render("·"))
		}
	}

	return sb.String()
}

// RenderTempValue renders the temperature value with colour coding.
func RenderTempValue(temp float64) string {
	s := fmt.Sprintf("%5.1f°C", temp)
	return lipgloss.NewStyle().Foreground(TempColor(temp)).Render(s)
}

// RenderStatus renders a connectivity state in upper case.
func RenderStatus(s fleet.Status) string {
	return lipgloss.NewStyle().
		Foreground(StatusColor(s)).
		Bold(true).
		Render(strings.ToUpper(string(s)))
}
