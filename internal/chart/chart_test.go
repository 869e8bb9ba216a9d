package chart

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/iothub/internal/fleet"
	"github.com/luki/iothub/internal/history"
)

func TestSparkline(t *testing.T) {
	var values []history.Value
	for _, v := range []float64{12, 15, 18, 21, 24, 27, 30, 33} {
		values = append(values, history.Value{Temp: v, HasTemp: true})
	}
	result := RenderSparkline(values, 20, 10, 35)
	if len(result) == 0 {
		t.Error("sparkline should not be empty")
	}
	if w := lipgloss.Width(result); w != 20 {
		t.Errorf("sparkline width: got %d, want 20", w)
	}
	t.Logf("Sparkline: %s", result)
}

func TestSparklineShowsGaps(t *testing.T) {
	values := []history.Value{
		{Temp: 20, HasTemp: true},
		{},
		{Temp: 21, HasTemp: true},
	}
	result := RenderSparkline(values, 3, 10, 35)
	if !strings.Contains(result, string(gapGlyph)) {
		t.Error("expected a gap glyph for the missing sample")
	}
	if strings.Contains(result, string(sparkBlocks[0])) {
		t.Error("missing sample must not render as the lowest block")
	}
}

func TestSparklineEmpty(t *testing.T) {
	result := RenderSparkline(nil, 10, 10, 35)
	if !strings.Contains(result, strings.Repeat(string(padGlyph), 10)) {
		t.Errorf("empty sparkline should be all padding, got %q", result)
	}
	if RenderSparkline(nil, 0, 10, 35) != "" {
		t.Error("zero width should render nothing")
	}
}

func TestSparklineMinuteTicks(t *testing.T) {
	base := time.Date(2026, 2, 21, 14, 0, 30, 0, time.Local)
	var values []history.Value
	for i := 0; i < 20; i++ {
		values = append(values, history.Value{
			Temp:    float64(20 + i%5),
			HasTemp: true,
			Time:    base.Add(time.Duration(i) * 2 * time.Second),
		})
	}

	result := RenderSparkline(values, 20, 10, 35)
	if strings.Contains(result, string(tickGlyph)) {
		t.Error("minute ticks must not replace samples in the sparkline")
	}

	timeline := RenderTimeline(values, 20)
	if !strings.Contains(timeline, "14:01"+string(tickGlyph)) {
		t.Errorf("expected tick and 14:01 label in timeline, got %q", timeline)
	}
	t.Logf("Sparkline: %s", result)
	t.Logf("Timeline:  %s", timeline)
}

func TestSparklineGapOnMinuteBoundary(t *testing.T) {
	at := func(sec int) time.Time {
		return time.Date(2026, 2, 21, 14, 0, 58, 0, time.Local).Add(time.Duration(sec) * time.Second)
	}
	values := []history.Value{
		{Temp: 20, HasTemp: true, Time: at(0)},
		{Time: at(2)}, // 14:01:00, device offline
		{Temp: 21, HasTemp: true, Time: at(4)},
	}

	result := RenderSparkline(values, 3, 10, 35)
	if !strings.Contains(result, string(gapGlyph)) {
		t.Errorf("gap on a minute boundary must stay visible, got %q", result)
	}
	if w := lipgloss.Width(result); w != 3 {
		t.Errorf("sparkline width: got %d, want 3", w)
	}

	values[1] = history.Value{Temp: 30, HasTemp: true, Time: at(2)}
	result = RenderSparkline(values, 3, 10, 35)
	if strings.Contains(result, string(gapGlyph)) || strings.Contains(result, string(tickGlyph)) {
		t.Errorf("sample on a minute boundary must render as a block, got %q", result)
	}
	if !strings.Contains(result, string(sparkBlocks[5])) {
		t.Errorf("expected the 30°C block, got %q", result)
	}

	timeline := RenderTimeline(values, 3)
	if !strings.Contains(timeline, string(tickGlyph)) {
		t.Errorf("expected the minute tick in the timeline, got %q", timeline)
	}
}

func TestTempColor(t *testing.T) {
	if TempColor(15) != colorCold || TempColor(21) != colorComfort || TempColor(30) != colorWarm {
		t.Error("TempColor does not follow the cold/comfort/warm bands")
	}
}

func TestRenderStatus(t *testing.T) {
	if !strings.Contains(RenderStatus(fleet.Online), "ONLINE") {
		t.Error("online status label missing")
	}
	if !strings.Contains(RenderStatus(fleet.Offline), "OFFLINE") {
		t.Error("offline status label missing")
	}
}

func TestRangeScaleWidth(t *testing.T) {
	scale := RenderRangeScale(22, 10, 35, 26)
	if w := lipgloss.Width(scale); w != 26 {
		t.Errorf("scale width: got %d, want 26", w)
	}
	if !strings.Contains(scale, "◆") {
		t.Error("expected a current-position marker")
	}
}
