package monitor

import (
	"math/rand"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luki/iothub/internal/fleet"
	"github.com/luki/iothub/internal/telemetry"
)

func newModel(t *testing.T, dir string) (Model, *telemetry.Hub) {
	t.Helper()
	roster, err := fleet.NewRoster(fleet.DefaultSeeds, fleet.DefaultBounds)
	if err != nil {
		t.Fatalf("NewRoster: %v", err)
	}
	hub := telemetry.NewHub(telemetry.DefaultConfig, roster, rand.New(rand.NewSource(1)))
	return New(hub, Options{ExportDir: dir}), hub
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var base = time.Date(2026, 2, 21, 14, 0, 0, 0, time.Local)

func TestTickAdvancesHub(t *testing.T) {
	m, hub := newModel(t, t.TempDir())

	next, cmd := m.Update(tickMsg(base))
	m = next.(Model)

	if m.Snapshot().Tick != 1 || hub.Snapshot().Tick != 1 {
		t.Errorf("expected one applied tick, model %d hub %d", m.Snapshot().Tick, hub.Snapshot().Tick)
	}
	if len(m.Snapshot().History) != 1 {
		t.Errorf("expected one history row, got %d", len(m.Snapshot().History))
	}
	if cmd == nil {
		t.Error("expected the next tick to be scheduled")
	}
}

func TestPauseSkipsTicks(t *testing.T) {
	m, hub := newModel(t, t.TempDir())

	next, _ := m.Update(key("p"))
	m = next.(Model)
	next, cmd := m.Update(tickMsg(base))
	m = next.(Model)

	if hub.Snapshot().Tick != 0 {
		t.Errorf("paused dashboard applied a tick")
	}
	if cmd == nil {
		t.Error("paused dashboard should keep the schedule alive")
	}
}

func TestPausedViewSaysTicksSkipped(t *testing.T) {
	m, _ := newModel(t, t.TempDir())

	next, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 80})
	m = next.(Model)
	next, _ = m.Update(key("p"))
	m = next.(Model)

	if view := m.View(); !strings.Contains(view, "ticks skipped") {
		t.Error("paused dashboard should say that ticks are skipped")
	}
}

func TestTickCmdFollowsWallClock(t *testing.T) {
	const interval = 200 * time.Millisecond

	msg, ok := tickCmd(interval)().(tickMsg)
	if !ok {
		t.Fatal("tick command returned an unexpected message")
	}
	fired := time.Time(msg)
	if off := fired.Sub(fired.Truncate(interval)); off > interval/2 {
		t.Errorf("tick fired %s after the interval boundary", off)
	}
}

func TestQuitStopsHub(t *testing.T) {
	m, hub := newModel(t, t.TempDir())

	next, _ := m.Update(tickMsg(base))
	m = next.(Model)
	before := hub.Snapshot()

	next, cmd := m.Update(key("q"))
	m = next.(Model)
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !hub.Stopped() {
		t.Fatal("quitting must stop the hub")
	}

	next, cmd = m.Update(tickMsg(base.Add(2 * time.Second)))
	m = next.(Model)
	if cmd != nil {
		t.Error("no tick should be scheduled after teardown")
	}
	after := hub.Snapshot()
	if after.Messages != before.Messages || len(after.History) != len(before.History) {
		t.Errorf("state changed after teardown: %d -> %d messages", before.Messages, after.Messages)
	}
}

func TestViewRendersFleet(t *testing.T) {
	m, _ := newModel(t, t.TempDir())

	if !strings.Contains(m.View(), "Initializing") {
		t.Error("expected placeholder before the first window size")
	}

	next, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 80})
	m = next.(Model)
	if !strings.Contains(m.View(), "Waiting for the first readings") {
		t.Error("expected waiting notice before the first tick")
	}

	next, _ = m.Update(tickMsg(base))
	m = next.(Model)
	view := m.View()

	for _, want := range []string{"HUB IoT", "Active devices", "Average temperature", "Messages received", "Temperature history", "Capteur Salon", "DEV-005", "Living room", "Last update"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestExportKey(t *testing.T) {
	dir := t.TempDir()
	m, _ := newModel(t, dir)

	next, _ := m.Update(tickMsg(base))
	m = next.(Model)

	_, cmd := m.Update(key("e"))
	if cmd == nil {
		t.Fatal("expected an export command")
	}
	msg, ok := cmd().(exportedMsg)
	if !ok {
		t.Fatal("export command returned an unexpected message")
	}
	if msg.err != nil {
		t.Fatalf("export: %v", msg.err)
	}
	if _, err := os.Stat(msg.path); err != nil {
		t.Errorf("export file missing: %v", err)
	}

	next, _ = m.Update(msg)
	m = next.(Model)
	if m.err != nil || !strings.HasPrefix(m.notice, "exported ") {
		t.Errorf("unexpected notice %q err %v", m.notice, m.err)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s    string
		w    int
		want string
	}{
		{"Capteur Salon", 18, "Capteur Salon"},
		{"Capteur Séjour Nord", 10, "Capteur S…"},
		{"Capteur Séjour Nord", 10 - 1, "Capteur …"},
		{"Température", 8, "Tempéra…"},
		{"éé", 1, "é"},
	}
	for _, tt := range tests {
		got := truncate(tt.s, tt.w)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.w, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) split a rune: %q", tt.s, tt.w, got)
		}
	}
}

func TestFmtDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{65 * time.Second, "1m05s"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, "2h03m04s"},
	}
	for _, tt := range tests {
		if got := fmtDuration(tt.d); got != tt.want {
			t.Errorf("fmtDuration(%s) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
