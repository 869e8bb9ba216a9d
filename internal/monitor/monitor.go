// Package monitor implements the live fleet dashboard TUI using BubbleTea:
// fleet aggregates, a rolling sparkline per device and one card per device.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/luki/iothub/internal/chart"
	"github.com/luki/iothub/internal/export"
	"github.com/luki/iothub/internal/fleet"
	"github.com/luki/iothub/internal/history"
	"github.com/luki/iothub/internal/telemetry"
)

// ── Messages ─────────────────────────────────────────────────────────

type tickMsg time.Time

type exportedMsg struct {
	path string
	err  error
}

// ── Model ────────────────────────────────────────────────────────────

// Options are the dashboard settings that do not come from the hub.
type Options struct {
	Bounds    fleet.Bounds
	ExportDir string
	Logger    *slog.Logger
}

// Model is the BubbleTea model for the live dashboard. The hub is only
// ticked from Update, so all state changes happen on the program loop.
type Model struct {
	hub       *telemetry.Hub
	snap      telemetry.Snapshot
	opts      Options
	err       error
	notice    string
	width     int
	height    int
	scroll    int
	startTime time.Time
	paused    bool
}

// New creates the initial model for the dashboard.
func New(hub *telemetry.Hub, opts Options) Model {
	if opts.Bounds == (fleet.Bounds{}) {
		opts.Bounds = fleet.DefaultBounds
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return Model{
		hub:       hub,
		snap:      hub.Snapshot(),
		opts:      opts,
		startTime: time.Now(),
	}
}

// Run starts the dashboard on the alternate screen and blocks until the
// user quits or ctx is cancelled. The hub is stopped when Run returns.
func Run(ctx context.Context, m Model) error {
	defer m.hub.Stop()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Snapshot returns the state the model is currently displaying.
func (m Model) Snapshot() telemetry.Snapshot {
	return m.snap
}

// ── Commands ─────────────────────────────────────────────────────────

// tickCmd fires on the next interval boundary of the wall clock, so the
// schedule does not drift by the time spent in Update.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Every(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func exportCmd(dir string, snap telemetry.Snapshot) tea.Cmd {
	return func() tea.Msg {
		path, err := export.Write(dir, snap, time.Now())
		return exportedMsg{path: path, err: err}
	}
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return tickCmd(m.hub.Interval())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.hub.Stop()
			m.opts.Logger.Info("dashboard closed", "run", m.snap.RunID, "ticks", m.snap.Tick, "messages", m.snap.Messages)
			return m, tea.Quit
		case "up", "k":
			if m.scroll > 0 {
				m.scroll--
			}
		case "down", "j":
			m.scroll++
		case "home":
			m.scroll = 0
		case " ", "p":
			m.paused = !m.paused
		case "e":
			return m, exportCmd(m.opts.ExportDir, m.snap)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		if m.hub.Stopped() {
			return m, nil
		}
		if m.paused {
			return m, tickCmd(m.hub.Interval())
		}
		m.snap = m.hub.Tick(time.Time(msg))
		m.opts.Logger.Debug("tick",
			"tick", m.snap.Tick,
			"online", m.snap.OnlineCount(),
			"avg", fmt.Sprintf("%.1f", m.snap.AverageTemp()),
			"messages", m.snap.Messages)
		return m, tickCmd(m.hub.Interval())

	case exportedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("export: %w", msg.err)
			m.opts.Logger.Error("export failed", "err", msg.err)
		} else {
			m.err = nil
			m.notice = "exported " + msg.path
			m.opts.Logger.Info("history exported", "path", msg.path, "rows", len(m.snap.History))
		}
	}

	return m, nil
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorName     = lipgloss.Color("147")
	colorID       = lipgloss.Color("243")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorValue    = lipgloss.Color("255")
	colorNotice   = lipgloss.Color("114")
	colorCrit     = lipgloss.Color("196")
	colorPaused   = lipgloss.Color("196")
)

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string

	sections = append(sections, m.renderTitleBar(contentWidth))

	if m.err != nil {
		errBox := lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Width(contentWidth).
			Padding(0, 1).
			Render(fmt.Sprintf(" ERROR: %v", m.err))
		sections = append(sections, errBox)
	} else if m.notice != "" {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(colorNotice).
			Width(contentWidth).
			Padding(0, 1).
			Render(m.notice))
	}

	sections = append(sections, m.renderSummary(contentWidth))

	if m.snap.Tick == 0 {
		waiting := lipgloss.NewStyle().
			Foreground(colorDim).
			Width(contentWidth).
			Align(lipgloss.Center).
			Padding(1, 0).
			Render("Waiting for the first readings...")
		sections = append(sections, waiting)
	} else {
		sections = append(sections, m.renderHistoryPanel(contentWidth))
	}

	sections = append(sections, m.renderDeviceCards(contentWidth)...)
	sections = append(sections, m.renderFooter(contentWidth))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	lines := strings.Split(content, "\n")
	visibleLines := m.height
	if visibleLines < 5 {
		visibleLines = 5
	}
	maxScroll := len(lines) - visibleLines
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.scroll > maxScroll {
		m.scroll = maxScroll
	}

	start := m.scroll
	end := start + visibleLines
	if end > len(lines) {
		end = len(lines)
	}

	return strings.Join(lines[start:end], "\n")
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("HUB IoT")

	sub := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("  %d simulated sensors", len(m.snap.Devices)))

	var statusParts []string

	uptime := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("up %s", fmtDuration(time.Since(m.startTime))))
	statusParts = append(statusParts, uptime)

	if !m.snap.At.IsZero() {
		ts := lipgloss.NewStyle().
			Foreground(colorDim).
			Render(m.snap.At.Format(history.ClockLayout))
		statusParts = append(statusParts, ts)
	}

	if m.paused {
		p := lipgloss.NewStyle().
			Foreground(colorPaused).
			Bold(true).
			Render("PAUSED, ticks skipped")
		statusParts = append(statusParts, p)
	}

	sep := lipgloss.NewStyle().Foreground(colorDim).Render(" │ ")
	right := strings.Join(statusParts, sep)

	gap := width - lipgloss.Width(logo) - lipgloss.Width(sub) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}
	filler := strings.Repeat(" ", gap)

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + sub + filler + right)
}

// renderSummary draws the three fleet aggregate tiles. Aggregates are
// recomputed from the snapshot on every render.
func (m Model) renderSummary(totalWidth int) string {
	st := m.snap.Stats()

	tileWidth := (totalWidth - 6) / 3
	if tileWidth < 16 {
		tileWidth = 16
	}

	tile := func(label, value, extra string) string {
		labelS := lipgloss.NewStyle().Foreground(colorID).Render(label)
		valueS := lipgloss.NewStyle().Foreground(colorValue).Bold(true).Render(value)
		body := labelS + "\n" + valueS
		if extra != "" {
			body += "  " + lipgloss.NewStyle().Foreground(colorDim).Render(extra)
		}
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			Width(tileWidth).
			Render(body)
	}

	var rangeText string
	if st.Online > 0 {
		rangeText = fmt.Sprintf("lo %.1f  pk %.1f", st.Min, st.Max)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		tile("Active devices", fmt.Sprintf("%d/%d", st.Online, st.Total), ""),
		tile("Average temperature", fmt.Sprintf("%.1f°C", st.Average), rangeText),
		tile("Messages received", fmt.Sprintf("%d", m.snap.Messages), ""),
	)
}

func (m Model) renderHistoryPanel(totalWidth int) string {
	innerWidth := totalWidth - 4
	if innerWidth < 30 {
		innerWidth = 30
	}

	labelW := 18
	tempW := 8

	chartWidth := innerWidth - labelW - tempW - 30
	if chartWidth < 15 {
		chartWidth = 15
	}
	if chartWidth > 140 {
		chartWidth = 140
	}

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")

	var rows []string
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorName).
		Render("Temperature history")
	window := dimS.Render(fmt.Sprintf("  last %d ticks", len(m.snap.History)))
	rows = append(rows, title+window)

	var lastSeries []history.Value
	for _, d := range m.snap.Devices {
		series := history.Series(m.snap.History, d.Name)
		lastSeries = series

		label := lipgloss.NewStyle().
			Foreground(colorLabel).
			Width(labelW).
			Render(truncate(d.Name, labelW))

		var temp string
		if d.Online() {
			temp = chart.RenderTempValue(d.Temp)
		} else {
			temp = dimS.Render("   --  ")
		}
		temp = lipgloss.NewStyle().Width(tempW).Align(lipgloss.Right).Render(temp)

		spark := chart.RenderSparkline(series, chartWidth, m.opts.Bounds.Min, m.opts.Bounds.Max)
		row := label + " " + temp + " " + frameL + spark + frameR

		if e, ok := history.ExtremesOf(m.snap.History, d.Name); ok {
			row += dimS.Render(" avg") + valS.Render(fmt.Sprintf("%5.1f", e.Avg)) +
				dimS.Render(" lo") + valS.Render(fmt.Sprintf("%5.1f", e.Min)) +
				dimS.Render(" pk") + valS.Render(fmt.Sprintf("%5.1f", e.Peak))
		}
		rows = append(rows, row)
	}

	if lastSeries != nil {
		timeline := chart.RenderTimeline(lastSeries, chartWidth)
		if strings.TrimSpace(timeline) != "" {
			pad := strings.Repeat(" ", labelW+tempW+3)
			rows = append(rows, pad+timeline)
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(totalWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderDeviceCards(totalWidth int) []string {
	perRow := 3
	if totalWidth < 90 {
		perRow = 2
	}
	if totalWidth < 60 {
		perRow = 1
	}
	cardWidth := totalWidth/perRow - 2
	scaleWidth := cardWidth - 4
	if scaleWidth < 10 {
		scaleWidth = 10
	}

	dimS := lipgloss.NewStyle().Foreground(colorDim)

	var cards []string
	for _, d := range m.snap.Devices {
		name := lipgloss.NewStyle().Bold(true).Foreground(colorName).Render(d.Name)
		room := dimS.Render(fleet.RoomName(d.Name))
		id := lipgloss.NewStyle().Foreground(colorID).Render(d.ID)

		lines := []string{
			name + "  " + room,
			id,
			lipgloss.NewStyle().Bold(true).Render(chart.RenderTempValue(d.Temp)),
			chart.RenderRangeScale(d.Temp, m.opts.Bounds.Min, m.opts.Bounds.Max, scaleWidth),
			dimS.Render("Status: ") + chart.RenderStatus(d.Status),
		}
		if d.Updated() {
			lines = append(lines, dimS.Render("Last update: ")+d.LastUpdate.Format(history.ClockLayout))
		}

		cards = append(cards, lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			Width(cardWidth).
			Render(strings.Join(lines, "\n")))
	}

	var rows []string
	for i := 0; i < len(cards); i += perRow {
		end := i + perRow
		if end > len(cards) {
			end = len(cards)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return rows
}

func (m Model) renderFooter(width int) string {
	coldS := lipgloss.NewStyle().Foreground(chart.TempColor(10)).Render("██")
	okS := lipgloss.NewStyle().Foreground(chart.TempColor(21)).Render("██")
	warmS := lipgloss.NewStyle().Foreground(chart.TempColor(30)).Render("██")
	gapS := lipgloss.NewStyle().Foreground(colorDim).Render("·")
	tickS := lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Render("╵")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	legend := coldS + dimS.Render(" <18 ") +
		okS + dimS.Render(" ok ") +
		warmS + dimS.Render(" >25 ") +
		gapS + dimS.Render(" offline ") +
		tickS + dimS.Render(" 1min")

	keyS := lipgloss.NewStyle().Foreground(colorLabel)
	keys := dimS.Render("q") + keyS.Render(":quit") +
		dimS.Render("  j/k") + keyS.Render(":scroll") +
		dimS.Render("  p") + keyS.Render(":pause (skips ticks)") +
		dimS.Render("  e") + keyS.Render(":export")

	gap := width - lipgloss.Width(legend) - lipgloss.Width(keys) - 4
	if gap < 1 {
		gap = 1
	}
	filler := strings.Repeat(" ", gap)

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(legend + filler + keys)
}

// truncate cuts s to at most w terminal cells, never inside a rune.
func truncate(s string, w int) string {
	if ansi.StringWidth(s) <= w {
		return s
	}
	if w <= 3 {
		return ansi.Truncate(s, w, "")
	}
	return ansi.Truncate(s, w, "…")
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
