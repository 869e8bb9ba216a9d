package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/luki/iothub/internal/fleet"
	"github.com/luki/iothub/internal/history"
)

// Config holds the scheduler and aggregation settings of a Hub.
type Config struct {
	Interval time.Duration
	Capacity int
	Params   SimParams
}

// DefaultConfig is the reference configuration: a tick every two seconds
// and twenty rows of history.
var DefaultConfig = Config{
	Interval: 2 * time.Second,
	Capacity: 20,
	Params:   DefaultSimParams,
}

// Snapshot is a committed, read-only copy of the hub state as of one tick.
type Snapshot struct {
	RunID    string
	Tick     uint64    // number of ticks applied so far
	At       time.Time // time of the last applied tick, zero before the first
	Devices  []fleet.Device
	History  []history.Point
	Messages uint64
}

// OnlineCount returns the number of online devices in the snapshot.
func (s Snapshot) OnlineCount() int {
	return fleet.OnlineCount(s.Devices)
}

// AverageTemp returns the mean online temperature, 0 when nobody is online.
func (s Snapshot) AverageTemp() float64 {
	return fleet.AverageTemp(s.Devices)
}

// Stats returns all fleet aggregates of the snapshot.
func (s Snapshot) Stats() fleet.Stats {
	return fleet.Summarize(s.Devices)
}

// Names returns device names in fleet order.
func (s Snapshot) Names() []string {
	names := make([]string, len(s.Devices))
	for i, d := range s.Devices {
		names[i] = d.Name
	}
	return names
}

// Option configures a Hub.
type Option func(*Hub)

// WithObserver registers fn to receive every committed snapshot. Observers
// run on the ticking goroutine after the state lock is released.
func WithObserver(fn func(Snapshot)) Option {
	return func(h *Hub) {
		h.observers = append(h.observers, fn)
	}
}

// WithLogger sets the hub logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		h.log = l
	}
}

// Hub holds the device set, the aggregator and the scheduler. All state
// changes happen inside Tick; readers only see whole snapshots.
type Hub struct {
	mu       sync.RWMutex
	sim      *Simulator
	agg      *Aggregator
	devices  []fleet.Device
	tick     uint64
	at       time.Time
	stopped  bool
	started  bool
	runID    string
	interval time.Duration

	observers []func(Snapshot)
	log       *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	quit      chan struct{}
	done      chan struct{}
}

// NewHub creates a hub whose devices are seeded from roster.
func NewHub(cfg Config, roster fleet.Roster, src Source, opts ...Option) *Hub {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig.Interval
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig.Capacity
	}
	if cfg.Params == (SimParams{}) {
		cfg.Params = DefaultSimParams
	}

	h := &Hub{
		sim:      NewSimulator(cfg.Params, src),
		agg:      NewAggregator(cfg.Capacity),
		devices:  roster.Devices(),
		runID:    uuid.NewString(),
		interval: cfg.Interval,
		log:      slog.New(slog.DiscardHandler),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RunID identifies this process run.
func (h *Hub) RunID() string {
	return h.runID
}

// Interval returns the tick period.
func (h *Hub) Interval() time.Duration {
	return h.interval
}

// Tick applies one full cycle at time now: every device is advanced, then
// the new set is recorded. After Stop it changes nothing and returns the
// current snapshot.
func (h *Hub) Tick(now time.Time) Snapshot {
	h.mu.Lock()
	if h.stopped {
		snap := h.snapshotLocked()
		h.mu.Unlock()
		return snap
	}

	h.devices = h.sim.AdvanceAll(h.devices, now)
	h.agg.RecordTick(now, h.devices)
	h.tick++
	h.at = now

	snap := h.snapshotLocked()
	h.mu.Unlock()

	for _, fn := range h.observers {
		fn(snap)
	}
	return snap
}

// Snapshot returns the last committed state.
func (h *Hub) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshotLocked()
}

func (h *Hub) snapshotLocked() Snapshot {
	devices := make([]fleet.Device, len(h.devices))
	copy(devices, h.devices)
	return Snapshot{
		RunID:    h.runID,
		Tick:     h.tick,
		At:       h.at,
		Devices:  devices,
		History:  h.agg.Points(),
		Messages: h.agg.Messages(),
	}
}

// Stopped reports whether the hub has been torn down.
func (h *Hub) Stopped() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stopped
}

// Start launches the fixed-interval scheduler. The ticker drops ticks
// rather than queueing them when a cycle overruns. The loop ends on Stop
// or when ctx is cancelled. Calling Start more than once has no effect.
func (h *Hub) Start(ctx context.Context) {
	h.startOnce.Do(func() {
		h.mu.Lock()
		if h.stopped {
			h.mu.Unlock()
			close(h.done)
			return
		}
		h.started = true
		h.mu.Unlock()

		t := time.NewTicker(h.interval)
		h.log.Info("scheduler started", "run", h.runID, "interval", h.interval.String())
		go func() {
			defer close(h.done)
			defer t.Stop()
			for {
				select {
				case now := <-t.C:
					h.Tick(now)
				case <-ctx.Done():
					h.halt()
					h.log.Info("scheduler stopped", "run", h.runID, "reason", ctx.Err())
					return
				case <-h.quit:
					h.log.Info("scheduler stopped", "run", h.runID, "reason", "teardown")
					return
				}
			}
		}()
	})
}

// Done is closed once the scheduler loop has exited.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Stop tears the hub down exactly once: no tick is applied afterwards and
// the scheduler, if running, has exited when Stop returns.
func (h *Hub) Stop() {
	h.halt()

	h.mu.RLock()
	started := h.started
	h.mu.RUnlock()
	if started {
		<-h.done
	}
}

func (h *Hub) halt() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.stopped = true
		h.mu.Unlock()
		close(h.quit)
	})
}
