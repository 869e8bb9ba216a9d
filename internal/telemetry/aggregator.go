package telemetry

import (
	"time"

	"github.com/luki/iothub/internal/fleet"
	"github.com/luki/iothub/internal/history"
)

// Aggregator owns the rolling chart buffer and the message counter.
type Aggregator struct {
	buf      *history.Rolling
	messages uint64
}

// NewAggregator creates an aggregator keeping capacity rows.
func NewAggregator(capacity int) *Aggregator {
	return &Aggregator{buf: history.NewRolling(capacity)}
}

// RecordTick folds one tick's full device set into the buffer. Every device
// gets a key in the row; offline devices get a gap. The counter grows by
// the number of online devices.
func (a *Aggregator) RecordTick(at time.Time, devices []fleet.Device) (history.Point, []history.Point, uint64) {
	p := history.Point{
		Time:    at,
		Samples: make(map[string]history.Sample, len(devices)),
	}
	online := 0
	for _, d := range devices {
		if d.Online() {
			p.Samples[d.Name] = history.Sample{Temp: d.Temp, HasTemp: true}
			online++
		} else {
			p.Samples[d.Name] = history.Sample{}
		}
	}

	a.buf.Push(p)
	a.messages += uint64(online)

	return p, a.buf.Points(), a.messages
}

// Messages returns the current counter value.
func (a *Aggregator) Messages() uint64 {
	return a.messages
}

// Points returns a chronological copy of the buffer.
func (a *Aggregator) Points() []history.Point {
	return a.buf.Points()
}
