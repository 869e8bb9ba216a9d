// Package telemetry runs the simulated fleet: it advances every device once
// per tick, folds the result into the rolling history and message counter,
// and publishes immutable snapshots to readers.
package telemetry

import (
	"math"
	"time"

	"github.com/luki/iothub/internal/fleet"
)

// Source yields uniformly distributed values in [0, 1).
// *math/rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// SimParams are the knobs of the random walk.
type SimParams struct {
	Bounds             fleet.Bounds
	MaxStep            float64 // delta is uniform in (-MaxStep, +MaxStep)
	OfflineProbability float64 // a device is online iff its draw exceeds this
}

// DefaultSimParams is the reference configuration.
var DefaultSimParams = SimParams{
	Bounds:             fleet.DefaultBounds,
	MaxStep:            1.0,
	OfflineProbability: 0.05,
}

// Simulator computes the next state of a device. It keeps no per-device
// state; every device evolves independently.
type Simulator struct {
	params SimParams
	src    Source
}

// NewSimulator creates a simulator drawing from src.
func NewSimulator(params SimParams, src Source) *Simulator {
	return &Simulator{params: params, src: src}
}

// Advance returns the next snapshot of d at tick time at. The temperature
// draw happens before the connectivity draw.
func (s *Simulator) Advance(d fleet.Device, at time.Time) fleet.Device {
	delta := (s.src.Float64() - 0.5) * 2 * s.params.MaxStep
	temp := s.params.Bounds.Clamp(d.Temp + delta)

	status := fleet.Offline
	if s.src.Float64() > s.params.OfflineProbability {
		status = fleet.Online
	}

	next := d
	next.Temp = roundTenth(temp)
	next.Status = status
	next.LastUpdate = at
	return next
}

// AdvanceAll advances every device in order and returns a new slice.
func (s *Simulator) AdvanceAll(devices []fleet.Device, at time.Time) []fleet.Device {
	out := make([]fleet.Device, len(devices))
	for i, d := range devices {
		out[i] = s.Advance(d, at)
	}
	return out
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
