// Package fleet describes the simulated sensor fleet: devices, the seed
// roster they are created from, and the aggregates derived from them.
package fleet

import "time"

// Status is the connectivity state of a device at a given tick.
type Status string

const (
	Online  Status = "online"
	Offline Status = "offline"
)

// Device is one simulated temperature sensor. Values are snapshots: a tick
// produces a new Device rather than mutating the previous one.
type Device struct {
	ID         string    // e.g. "DEV-001"
	Name       string    // e.g. "Capteur Salon"
	Temp       float64   // current temperature in Celsius
	Status     Status    // online or offline
	LastUpdate time.Time // zero until the first tick
}

// Online reports whether the device delivered a reading this tick.
func (d Device) Online() bool {
	return d.Status == Online
}

// Updated reports whether the device has been advanced at least once.
func (d Device) Updated() bool {
	return !d.LastUpdate.IsZero()
}

// Bounds is the closed temperature interval every device is clamped to.
type Bounds struct {
	Min float64
	Max float64
}

// DefaultBounds is the reference clamp interval.
var DefaultBounds = Bounds{Min: 10.0, Max: 35.0}

// Clamp limits v to the interval.
func (b Bounds) Clamp(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// Contains reports whether v lies within the interval.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}
