// Package history provides the rolling chart buffer: one row per tick with
// one sample per device, oldest rows evicted first.
package history

import (
	"math"
	"time"
)

// ClockLayout is the display format of a row timestamp.
const ClockLayout = "15:04:05"

// Sample is one device's value in a row. HasTemp is false when the device
// was offline at that tick; such a sample is a gap, not a zero.
type Sample struct {
	Temp    float64
	HasTemp bool
}

// Point is a single row of the rolling time series.
type Point struct {
	Time    time.Time
	Samples map[string]Sample // keyed by device name
}

// Clock returns the display timestamp of the row.
func (p Point) Clock() string {
	return p.Time.Format(ClockLayout)
}

// Get returns the temperature recorded for name, if any.
func (p Point) Get(name string) (float64, bool) {
	s, ok := p.Samples[name]
	if !ok || !s.HasTemp {
		return 0, false
	}
	return s.Temp, true
}

// Rolling is a fixed-capacity FIFO of rows.
type Rolling struct {
	points []Point
	max    int
}

// NewRolling creates an empty buffer holding at most capacity rows.
func NewRolling(capacity int) *Rolling {
	if capacity < 1 {
		capacity = 1
	}
	return &Rolling{
		points: make([]Point, 0, capacity),
		max:    capacity,
	}
}

// Push appends a row, dropping the oldest one when full.
func (r *Rolling) Push(p Point) {
	if len(r.points) >= r.max {
		copy(r.points, r.points[1:])
		r.points[len(r.points)-1] = p
	} else {
		r.points = append(r.points, p)
	}
}

// Len returns the number of stored rows.
func (r *Rolling) Len() int {
	return len(r.points)
}

// Last returns the most recent row, or false if empty.
func (r *Rolling) Last() (Point, bool) {
	if len(r.points) == 0 {
		return Point{}, false
	}
	return r.points[len(r.points)-1], true
}

// Points returns a chronological copy of all rows.
func (r *Rolling) Points() []Point {
	return r.LastN(len(r.points))
}

// LastN returns a copy of the last n rows.
func (r *Rolling) LastN(n int) []Point {
	if n <= 0 || len(r.points) == 0 {
		return nil
	}
	start := len(r.points) - n
	if start < 0 {
		start = 0
	}
	out := make([]Point, len(r.points[start:]))
	copy(out, r.points[start:])
	return out
}

// Value is one entry of a single-device column.
type Value struct {
	Temp    float64
	HasTemp bool
	Time    time.Time
}

// Series projects one device's column out of rows, keeping gaps.
func Series(points []Point, name string) []Value {
	if len(points) == 0 {
		return nil
	}
	vals := make([]Value, len(points))
	for i, p := range points {
		t, ok := p.Get(name)
		vals[i] = Value{Temp: t, HasTemp: ok, Time: p.Time}
	}
	return vals
}

// Extremes summarises the present samples of a column.
type Extremes struct {
	Min  float64
	Peak float64
	Avg  float64
	N    int
}

// ExtremesOf returns min/peak/avg over the samples of name that are
// present. ok is false when the column has no sample at all.
func ExtremesOf(points []Point, name string) (Extremes, bool) {
	e := Extremes{Min: math.MaxFloat64, Peak: -math.MaxFloat64}
	sum := 0.0
	for _, p := range points {
		t, ok := p.Get(name)
		if !ok {
			continue
		}
		if t < e.Min {
			e.Min = t
		}
		if t > e.Peak {
			e.Peak = t
		}
		sum += t
		e.N++
	}
	if e.N == 0 {
		return Extremes{}, false
	}
	e.Avg = sum / float64(e.N)
	return e, true
}
