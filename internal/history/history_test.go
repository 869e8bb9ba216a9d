package history

import (
	"testing"
	"time"
)

func row(at time.Time, vals map[string]float64, gaps ...string) Point {
	p := Point{Time: at, Samples: make(map[string]Sample)}
	for k, v := range vals {
		p.Samples[k] = Sample{Temp: v, HasTemp: true}
	}
	for _, k := range gaps {
		p.Samples[k] = Sample{}
	}
	return p
}

func TestRolling(t *testing.T) {
	r := NewRolling(5)

	now := time.Now()
	for i := 0; i < 7; i++ {
		r.Push(row(now.Add(time.Duration(i)*time.Second), map[string]float64{"a": float64(30 + i)}))
	}

	if r.Len() != 5 {
		t.Errorf("expected 5 points, got %d", r.Len())
	}

	last, ok := r.Last()
	if !ok {
		t.Fatal("Last(): expected a row")
	}
	if v, _ := last.Get("a"); v != 36.0 {
		t.Errorf("Last(): got %f, want 36.0", v)
	}

	first := r.Points()[0]
	if v, _ := first.Get("a"); v != 32.0 {
		t.Errorf("oldest kept row: got %f, want 32.0", v)
	}

	vals := r.LastN(3)
	if len(vals) != 3 {
		t.Errorf("LastN(3): got %d values, want 3", len(vals))
	}
}

func TestRollingKeepsNewestTwenty(t *testing.T) {
	r := NewRolling(20)
	base := time.Date(2026, 2, 21, 14, 0, 0, 0, time.Local)

	for i := 1; i <= 21; i++ {
		before := r.Len()
		r.Push(row(base.Add(time.Duration(i)*2*time.Second), map[string]float64{"a": float64(i)}))
		want := before + 1
		if want > 20 {
			want = 20
		}
		if r.Len() != want {
			t.Fatalf("tick %d: len %d, want %d", i, r.Len(), want)
		}
	}

	pts := r.Points()
	for i, p := range pts {
		v, _ := p.Get("a")
		if v != float64(i+2) {
			t.Errorf("row %d holds tick %.0f, want %d", i, v, i+2)
		}
	}
}

func TestPointsIsACopy(t *testing.T) {
	r := NewRolling(3)
	r.Push(row(time.Now(), map[string]float64{"a": 1}))

	pts := r.Points()
	pts[0] = Point{}

	last, _ := r.Last()
	if _, ok := last.Get("a"); !ok {
		t.Error("mutating Points() result changed the buffer")
	}
}

func TestGapIsNotZero(t *testing.T) {
	p := row(time.Now(), map[string]float64{"a": 21.5}, "b")

	if _, ok := p.Get("b"); ok {
		t.Error("offline sample should be absent")
	}
	if _, ok := p.Samples["b"]; !ok {
		t.Error("offline device should still have a key in the row")
	}

	series := Series([]Point{p}, "b")
	if len(series) != 1 || series[0].HasTemp {
		t.Errorf("Series: got %+v, want one gap", series)
	}
}

func TestExtremesSkipGaps(t *testing.T) {
	base := time.Date(2026, 2, 21, 14, 0, 0, 0, time.Local)
	pts := []Point{
		row(base, map[string]float64{"a": 20}),
		row(base.Add(2*time.Second), nil, "a"),
		row(base.Add(4*time.Second), map[string]float64{"a": 24}),
	}

	e, ok := ExtremesOf(pts, "a")
	if !ok {
		t.Fatal("expected extremes")
	}
	if e.Min != 20 || e.Peak != 24 || e.Avg != 22 || e.N != 2 {
		t.Errorf("ExtremesOf: got %+v", e)
	}

	if _, ok := ExtremesOf(pts[1:2], "a"); ok {
		t.Error("all-gap column should report no extremes")
	}
}

func TestClock(t *testing.T) {
	p := Point{Time: time.Date(2026, 2, 21, 9, 5, 7, 0, time.Local)}
	if p.Clock() != "09:05:07" {
		t.Errorf("Clock: got %q", p.Clock())
	}
}
