// Package metrics mirrors hub snapshots into Prometheus collectors and can
// optionally serve them over HTTP.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luki/iothub/internal/telemetry"
)

// Metrics holds the hub collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	messages prometheus.Counter
	ticks    prometheus.Counter
	online   prometheus.Gauge
	average  prometheus.Gauge
	points   prometheus.Gauge
	temps    *prometheus.GaugeVec

	lastMessages uint64
	lastTick     uint64
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iothub_messages_total",
			Help: "Readings received from online devices.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iothub_ticks_total",
			Help: "Simulation ticks applied.",
		}),
		online: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "iothub_devices_online",
			Help: "Devices online at the last tick.",
		}),
		average: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "iothub_average_temperature_celsius",
			Help: "Mean temperature of online devices, 0 when none are online.",
		}),
		points: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "iothub_history_points",
			Help: "Rows held in the rolling history buffer.",
		}),
		temps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "iothub_device_temperature_celsius",
			Help: "Last temperature of each online device.",
		}, []string{"device"}),
	}
	m.reg.MustRegister(m.messages, m.ticks, m.online, m.average, m.points, m.temps)
	return m
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Observe folds a committed snapshot into the collectors. It is meant to be
// registered with telemetry.WithObserver, which calls it from one goroutine.
func (m *Metrics) Observe(s telemetry.Snapshot) {
	if s.Messages > m.lastMessages {
		m.messages.Add(float64(s.Messages - m.lastMessages))
		m.lastMessages = s.Messages
	}
	if s.Tick > m.lastTick {
		m.ticks.Add(float64(s.Tick - m.lastTick))
		m.lastTick = s.Tick
	}

	m.online.Set(float64(s.OnlineCount()))
	m.average.Set(s.AverageTemp())
	m.points.Set(float64(len(s.History)))

	for _, d := range s.Devices {
		if d.Online() {
			m.temps.WithLabelValues(d.ID).Set(d.Temp)
		} else {
			m.temps.DeleteLabelValues(d.ID)
		}
	}
}

// Handler returns the scrape handler for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
