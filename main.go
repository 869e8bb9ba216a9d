// Command iothub simulates a small fleet of IoT temperature sensors and
// shows their readings live in the terminal.
//
// Usage:
//
//	iothub [-config hub.yaml] [-headless] [-ticks n]
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luki/iothub/internal/config"
	"github.com/luki/iothub/internal/logging"
	"github.com/luki/iothub/internal/metrics"
	"github.com/luki/iothub/internal/monitor"
	"github.com/luki/iothub/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default $IOTHUB_CONFIG)")
	headless := flag.Bool("headless", false, "run the simulation without the dashboard, logging every tick")
	maxTicks := flag.Uint64("ticks", 0, "headless only: stop after this many ticks (0 runs until interrupted)")
	flag.Parse()

	if err := run(*configPath, *headless, *maxTicks); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, headless bool, maxTicks uint64) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	roster, err := cfg.Roster()
	if err != nil {
		return err
	}

	log := logging.New(cfg.Log, headless)
	defer log.Close()

	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []telemetry.Option
	opts = append(opts, telemetry.WithLogger(log.Logger))

	if cfg.Metrics.Addr != "" {
		m := metrics.New()
		opts = append(opts, telemetry.WithObserver(m.Observe))
		go func() {
			log.Info("metrics endpoint listening", "addr", cfg.Metrics.Addr)
			if err := m.Serve(ctx, cfg.Metrics.Addr); err != nil {
				log.Error("metrics endpoint failed", "err", err)
			}
		}()
	}

	if headless {
		opts = append(opts, telemetry.WithObserver(func(s telemetry.Snapshot) {
			log.Info("tick",
				"tick", s.Tick,
				"online", s.OnlineCount(),
				"avg", fmt.Sprintf("%.1f", s.AverageTemp()),
				"messages", s.Messages,
				"history", len(s.History))
			if maxTicks > 0 && s.Tick >= maxTicks {
				stop()
			}
		}))
	}

	hub := telemetry.NewHub(cfg.Hub(), roster, rand.New(rand.NewSource(seed)), opts...)
	log.Info("hub created", "run", hub.RunID(), "devices", roster.Len(), "seed", seed, "interval", cfg.Simulation.Interval.String())

	if headless {
		hub.Start(ctx)
		<-hub.Done()
		hub.Stop()
		snap := hub.Snapshot()
		log.Info("hub stopped", "run", snap.RunID, "ticks", snap.Tick, "messages", snap.Messages)
		return nil
	}

	return monitor.Run(ctx, monitor.New(hub, monitor.Options{
		Bounds:    cfg.Bounds(),
		ExportDir: cfg.Export.Dir,
		Logger:    log.Logger,
	}))
}
