package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/theckman/yacspin"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/san-kum/haptix/internal/backend"
	"github.com/san-kum/haptix/internal/device"
	"github.com/san-kum/haptix/internal/logging"
	"github.com/san-kum/haptix/internal/loop"
	"github.com/san-kum/haptix/internal/metrics"
	"github.com/san-kum/haptix/internal/storage"
	"github.com/san-kum/haptix/internal/telemetry"
)

// bandPercent is the force error considered a faithful rendering.
const bandPercent = 10

func runSession(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer log.Sync()

	// A simulated session on the manual clock would otherwise never end.
	if cfg.Backend == "sim" && !cfg.Sim.Realtime && cfg.Loop.Duration == 0 {
		cfg.Loop.Duration = cfg.ScriptSpan()
		log.Info("bounding simulated session", zap.Float64("duration", cfg.Loop.Duration))
	}

	rig, err := backend.NewRegistry().Open(cfg.Backend, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, rig.Close())
	}()

	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}

	coeffs, err := cfg.Coefficients()
	if err != nil {
		return err
	}
	collector := metrics.Default(bandPercent, cfg.Loop.Period)
	session := storage.NewSessionSink(st, storage.RunMetadata{
		Backend:      cfg.Backend,
		Preset:       preset,
		Timestamp:    time.Now(),
		Period:       cfg.Loop.Period,
		SpringRate:   cfg.Friction.SpringRate,
		MaxStatic:    cfg.Friction.MaxStaticFriction,
		Dynamic:      cfg.Friction.DynamicFriction,
		Gains:        [3]float64{cfg.Controller.Kp, cfg.Controller.Ki, cfg.Controller.Kd},
		Coefficients: coeffs,
	}, collector.Values)

	sinks := []device.Sink{session}
	if cfg.Telemetry.Broker != "" {
		pub, err := telemetry.Connect(cfg.Telemetry, log)
		if err != nil {
			return err
		}
		sinks = append(sinks, pub)
	}

	l, err := loop.New(cfg, rig.Sensor, rig.Actuator,
		loop.WithLogger(log),
		loop.WithClock(rig.Clock),
		loop.WithSinks(sinks...),
		loop.WithObservers(collector),
	)
	if err != nil {
		return err
	}

	if err := home(l); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if err := l.Run(ctx); err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("run id: %s\n", session.ID())
	fmt.Printf("records: %d\n", session.Len())
	fmt.Println("\nmetrics:")
	values := collector.Values()
	for _, name := range sortedKeys(values) {
		fmt.Printf("  %s: %.4f\n", name, values[name])
	}
	return nil
}

// home parks the servo at its start angle behind a spinner.
func home(l *loop.Loop) error {
	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[14],
		Suffix:            " ",
		Message:           "homing servo",
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopMessage:       "servo homed",
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
		StopFailMessage:   "homing failed",
	})
	if err != nil {
		// No terminal to draw on.
		return l.Home()
	}

	_ = spinner.Start()
	if err := l.Home(); err != nil {
		_ = spinner.StopFail()
		return err
	}
	return spinner.Stop()
}
