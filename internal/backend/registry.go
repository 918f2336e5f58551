// Package backend opens the sensor, actuator and clock a run is driven
// with, by name.
package backend

import (
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/san-kum/haptix/internal/config"
	"github.com/san-kum/haptix/internal/device"
	"github.com/san-kum/haptix/internal/hw"
	"github.com/san-kum/haptix/internal/plant"
)

// Rig is an opened backend. Close releases every device it opened.
type Rig struct {
	Sensor   device.Sensor
	Actuator device.Actuator
	Clock    device.Clock
	closers  []io.Closer
}

func (r *Rig) Close() error {
	var errs error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, r.closers[i].Close())
	}
	r.closers = nil
	return errs
}

type Factory func(cfg *config.Config, log *zap.Logger) (*Rig, error)

type Registry struct {
	backends map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{backends: make(map[string]Factory)}
	r.backends["sim"] = openSim
	r.backends["hw"] = openHardware
	r.backends["serial"] = openSerial
	return r
}

func (r *Registry) Register(name string, f Factory) {
	r.backends[name] = f
}

func (r *Registry) Open(name string, cfg *config.Config, log *zap.Logger) (*Rig, error) {
	fn, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown backend: %s", device.ErrConfig, name)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return fn(cfg, log)
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// openSim runs against the simulated rig. Unless cfg.Sim.Realtime is set it
// uses a manual clock, so a session runs as fast as the CPU allows.
func openSim(cfg *config.Config, log *zap.Logger) (*Rig, error) {
	var clock device.Clock = device.SystemClock
	if !cfg.Sim.Realtime {
		clock = plant.NewClock(time.Now())
	}
	rig, err := plant.FromConfig(cfg, clock)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrConfig, err)
	}
	log.Info("simulated rig ready",
		zap.String("integrator", cfg.Sim.Integrator),
		zap.Bool("realtime", cfg.Sim.Realtime),
		zap.Float64("script_s", rig.Script().Duration()))
	return &Rig{Sensor: rig, Actuator: rig, Clock: clock, closers: []io.Closer{rig}}, nil
}

func openHardware(cfg *config.Config, log *zap.Logger) (*Rig, error) {
	adc, err := hw.OpenADS1115(cfg.Hardware, log)
	if err != nil {
		return nil, err
	}
	servo, err := hw.OpenServo(cfg, log)
	if err != nil {
		return nil, multierr.Append(err, adc.Close())
	}
	return &Rig{Sensor: adc, Actuator: servo, Clock: device.SystemClock, closers: []io.Closer{adc, servo}}, nil
}

func openSerial(cfg *config.Config, log *zap.Logger) (*Rig, error) {
	adc, err := hw.OpenSerialADC(cfg.Hardware, log)
	if err != nil {
		return nil, err
	}
	servo, err := hw.OpenServo(cfg, log)
	if err != nil {
		return nil, multierr.Append(err, adc.Close())
	}
	return &Rig{Sensor: adc, Actuator: servo, Clock: device.SystemClock, closers: []io.Closer{adc, servo}}, nil
}
