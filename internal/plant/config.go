package plant

import (
	"github.com/san-kum/haptix/internal/config"
	"github.com/san-kum/haptix/internal/device"
	"github.com/san-kum/haptix/internal/filter"
	"github.com/san-kum/haptix/internal/integrators"
)

// FromConfig builds the rig described by cfg.Sim, reading the slider through
// the same mapping the loop uses and starting the servo at cfg.Servo.Start.
func FromConfig(cfg *config.Config, clock device.Clock) (*Rig, error) {
	integ, err := integrators.ByName(cfg.Sim.Integrator)
	if err != nil {
		return nil, err
	}
	step := cfg.Loop.Period
	if cfg.Sim.Substeps > 0 {
		step /= float64(cfg.Sim.Substeps)
	}
	script := make(Script, 0, len(cfg.Sim.Script))
	for _, s := range cfg.Sim.Script {
		script = append(script, Segment{Duration: s.Duration, Velocity: s.Velocity})
	}
	p := Params{
		AngleToDistance: cfg.Sim.AngleToDistance,
		SlewRate:        cfg.Sim.SlewRate,
		TimeConstant:    cfg.Sim.TimeConstant,
		Backlash:        cfg.Sim.Backlash,
		RestCompression: cfg.Sim.RestCompression,
		Noise:           cfg.Sim.Noise,
		Seed:            cfg.Sim.Seed,
		MaxStep:         step,
		StartAngle:      cfg.Servo.Start,
		Mapping: filter.Mapping{
			FullScale: cfg.Filter.FullScale,
			Span:      cfg.Filter.Span,
			Cal:       cfg.Filter.Cal,
			Offset:    cfg.Filter.Offset,
		},
	}
	return NewRig(p, script, integ, clock), nil
}
