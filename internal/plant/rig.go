package plant

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/san-kum/haptix/internal/device"
	"github.com/san-kum/haptix/internal/dynamo"
	"github.com/san-kum/haptix/internal/filter"
)

type Params struct {
	AngleToDistance float64 // mm of compression per degree, negative on the reference rig
	SlewRate        float64 // deg/s
	TimeConstant    float64 // s
	Backlash        float64 // deg
	RestCompression float64 // mm at angle 0 with the carriage at the origin
	Noise           float64 // raw counts, standard deviation
	Seed            int64
	MaxStep         float64 // s, integration step
	StartAngle      float64
	Mapping         filter.Mapping
}

type Rig struct {
	p      Params
	script Script
	integ  dynamo.Integrator
	dyn    servoDynamics
	clock  device.Clock
	rng    *rand.Rand

	start  time.Time
	t      float64
	x      dynamo.State
	cmd    float64
	sets   int
	closed bool
}

func NewRig(p Params, script Script, integ dynamo.Integrator, clock device.Clock) *Rig {
	if p.MaxStep <= 0 {
		p.MaxStep = 0.0025
	}
	if p.TimeConstant <= 0 {
		p.TimeConstant = 0.03
	}
	return &Rig{
		p:      p,
		script: script,
		integ:  integ,
		dyn:    servoDynamics{tau: p.TimeConstant, slew: p.SlewRate, backlash: p.Backlash},
		clock:  clock,
		rng:    rand.New(rand.NewSource(p.Seed)),
		start:  clock.Now(),
		x:      dynamo.State{p.StartAngle, 0},
		cmd:    p.StartAngle,
	}
}

func (r *Rig) advance() error {
	target := r.clock.Now().Sub(r.start).Seconds()
	for r.t < target {
		h := r.p.MaxStep
		if target-r.t < h {
			h = target - r.t
		}
		// Steps never straddle a script edge, so the carriage velocity is
		// constant across each one.
		edge, ok := r.script.NextEdge(r.t)
		atEdge := ok && edge-r.t <= h
		if atEdge {
			h = edge - r.t
		}
		u := dynamo.Control{r.cmd, r.script.Velocity(r.t + h/2)}
		next := r.integ.Step(r.dyn, r.x, u, r.t, h)
		if !next.IsValid() {
			return &dynamo.StepError{Time: r.t, State: r.x.Clone(), Wrapped: dynamo.ErrInvalidState}
		}
		r.x = next
		if atEdge {
			r.t = edge
		} else {
			r.t += h
		}
	}
	return nil
}

// Read returns the raw ADC count the potentiometer would report.
func (r *Rig) Read() (float64, error) {
	if r.closed {
		return 0, fmt.Errorf("%w: %w", device.ErrSensor, device.ErrClosed)
	}
	if err := r.advance(); err != nil {
		return 0, fmt.Errorf("%w: %v", device.ErrSensor, err)
	}
	raw := r.p.Mapping.Raw(r.Compression())
	if r.p.Noise > 0 {
		raw += r.rng.NormFloat64() * r.p.Noise
	}
	return raw, nil
}

func (r *Rig) Set(angle float64) error {
	if r.closed {
		return fmt.Errorf("%w: %w", device.ErrActuator, device.ErrClosed)
	}
	if err := r.advance(); err != nil {
		return fmt.Errorf("%w: %v", device.ErrActuator, err)
	}
	r.cmd = angle
	r.sets++
	return nil
}

// Close detaches the rig; Read and Set fail with ErrClosed afterwards.
func (r *Rig) Close() error {
	r.closed = true
	return nil
}

// Compression is the true spring compression in mm.
func (r *Rig) Compression() float64 {
	return r.p.RestCompression + r.x[1] + r.p.AngleToDistance*r.x[0]
}

func (r *Rig) Angle() float64    { return r.x[0] }
func (r *Rig) Carriage() float64 { return r.x[1] }
func (r *Rig) Command() float64  { return r.cmd }
func (r *Rig) Commands() int     { return r.sets }

// Elapsed is the simulated time the rig has been advanced to.
func (r *Rig) Elapsed() float64 { return r.t }

func (r *Rig) Script() Script { return r.script }
