package control

import (
	"fmt"
	"math"
)

type PID struct {
	Kp float64
	Ki float64
	Kd float64

	AngleMin float64
	AngleMax float64

	// BaseAngle is the last issued command; Command adds the control
	// signal to it.
	BaseAngle float64

	integral float64
	prevErr  float64
	scale    float64
}

func NewPID(kp, ki, kd, angleMin, angleMax float64) *PID {
	return &PID{
		Kp:       kp,
		Ki:       ki,
		Kd:       kd,
		AngleMin: angleMin,
		AngleMax: angleMax,
		scale:    1,
	}
}

// Update advances the integral and derivative terms and returns
// -(Kp*e + Ki*I + Kd*D) scaled by the current gain schedule. A
// non-positive dt zeroes the derivative instead of failing.
func (p *PID) Update(err, dt float64) float64 {
	p.integral += err * dt

	derivative := 0.0
	if dt > 0 {
		derivative = (err - p.prevErr) / dt
	}
	p.prevErr = err

	return -(p.Kp*err + p.Ki*p.integral + p.Kd*derivative) * p.scale
}

// Command clamps BaseAngle+signal to the actuator range.
func (p *PID) Command(signal float64) float64 {
	return math.Max(p.AngleMin, math.Min(p.AngleMax, p.BaseAngle+signal))
}

// SetScale sets the gain multiplier for the next Update; values below 1
// are raised to 1.
func (p *PID) SetScale(s float64) {
	p.scale = math.Max(1, s)
}

func (p *PID) Scale() float64 { return p.scale }

func (p *PID) Integral() float64 { return p.integral }

// SetPreviousError overrides the derivative memory. The warm-up phase
// pins it to zero.
func (p *PID) SetPreviousError(e float64) { p.prevErr = e }

// ResetIntegral clears only the integral term.
func (p *PID) ResetIntegral() {
	p.integral = 0
}

// Reset clears integral and derivative state, the base angle and the
// gain schedule.
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.BaseAngle = 0
	p.scale = 1
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":       p.Kp,
		"Ki":       p.Ki,
		"Kd":       p.Kd,
		"AngleMin": p.AngleMin,
		"AngleMax": p.AngleMax,
	}
}

// SetParam adjusts a PID parameter
func (p *PID) SetParam(name string, value float64) error {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	case "AngleMin":
		if value >= p.AngleMax {
			return fmt.Errorf("control: AngleMin %.1f must be below AngleMax %.1f", value, p.AngleMax)
		}
		p.AngleMin = value
	case "AngleMax":
		if value <= p.AngleMin {
			return fmt.Errorf("control: AngleMax %.1f must be above AngleMin %.1f", value, p.AngleMin)
		}
		p.AngleMax = value
	default:
		return fmt.Errorf("control: unknown parameter %q", name)
	}
	return nil
}
