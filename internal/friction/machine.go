package friction

type Params struct {
	SpringRate        float64 // N per mm of compression
	MaxStaticFriction float64 // N
	DynamicFriction   float64 // N
	SlipVelocity      float64 // mm/s of external velocity that counts as sliding
	ResetVelocity     float64 // mm/s, strongly negative: operator let go
	ResetOnRelease    bool

	Schedule  Schedule
	Tolerance float64 // mm around the setpoint that ends calibration
}

// Output is the result of one evaluation.
type Output struct {
	Mode  Mode
	Force float64
	// Target is the calibration target and is only meaningful while
	// Calibrating.
	Target     float64
	Transition Transition
}

// Machine tracks the friction mode of one session. It is not safe for
// concurrent use; the control loop owns it.
type Machine struct {
	p         Params
	mode      Mode
	slipped   bool
	calTarget float64
	calPrimed bool
}

func NewMachine(p Params) *Machine {
	if p.Schedule == nil {
		p.Schedule = DefaultSchedule
	}
	return &Machine{p: p}
}

func (m *Machine) Mode() Mode { return m.mode }

// Setpoint is the calibration setpoint: where the slider sits when the
// spring renders exactly the static friction.
func (m *Machine) Setpoint() float64 {
	return m.p.MaxStaticFriction / m.p.SpringRate
}

// Force returns the friction force rendered in mode.
func (m *Machine) Force(mode Mode) float64 {
	switch mode {
	case Static:
		return m.p.MaxStaticFriction
	case Dynamic:
		return m.p.DynamicFriction
	default:
		return 0
	}
}

// Evaluate returns the mode and force for the current tick. While
// calibrating it also walks the correction schedule and completes
// calibration once the slider settles inside the tolerance band.
func (m *Machine) Evaluate(position float64) Output {
	if m.mode != Calibrating {
		return Output{Mode: m.mode, Force: m.Force(m.mode)}
	}

	if !m.calPrimed {
		m.calTarget = position
		m.calPrimed = true
	}

	setpoint := m.Setpoint()
	if step, ok := m.p.Schedule.Step(position - setpoint); ok {
		m.calTarget = position - step
		return Output{Mode: Calibrating, Target: m.calTarget}
	}
	if position <= setpoint+m.p.Tolerance {
		m.mode = Static
		return Output{Mode: Static, Force: m.Force(Static), Transition: Calibrated}
	}
	// Between table entries and outside tolerance: hold the last target.
	return Output{Mode: Calibrating, Target: m.calTarget}
}

// Observe runs the end-of-tick transition tests. Its effect is visible on
// the next Evaluate.
func (m *Machine) Observe(detectedForce, externalVelocity float64) Transition {
	switch m.mode {
	case Static:
		if !m.slipped &&
			detectedForce >= m.p.MaxStaticFriction &&
			externalVelocity > m.p.SlipVelocity {
			m.mode = Dynamic
			m.slipped = true
			return Slipped
		}
	case Dynamic:
		if m.p.ResetOnRelease && externalVelocity < m.p.ResetVelocity {
			m.Reset()
			return Released
		}
	}
	return NoTransition
}

// Reset starts a new session in Calibrating.
func (m *Machine) Reset() {
	m.mode = Calibrating
	m.slipped = false
	m.calPrimed = false
	m.calTarget = 0
}
