package friction

// Feedforward turns a friction force into a target slider position and
// leads the operator's motion by the estimated external velocity.
type Feedforward struct {
	Gain        float64 // Static
	DynamicGain float64 // Dynamic, larger so the carriage keeps up with a slide
}

// Target returns force/springRate shifted against the operator's motion.
// Calibrating gets no feedforward.
func (f Feedforward) Target(mode Mode, force, springRate, externalVelocity, dt float64) float64 {
	base := force / springRate
	switch mode {
	case Static:
		return base - externalVelocity*f.Gain*dt
	case Dynamic:
		return base - externalVelocity*f.DynamicGain*dt
	default:
		return base
	}
}
