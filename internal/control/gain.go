package control

import "math"

// GainSchedule boosts the PID output while the carriage is sliding, where a
// fixed-gain loop lags behind the operator. The boost saturates, so the
// scale always lies in [1, 1+TargetCap+1).
type GainSchedule struct {
	TargetCap     float64 // cap on the target-motion term, 0.15 on the reference rig
	VelocityScale float64 // mm/s; tanh(|v|/VelocityScale)
	SlipVelocity  float64 // external velocity above which the velocity term applies
}

// Scale returns the multiplier for a tick. targetChange is the high-passed
// motion of the target position. Only a sliding carriage is boosted.
func (g GainSchedule) Scale(sliding bool, targetChange, externalVelocity float64) float64 {
	if !sliding {
		return 1
	}
	enhance := math.Min(math.Tanh(math.Abs(targetChange)), g.TargetCap)
	if externalVelocity > g.SlipVelocity && g.VelocityScale > 0 {
		enhance += math.Tanh(math.Abs(externalVelocity / g.VelocityScale))
	}
	return 1 + enhance
}
