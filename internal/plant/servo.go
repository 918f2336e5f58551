package plant

import (
	"math"

	"github.com/san-kum/haptix/internal/dynamo"
)

// servoDynamics: x = [angle, carriage], u = [commanded angle, operator velocity].
type servoDynamics struct {
	tau      float64
	slew     float64
	backlash float64
}

func (s servoDynamics) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	e := u[0] - x[0]
	half := s.backlash / 2

	var rate float64
	switch {
	case e > half:
		rate = (e - half) / s.tau
	case e < -half:
		rate = (e + half) / s.tau
	}
	if s.slew > 0 {
		rate = math.Max(-s.slew, math.Min(s.slew, rate))
	}
	return dynamo.State{rate, u[1]}
}

func (servoDynamics) StateDim() int { return 2 }
