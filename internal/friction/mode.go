package friction

import "fmt"

type Mode int

const (
	Calibrating Mode = iota
	Static
	Dynamic
)

func (m Mode) String() string {
	switch m {
	case Calibrating:
		return "Calibrating"
	case Static:
		return "Static"
	case Dynamic:
		return "Dynamic"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Transition reports a mode change produced by the machine.
type Transition int

const (
	NoTransition Transition = iota
	// Calibrated: Calibrating -> Static.
	Calibrated
	// Slipped: Static -> Dynamic.
	Slipped
	// Released: Dynamic -> Calibrating, the session resets.
	Released
)

func (t Transition) String() string {
	switch t {
	case NoTransition:
		return "none"
	case Calibrated:
		return "calibrated"
	case Slipped:
		return "slipped"
	case Released:
		return "released"
	default:
		return fmt.Sprintf("transition(%d)", int(t))
	}
}
