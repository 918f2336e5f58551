package friction

// Correction moves the calibration target by Step millimetres while the
// slider sits more than Above millimetres past the setpoint.
type Correction struct {
	Above float64
	Step  float64
}

// Schedule is evaluated in order; the first matching entry wins, so entries
// go from coarse (far) to fine (near).
type Schedule []Correction

// DefaultSchedule is the correction table of the reference rig.
var DefaultSchedule = Schedule{
	{Above: 1.1, Step: 2.0},
	{Above: 1.0, Step: 0.3},
	{Above: 0.1, Step: 0.1},
	{Above: 0.02, Step: 0.01},
}

// Step returns the correction for a slider offset past the setpoint.
func (s Schedule) Step(offset float64) (float64, bool) {
	for _, c := range s {
		if offset > c.Above {
			return c.Step, true
		}
	}
	return 0, false
}
