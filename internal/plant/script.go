package plant

// Segment moves the carriage at Velocity mm/s for Duration seconds.
type Segment struct {
	Duration float64
	Velocity float64
}

// Script is the operator's hand. Past the last segment the carriage rests.
type Script []Segment

func (s Script) Velocity(t float64) float64 {
	if t < 0 {
		return 0
	}
	for _, seg := range s {
		if t < seg.Duration {
			return seg.Velocity
		}
		t -= seg.Duration
	}
	return 0
}

func (s Script) Duration() float64 {
	total := 0.0
	for _, seg := range s {
		total += seg.Duration
	}
	return total
}

// NextEdge returns the first segment boundary strictly after t.
func (s Script) NextEdge(t float64) (float64, bool) {
	edge := 0.0
	for _, seg := range s {
		edge += seg.Duration
		if edge > t {
			return edge, true
		}
	}
	return 0, false
}
