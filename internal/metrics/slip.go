package metrics

import (
	"github.com/san-kum/haptix/internal/device"
	"github.com/san-kum/haptix/internal/friction"
)

// SlipTime is the run time of the first Dynamic tick, or -1 if the slider
// never slipped.
type SlipTime struct {
	at float64
}

func NewSlipTime() *SlipTime { return &SlipTime{at: -1} }

func (s *SlipTime) Name() string { return "slip_time" }

func (s *SlipTime) Observe(r device.Record) {
	if s.at < 0 && r.Mode == friction.Dynamic.String() {
		s.at = r.Time
	}
}

func (s *SlipTime) Value() float64 { return s.at }

func (s *SlipTime) Reset() { s.at = -1 }
