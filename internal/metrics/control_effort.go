package metrics

import (
	"math"

	"github.com/san-kum/haptix/internal/device"
)

// ControlEffort is the mean servo travel per tick in degrees.
type ControlEffort struct {
	name    string
	sum     float64
	last    float64
	primed  bool
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(r device.Record) {
	if c.primed {
		c.sum += math.Abs(r.Command - c.last)
		c.samples++
	}
	c.last = r.Command
	c.primed = true
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.last = 0
	c.primed = false
	c.samples = 0
}
