package metrics

import (
	"math"

	"github.com/san-kum/haptix/internal/device"
)

// Band is the fraction of rendering ticks whose force error stays within
// threshold percent. Calibration ticks render no force and are skipped.
type Band struct {
	name      string
	threshold float64
	inside    int
	samples   int
}

func NewBand(threshold float64) *Band {
	return &Band{
		name:      "in_band",
		threshold: threshold,
	}
}

func (b *Band) Name() string {
	return b.name
}

func (b *Band) Observe(r device.Record) {
	if r.TargetForce <= 0 {
		return
	}
	b.samples++
	if math.Abs(r.ErrorPercent) <= b.threshold {
		b.inside++
	}
}

func (b *Band) Value() float64 {
	if b.samples == 0 {
		return 1.0
	}
	return float64(b.inside) / float64(b.samples)
}

func (b *Band) Reset() {
	b.inside = 0
	b.samples = 0
}
