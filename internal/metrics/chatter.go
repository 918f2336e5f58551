package metrics

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/haptix/internal/device"
)

// Chatter is the dominant frequency, in Hz, of the servo command while
// rendering. A stable loop shows low frequencies; a limit cycle shows up as
// a sharp peak near the Nyquist rate.
type Chatter struct {
	period   float64
	commands []float64
}

func NewChatter(period float64) *Chatter {
	return &Chatter{period: period}
}

func (c *Chatter) Name() string { return "chatter_hz" }

func (c *Chatter) Observe(r device.Record) {
	if r.TargetForce <= 0 {
		return
	}
	c.commands = append(c.commands, r.Command)
}

func (c *Chatter) Value() float64 {
	n := len(c.commands)
	if n < 4 || c.period <= 0 {
		return 0
	}

	mean := stat.Mean(c.commands, nil)
	seq := make([]float64, n)
	for i, v := range c.commands {
		seq[i] = v - mean
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, seq)

	peak, best := 0, 0.0
	for k := 1; k < len(coeffs); k++ {
		if mag := cmplx.Abs(coeffs[k]); mag > best {
			peak, best = k, mag
		}
	}
	if peak == 0 {
		return 0
	}
	return fft.Freq(peak) / c.period
}

func (c *Chatter) Reset() { c.commands = c.commands[:0] }
