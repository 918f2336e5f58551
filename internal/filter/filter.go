// Package filter turns raw potentiometer counts into a smoothed slider
// position and provides the high-pass used to measure target motion.
package filter

// Mapping is the affine transform from raw ADC counts to millimetres of
// spring compression: position = (raw/FullScale)*Span/Cal + Offset.
type Mapping struct {
	FullScale float64
	Span      float64
	Cal       float64
	Offset    float64
}

// DefaultMapping matches the 16-bit ADS1115 reading of the slide pot on the
// reference rig.
var DefaultMapping = Mapping{
	FullScale: 32767,
	Span:      10.5,
	Cal:       1.01,
	Offset:    1.0,
}

func (m Mapping) Position(raw float64) float64 {
	return (raw/m.FullScale)*m.Span/m.Cal + m.Offset
}

// Raw is the inverse of Position.
func (m Mapping) Raw(position float64) float64 {
	return (position - m.Offset) * m.Cal / m.Span * m.FullScale
}

// LowPass is a single-pole exponential smoother over mapped positions.
type LowPass struct {
	alpha   float64
	mapping Mapping
	prev    float64
	primed  bool
}

// NewLowPass returns a filter with smoothing factor alpha in (0,1].
// Larger alpha follows the sensor more closely.
func NewLowPass(alpha float64, m Mapping) *LowPass {
	return &LowPass{alpha: alpha, mapping: m}
}

// Apply maps raw and blends it into the running estimate. The first call
// returns the mapped value unchanged. Out-of-range raw values pass through.
func (f *LowPass) Apply(raw float64) float64 {
	pos := f.mapping.Position(raw)
	if !f.primed {
		f.prev = pos
		f.primed = true
		return pos
	}
	f.prev = f.alpha*pos + (1-f.alpha)*f.prev
	return f.prev
}

// Last returns the previous smoothed position and whether one exists.
func (f *LowPass) Last() (float64, bool) {
	return f.prev, f.primed
}

func (f *LowPass) Reset() {
	f.prev = 0
	f.primed = false
}

// HighPass is a first-order high-pass: y = a*(y' + x - x').
type HighPass struct {
	a      float64
	prevX  float64
	prevY  float64
	primed bool
}

func NewHighPass(a float64) *HighPass {
	return &HighPass{a: a}
}

func (h *HighPass) Apply(x float64) float64 {
	if !h.primed {
		h.prevX = x
		h.primed = true
	}
	y := h.a * (h.prevY + x - h.prevX)
	h.prevX = x
	h.prevY = y
	return y
}

func (h *HighPass) Reset() {
	*h = HighPass{a: h.a}
}
