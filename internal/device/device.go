package device

import (
	"math"
	"time"
)

// Sample is one raw potentiometer reading together with the time it was
// taken. Samples are values and never modified after capture.
type Sample struct {
	Raw  float64
	Time time.Time
}

type Sensor interface {
	Read() (float64, error)
}

// Actuator moves the servo horn. Callers pass angles already clamped to the
// configured range.
type Actuator interface {
	Set(angle float64) error
}

// ServoRange is the angle/pulse configuration an Actuator is driven with.
type ServoRange struct {
	AngleMax float64
	PulseMin float64 // microseconds at 0 degrees
	PulseMax float64 // microseconds at AngleMax
}

// Pulse converts an angle into a pulse width in microseconds.
func (r ServoRange) Pulse(angle float64) float64 {
	if r.AngleMax <= 0 {
		return r.PulseMin
	}
	a := math.Max(0, math.Min(angle, r.AngleMax))
	return r.PulseMin + (r.PulseMax-r.PulseMin)*a/r.AngleMax
}

type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock is the wall clock used on real hardware.
var SystemClock Clock = systemClock{}
