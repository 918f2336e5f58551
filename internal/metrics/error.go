package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/haptix/internal/device"
)

// errorSeries keeps the force error of every rendering tick.
type errorSeries struct {
	name   string
	values []float64
	reduce func([]float64) float64
}

func (e *errorSeries) Name() string { return e.name }

func (e *errorSeries) Observe(r device.Record) {
	if r.TargetForce <= 0 {
		return
	}
	e.values = append(e.values, r.ErrorPercent)
}

func (e *errorSeries) Value() float64 {
	if len(e.values) == 0 {
		return 0
	}
	return e.reduce(e.values)
}

func (e *errorSeries) Reset() { e.values = e.values[:0] }

func NewErrorRMS() Metric {
	return &errorSeries{name: "error_rms", reduce: func(v []float64) float64 {
		return math.Sqrt(floats.Dot(v, v) / float64(len(v)))
	}}
}

func NewErrorMean() Metric {
	return &errorSeries{name: "error_mean", reduce: func(v []float64) float64 {
		return stat.Mean(v, nil)
	}}
}

// NewErrorStdDev is the sample standard deviation; one tick reports 0.
func NewErrorStdDev() Metric {
	return &errorSeries{name: "error_std", reduce: func(v []float64) float64 {
		if len(v) < 2 {
			return 0
		}
		return stat.StdDev(v, nil)
	}}
}
