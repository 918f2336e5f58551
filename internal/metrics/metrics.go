// Package metrics summarizes how faithfully a run rendered its friction
// profile. Every metric observes the per-tick records of the loop.
package metrics

import (
	"sort"

	"github.com/san-kum/haptix/internal/device"
)

type Metric interface {
	Name() string
	Observe(r device.Record)
	Value() float64
	Reset()
}

// Collector feeds records to a set of metrics. It is a device.Observer and
// must only be used from the loop goroutine.
type Collector struct {
	metrics []Metric
}

func NewCollector(ms ...Metric) *Collector {
	return &Collector{metrics: ms}
}

// Default is the set stored with every session. period is the loop tick
// in seconds.
func Default(bandPercent, period float64) *Collector {
	return NewCollector(
		NewErrorRMS(),
		NewErrorMean(),
		NewErrorStdDev(),
		NewBand(bandPercent),
		NewControlEffort(),
		NewSlipTime(),
		NewChatter(period),
	)
}

func (c *Collector) OnRecord(r device.Record) {
	for _, m := range c.metrics {
		m.Observe(r)
	}
}

func (c *Collector) Values() map[string]float64 {
	out := make(map[string]float64, len(c.metrics))
	for _, m := range c.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Names returns the metric names in a stable order.
func (c *Collector) Names() []string {
	names := make([]string, 0, len(c.metrics))
	for _, m := range c.metrics {
		names = append(names, m.Name())
	}
	sort.Strings(names)
	return names
}

func (c *Collector) Reset() {
	for _, m := range c.metrics {
		m.Reset()
	}
}
