// Package tune sweeps controller gains against the simulated rig and ranks
// them by one of the session metrics.
package tune

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/haptix/internal/config"
	"github.com/san-kum/haptix/internal/device"
	"github.com/san-kum/haptix/internal/loop"
	"github.com/san-kum/haptix/internal/metrics"
	"github.com/san-kum/haptix/internal/plant"
)

// higherIsBetter lists the metrics ranked in descending order.
var higherIsBetter = map[string]bool{
	"in_band": true,
}

var epoch = time.Unix(0, 0)

type Gains struct {
	Kp, Ki, Kd float64
}

// Grid lists the values tried for each gain. An empty axis keeps the base
// configuration's value.
type Grid struct {
	Kp, Ki, Kd []float64
}

func (g Grid) Candidates(base Gains) []Gains {
	axis := func(vals []float64, def float64) []float64 {
		if len(vals) == 0 {
			return []float64{def}
		}
		return vals
	}

	var out []Gains
	for _, kp := range axis(g.Kp, base.Kp) {
		for _, ki := range axis(g.Ki, base.Ki) {
			for _, kd := range axis(g.Kd, base.Kd) {
				out = append(out, Gains{Kp: kp, Ki: ki, Kd: kd})
			}
		}
	}
	return out
}

type Result struct {
	Gains
	Metrics  map[string]float64
	Rendered int // ticks with a force target
	Err      error
}

type Search struct {
	base        *config.Config
	metric      string
	bandPercent float64
	workers     int
	log         *zap.Logger
}

// New checks metric against the default metric set. workers below one runs
// the candidates one at a time.
func New(base *config.Config, metric string, bandPercent float64, workers int, log *zap.Logger) (*Search, error) {
	known := false
	for _, name := range metrics.Default(bandPercent, base.Loop.Period).Names() {
		if name == metric {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: unknown metric %q", device.ErrConfig, metric)
	}
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Search{base: base, metric: metric, bandPercent: bandPercent, workers: workers, log: log}, nil
}

func (s *Search) Metric() string { return s.metric }

// Run plays the operator script once per candidate and returns the results
// best first. Candidates that failed or never rendered a force sort last.
func (s *Search) Run(ctx context.Context, grid Grid) ([]Result, error) {
	candidates := grid.Candidates(Gains{
		Kp: s.base.Controller.Kp,
		Ki: s.base.Controller.Ki,
		Kd: s.base.Controller.Kd,
	})
	results := make([]Result, len(candidates))
	sem := make(chan struct{}, s.workers)

	var wg sync.WaitGroup
	for i, gains := range candidates {
		wg.Add(1)
		go func(idx int, gains Gains) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = s.evaluate(ctx, gains)
		}(i, gains)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return s.better(results[i], results[j])
	})
	return results, nil
}

func (s *Search) evaluate(ctx context.Context, gains Gains) Result {
	res := Result{Gains: gains}

	cfg := *s.base
	cfg.Sim.Realtime = false
	if cfg.Loop.Duration == 0 {
		cfg.Loop.Duration = cfg.ScriptSpan()
	}

	clock := plant.NewClock(epoch)
	rig, err := plant.FromConfig(&cfg, clock)
	if err != nil {
		res.Err = err
		return res
	}
	defer rig.Close()

	collector := metrics.Default(s.bandPercent, cfg.Loop.Period)
	counter := device.ObserverFunc(func(r device.Record) {
		if r.TargetForce > 0 {
			res.Rendered++
		}
	})

	log := s.log.With(zap.Float64("kp", gains.Kp), zap.Float64("ki", gains.Ki), zap.Float64("kd", gains.Kd))
	l, err := loop.New(&cfg, rig, rig,
		loop.WithClock(clock),
		loop.WithLogger(log),
		loop.WithObservers(collector, counter),
	)
	if err != nil {
		res.Err = err
		return res
	}
	for _, p := range []struct {
		name  string
		value float64
	}{{"Kp", gains.Kp}, {"Ki", gains.Ki}, {"Kd", gains.Kd}} {
		if err := l.SetGain(p.name, p.value); err != nil {
			res.Err = err
			return res
		}
	}
	if err := l.Run(ctx); err != nil {
		res.Err = err
		return res
	}

	res.Metrics = collector.Values()
	log.Debug("candidate done", zap.Float64(s.metric, res.Metrics[s.metric]), zap.Int("rendered", res.Rendered))
	return res
}

func (s *Search) better(a, b Result) bool {
	if usable(a) != usable(b) {
		return usable(a)
	}
	if !usable(a) {
		return false
	}
	va, vb := a.Metrics[s.metric], b.Metrics[s.metric]
	if math.IsNaN(vb) {
		return !math.IsNaN(va)
	}
	if higherIsBetter[s.metric] {
		return va > vb
	}
	return va < vb
}

func usable(r Result) bool {
	return r.Err == nil && r.Rendered > 0
}
