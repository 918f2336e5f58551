package loop

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/haptix/internal/config"
	"github.com/san-kum/haptix/internal/device"
	"github.com/san-kum/haptix/internal/plant"
)

func firstIndex(records []device.Record, match func(device.Record) bool) int {
	for i, r := range records {
		if match(r) {
			return i
		}
	}
	return -1
}

// Push the slider on the bench rig, then let go: calibrate, stick, slip,
// release and calibrate again.
func TestBenchRigSession(t *testing.T) {
	g := NewWithT(t)
	cfg := config.DefaultConfig()
	cfg.Loop.Duration = 12

	clock := plant.NewClock(epoch)
	rig, err := plant.FromConfig(cfg, clock)
	g.Expect(err).NotTo(HaveOccurred())

	sink := &captureSink{}
	l, err := New(cfg, rig, rig, WithClock(clock), WithSinks(sink))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(l.Run(context.Background())).To(Succeed())

	recs := sink.records
	g.Expect(recs).NotTo(BeEmpty())
	g.Expect(sink.flushes).To(Equal(1))
	g.Expect(rig.Command()).To(Equal(cfg.Servo.Neutral))

	for _, r := range recs {
		g.Expect(r.Command).To(BeNumerically(">=", cfg.Servo.AngleMin))
		g.Expect(r.Command).To(BeNumerically("<=", cfg.Servo.AngleMax))
	}

	static := firstIndex(recs, func(r device.Record) bool { return r.Mode == "Static" })
	g.Expect(static).To(BeNumerically(">", 0))
	g.Expect(recs[static].Time).To(BeNumerically("<", 4.0))

	// Holding still before the push: the spring renders the static force.
	for _, r := range recs {
		if r.Time > 3.5 && r.Time < 4.0 {
			g.Expect(r.Mode).To(Equal("Static"))
			g.Expect(r.ErrorPercent).To(BeNumerically("~", 0, 2))
		}
	}

	dynamic := firstIndex(recs, func(r device.Record) bool { return r.Mode == "Dynamic" })
	g.Expect(dynamic).To(BeNumerically(">", static))
	g.Expect(recs[dynamic].Time).To(BeNumerically("~", 4.0, 0.2))

	for _, r := range recs {
		if r.Session == 1 && r.Time > 5.5 && r.Time < 7.0 {
			g.Expect(r.Mode).To(Equal("Dynamic"))
			g.Expect(r.ErrorPercent).To(BeNumerically("~", 0, 15))
			// Operator pushes at 4 mm/s while the servo backs off.
			g.Expect(r.ExternalVelocity).To(BeNumerically("~", 4, 1.5))
		}
	}

	second := firstIndex(recs, func(r device.Record) bool { return r.Session == 2 })
	g.Expect(second).To(BeNumerically(">", dynamic))
	g.Expect(recs[second].Mode).To(Equal("Calibrating"))
	// Release near 7 s, 2 s hold, 1 s warm-up.
	g.Expect(recs[second].Time).To(BeNumerically(">=", 10.0))
	g.Expect(l.Session()).To(Equal(2))
}

func TestBenchRigWithoutRelease(t *testing.T) {
	g := NewWithT(t)
	cfg := config.DefaultConfig()
	cfg.Loop.Duration = 9
	cfg.Loop.ResetOnRelease = false

	clock := plant.NewClock(epoch)
	rig, err := plant.FromConfig(cfg, clock)
	g.Expect(err).NotTo(HaveOccurred())

	sink := &captureSink{}
	l, err := New(cfg, rig, rig, WithClock(clock), WithSinks(sink))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(l.Run(context.Background())).To(Succeed())

	g.Expect(l.Session()).To(Equal(1))
	g.Expect(l.Mode().String()).To(Equal("Dynamic"))
	last := sink.records[len(sink.records)-1]
	g.Expect(last.Mode).To(Equal("Dynamic"))
}
