package friction_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/haptix/internal/friction"
)

func rigParams() friction.Params {
	return friction.Params{
		SpringRate:        0.16,
		MaxStaticFriction: 0.8,
		DynamicFriction:   0.4,
		SlipVelocity:      0.2,
		ResetVelocity:     -5,
		ResetOnRelease:    true,
		Schedule:          friction.DefaultSchedule,
		Tolerance:         0.03,
	}
}

// calibrated returns a machine already in Static.
func calibrated(p friction.Params) *friction.Machine {
	m := friction.NewMachine(p)
	out := m.Evaluate(5.0)
	Expect(out.Transition).To(Equal(friction.Calibrated))
	return m
}

var _ = Describe("Machine", func() {
	var m *friction.Machine

	BeforeEach(func() {
		m = friction.NewMachine(rigParams())
	})

	It("starts calibrating with zero force", func() {
		Expect(m.Mode()).To(Equal(friction.Calibrating))
		out := m.Evaluate(7.0)
		Expect(out.Mode).To(Equal(friction.Calibrating))
		Expect(out.Force).To(BeZero())
	})

	It("places the setpoint at the static target position", func() {
		Expect(m.Setpoint()).To(BeNumerically("~", 5.0, 1e-9))
	})

	DescribeTable("calibration corrections",
		func(position, target float64) {
			out := m.Evaluate(position)
			Expect(out.Mode).To(Equal(friction.Calibrating))
			Expect(out.Target).To(BeNumerically("~", target, 1e-9))
		},
		Entry("far above", 7.0, 5.0),
		Entry("just past one millimetre", 6.05, 5.75),
		Entry("half a millimetre", 5.5, 5.4),
		Entry("fine", 5.05, 5.04),
	)

	It("ends calibration inside the tolerance band", func() {
		out := m.Evaluate(5.01)
		Expect(out.Transition).To(Equal(friction.Calibrated))
		Expect(out.Mode).To(Equal(friction.Static))
		Expect(out.Force).To(Equal(0.8))
		Expect(m.Mode()).To(Equal(friction.Static))
	})

	It("ends calibration when the slider is below the setpoint", func() {
		out := m.Evaluate(3.0)
		Expect(out.Transition).To(Equal(friction.Calibrated))
	})

	It("holds the last target between schedule entries", func() {
		p := rigParams()
		p.Schedule = friction.Schedule{{Above: 1.0, Step: 0.5}}
		m = friction.NewMachine(p)

		out := m.Evaluate(6.5)
		Expect(out.Target).To(BeNumerically("~", 6.0, 1e-9))

		out = m.Evaluate(5.5)
		Expect(out.Mode).To(Equal(friction.Calibrating))
		Expect(out.Target).To(BeNumerically("~", 6.0, 1e-9))
	})

	Context("in Static", func() {
		BeforeEach(func() {
			m = calibrated(rigParams())
		})

		It("slips when force and external velocity agree on the same tick", func() {
			Expect(m.Observe(0.8, 5.0)).To(Equal(friction.Slipped))

			out := m.Evaluate(5.0)
			Expect(out.Mode).To(Equal(friction.Dynamic))
			Expect(out.Force).To(Equal(0.4))
		})

		DescribeTable("stays static when one condition is missing",
			func(force, velocity float64) {
				Expect(m.Observe(force, velocity)).To(Equal(friction.NoTransition))
				Expect(m.Evaluate(5.0).Mode).To(Equal(friction.Static))
			},
			Entry("pressing without sliding", 0.9, 0.1),
			Entry("sliding below stiction", 0.79, 5.0),
			Entry("velocity exactly at threshold", 0.9, 0.2),
		)

		It("does not combine conditions across ticks", func() {
			Expect(m.Observe(0.9, 0.0)).To(Equal(friction.NoTransition))
			Expect(m.Observe(0.5, 5.0)).To(Equal(friction.NoTransition))
			Expect(m.Mode()).To(Equal(friction.Static))
		})
	})

	Context("in Dynamic", func() {
		BeforeEach(func() {
			m = calibrated(rigParams())
			Expect(m.Observe(1.0, 3.0)).To(Equal(friction.Slipped))
		})

		It("never returns to Static", func() {
			for _, v := range []float64{0, -1, -4.9, 10, 0.1} {
				Expect(m.Observe(0.1, v)).To(Equal(friction.NoTransition))
				Expect(m.Evaluate(5.0).Mode).To(Equal(friction.Dynamic))
			}
		})

		It("resets the session when the operator lets go", func() {
			Expect(m.Observe(0.2, -6)).To(Equal(friction.Released))
			Expect(m.Mode()).To(Equal(friction.Calibrating))
			Expect(m.Evaluate(7.0).Target).To(BeNumerically("~", 5.0, 1e-9))
		})

		It("keeps sliding when reset is disabled", func() {
			p := rigParams()
			p.ResetOnRelease = false
			m = calibrated(p)
			Expect(m.Observe(1.0, 3.0)).To(Equal(friction.Slipped))
			Expect(m.Observe(0.2, -60)).To(Equal(friction.NoTransition))
			Expect(m.Mode()).To(Equal(friction.Dynamic))
		})
	})

	It("progresses monotonically within a session", func() {
		rng := rand.New(rand.NewSource(11))
		p := rigParams()
		p.ResetOnRelease = false
		m = friction.NewMachine(p)

		prev := m.Mode()
		slips := 0
		for i := 0; i < 5000; i++ {
			m.Evaluate(3 + rng.Float64()*6)
			if m.Observe(rng.Float64()*1.6, rng.Float64()*20-10) == friction.Slipped {
				slips++
			}
			Expect(m.Mode()).To(BeNumerically(">=", prev))
			prev = m.Mode()
		}
		Expect(slips).To(BeNumerically("<=", 1))
	})
})
