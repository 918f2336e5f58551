package backend

import (
	"errors"
	"io"
	"testing"

	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/san-kum/haptix/internal/config"
	"github.com/san-kum/haptix/internal/device"
	"github.com/san-kum/haptix/internal/plant"
)

func TestOpenSim(t *testing.T) {
	g := NewWithT(t)
	r := NewRegistry()

	rig, err := r.Open("sim", config.DefaultConfig(), nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(rig.Sensor).To(BeAssignableToTypeOf(&plant.Rig{}))
	g.Expect(rig.Actuator).To(BeIdenticalTo(rig.Sensor))
	g.Expect(rig.Clock).To(BeAssignableToTypeOf(&plant.Clock{}))

	raw, err := rig.Sensor.Read()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(raw).To(BeNumerically(">", 0))
	g.Expect(rig.Close()).To(Succeed())
}

func TestOpenSimRealtime(t *testing.T) {
	g := NewWithT(t)
	cfg := config.DefaultConfig()
	cfg.Sim.Realtime = true

	rig, err := NewRegistry().Open("sim", cfg, zap.NewNop())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(rig.Clock).To(Equal(device.SystemClock))
}

func TestOpenSimBadIntegrator(t *testing.T) {
	g := NewWithT(t)
	cfg := config.DefaultConfig()
	cfg.Sim.Integrator = "verlet"

	_, err := NewRegistry().Open("sim", cfg, nil)
	g.Expect(errors.Is(err, device.ErrConfig)).To(BeTrue())
}

func TestOpenUnknown(t *testing.T) {
	g := NewWithT(t)
	_, err := NewRegistry().Open("can", config.DefaultConfig(), nil)
	g.Expect(errors.Is(err, device.ErrConfig)).To(BeTrue())
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

func TestRegisterAndClose(t *testing.T) {
	g := NewWithT(t)
	r := NewRegistry()

	var order []string
	r.Register("bench", func(cfg *config.Config, log *zap.Logger) (*Rig, error) {
		return &Rig{closers: []io.Closer{
			closeFunc(func() error {
				order = append(order, "adc")
				return nil
			}),
			closeFunc(func() error {
				order = append(order, "servo")
				return errors.New("halt")
			}),
		}}, nil
	})
	g.Expect(r.List()).To(Equal([]string{"bench", "hw", "serial", "sim"}))

	rig, err := r.Open("bench", config.DefaultConfig(), nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(rig.Close()).To(MatchError("halt"))
	g.Expect(order).To(Equal([]string{"servo", "adc"}))
	g.Expect(rig.Close()).To(Succeed())
}
