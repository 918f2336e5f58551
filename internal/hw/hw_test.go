package hw

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/cenkalti/backoff"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/san-kum/haptix/internal/device"
)

type fakePWM struct {
	duty   gpio.Duty
	freq   physic.Frequency
	err    error
	halted bool
}

func (p *fakePWM) PWM(d gpio.Duty, f physic.Frequency) error {
	p.duty, p.freq = d, f
	return p.err
}

func (p *fakePWM) Halt() error {
	p.halted = true
	return nil
}

var rigRange = device.ServoRange{AngleMax: 180, PulseMin: 500, PulseMax: 2400}

func TestServoDuty(t *testing.T) {
	g := NewWithT(t)
	pin := &fakePWM{}
	s := newServo(pin, rigRange, 50)

	tests := []struct {
		angle float64
		pulse float64 // microseconds
	}{
		{0, 500},
		{90, 1450},
		{180, 2400},
		{-10, 500},
		{200, 2400},
	}
	for _, tt := range tests {
		want := float64(gpio.DutyMax) * tt.pulse / 20000
		g.Expect(float64(s.Duty(tt.angle))).To(BeNumerically("~", want, 1), "angle %.0f", tt.angle)
	}

	g.Expect(s.Set(90)).To(Succeed())
	g.Expect(pin.freq).To(Equal(50 * physic.Hertz))
	g.Expect(pin.duty).To(Equal(s.Duty(90)))

	g.Expect(s.Close()).To(Succeed())
	g.Expect(pin.halted).To(BeTrue())
}

func TestServoSetError(t *testing.T) {
	g := NewWithT(t)
	s := newServo(&fakePWM{err: errors.New("not exported")}, rigRange, 50)
	g.Expect(errors.Is(s.Set(10), device.ErrActuator)).To(BeTrue())
}

type fakeADC struct {
	raw int32
	err error
}

func (a *fakeADC) Read() (analog.Sample, error) {
	return analog.Sample{Raw: a.raw}, a.err
}

func (a *fakeADC) Halt() error { return nil }

func TestADS1115Read(t *testing.T) {
	g := NewWithT(t)
	a := &ADS1115{pin: &fakeADC{raw: 15000}}

	v, err := a.Read()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(v).To(Equal(15000.0))

	a.pin = &fakeADC{err: errors.New("nack")}
	_, err = a.Read()
	g.Expect(errors.Is(err, device.ErrSensor)).To(BeTrue())

	g.Expect(a.Close()).To(Succeed())
}

type fakeLine struct {
	io.Reader
	written bytes.Buffer
	closed  bool
}

func (f *fakeLine) Write(p []byte) (int, error) { return f.written.Write(p) }
func (f *fakeLine) Close() error {
	f.closed = true
	return nil
}

func TestSerialADC(t *testing.T) {
	g := NewWithT(t)
	line := &fakeLine{Reader: strings.NewReader("12345\r\n  -7\nnoise\n")}
	s := NewSerialADC(line)

	v, err := s.Read()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(v).To(Equal(12345.0))

	v, err = s.Read()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(v).To(Equal(-7.0))

	_, err = s.Read()
	g.Expect(errors.Is(err, device.ErrSensor)).To(BeTrue())

	_, err = s.Read()
	g.Expect(errors.Is(err, device.ErrSensor)).To(BeTrue(), "EOF is a sensor failure")

	g.Expect(line.written.String()).To(Equal(strings.Repeat(sampleRequest, 4)))
	g.Expect(s.Close()).To(Succeed())
	g.Expect(line.closed).To(BeTrue())

	_, err = s.Read()
	g.Expect(errors.Is(err, device.ErrClosed)).To(BeTrue())
	g.Expect(errors.Is(err, device.ErrSensor)).To(BeTrue())
	g.Expect(line.written.String()).To(Equal(strings.Repeat(sampleRequest, 4)), "no request after close")
	g.Expect(s.Close()).To(Succeed())
}

func TestRetryGivesUp(t *testing.T) {
	g := NewWithT(t)
	calls := 0
	b := backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
	err := retry("test", b, zap.NewNop(), func() error {
		calls++
		return errors.New("busy")
	})
	g.Expect(err).To(MatchError("busy"))
	g.Expect(calls).To(Equal(3))
}

func TestRetrySucceeds(t *testing.T) {
	g := NewWithT(t)
	calls := 0
	err := retry("test", backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 5), zap.NewNop(), func() error {
		calls++
		if calls < 3 {
			return errors.New("busy")
		}
		return nil
	})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(calls).To(Equal(3))
}
