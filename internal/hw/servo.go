package hw

import (
	"fmt"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/san-kum/haptix/internal/config"
	"github.com/san-kum/haptix/internal/device"
)

type pwmPin interface {
	PWM(duty gpio.Duty, f physic.Frequency) error
	Halt() error
}

// Servo drives a hobby servo with a PWM pulse whose width is linear in
// the commanded angle.
type Servo struct {
	pin   pwmPin
	rng   device.ServoRange
	freq  physic.Frequency
	hertz float64
}

func newServo(pin pwmPin, rng device.ServoRange, hertz float64) *Servo {
	return &Servo{
		pin:   pin,
		rng:   rng,
		freq:  physic.Frequency(hertz * float64(physic.Hertz)),
		hertz: hertz,
	}
}

func OpenServo(cfg *config.Config, log *zap.Logger) (*Servo, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	var pin gpio.PinIO
	err := retry("servo", openBackOff(cfg.Hardware.OpenRetries), log, func() error {
		pin = gpioreg.ByName(cfg.Servo.Pin)
		if pin == nil {
			return fmt.Errorf("gpio %q not found", cfg.Servo.Pin)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrActuator, err)
	}
	log.Info("servo ready", zap.String("pin", pin.Name()), zap.Float64("hz", cfg.Servo.Frequency))
	return newServo(pin, cfg.ServoRange(), cfg.Servo.Frequency), nil
}

// Duty converts an angle into the PWM duty cycle at the servo frequency.
func (s *Servo) Duty(angle float64) gpio.Duty {
	periodUs := 1e6 / s.hertz
	return gpio.Duty(float64(gpio.DutyMax) * s.rng.Pulse(angle) / periodUs)
}

func (s *Servo) Set(angle float64) error {
	if err := s.pin.PWM(s.Duty(angle), s.freq); err != nil {
		return fmt.Errorf("%w: pwm: %v", device.ErrActuator, err)
	}
	return nil
}

func (s *Servo) Close() error {
	return s.pin.Halt()
}
