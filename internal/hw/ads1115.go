package hw

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"

	"github.com/san-kum/haptix/internal/config"
	"github.com/san-kum/haptix/internal/device"
)

type adcPin interface {
	Read() (analog.Sample, error)
	Halt() error
}

// ADS1115 reads the potentiometer through one single-ended channel. Read
// returns the signed 16-bit conversion result.
type ADS1115 struct {
	pin adcPin
	bus i2c.BusCloser
}

var channels = []ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3}

func OpenADS1115(cfg config.HardwareConfig, log *zap.Logger) (*ADS1115, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ADCChannel < 0 || cfg.ADCChannel >= len(channels) {
		return nil, fmt.Errorf("%w: adc channel %d", device.ErrConfig, cfg.ADCChannel)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	var a *ADS1115
	err := retry("ads1115", openBackOff(cfg.OpenRetries), log, func() error {
		bus, err := i2creg.Open(cfg.I2CBus)
		if err != nil {
			return fmt.Errorf("i2c open %q: %w", cfg.I2CBus, err)
		}
		dev, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: cfg.ADCAddress})
		if err != nil {
			bus.Close()
			return fmt.Errorf("ads1115 init: %w", err)
		}
		pin, err := dev.PinForChannel(channels[cfg.ADCChannel], 4096*physic.MilliVolt, 860*physic.Hertz, ads1x15.BestQuality)
		if err != nil {
			bus.Close()
			return fmt.Errorf("ads1115 channel %d: %w", cfg.ADCChannel, err)
		}
		a = &ADS1115{pin: pin, bus: bus}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrSensor, err)
	}
	log.Info("adc ready", zap.String("bus", cfg.I2CBus), zap.Uint16("address", cfg.ADCAddress), zap.Int("channel", cfg.ADCChannel))
	return a, nil
}

func (a *ADS1115) Read() (float64, error) {
	s, err := a.pin.Read()
	if err != nil {
		return 0, fmt.Errorf("%w: ads1115: %v", device.ErrSensor, err)
	}
	return float64(s.Raw), nil
}

func (a *ADS1115) Close() error {
	err := a.pin.Halt()
	if a.bus != nil {
		err = multierr.Append(err, a.bus.Close())
	}
	return err
}
