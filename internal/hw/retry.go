package hw

import (
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
)

// openBackOff is the schedule used to open devices that come up slowly
// after power-on.
func openBackOff(attempts int) backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     50 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      10 * time.Second,
		Clock:               backoff.SystemClock,
	}
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithMaxRetries(b, uint64(attempts-1))
}

func retry(name string, b backoff.BackOff, log *zap.Logger, open func() error) error {
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := open()
		if err != nil {
			log.Warn("device open failed", zap.String("device", name), zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	}, b)
}
