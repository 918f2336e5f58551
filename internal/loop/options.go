package loop

import (
	"go.uber.org/zap"

	"github.com/san-kum/haptix/internal/device"
)

type Option func(*Loop)

func WithLogger(log *zap.Logger) Option {
	return func(l *Loop) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClock replaces the wall clock, e.g. with plant.Clock for benches.
func WithClock(c device.Clock) Option {
	return func(l *Loop) {
		if c != nil {
			l.clock = c
		}
	}
}

func WithSinks(sinks ...device.Sink) Option {
	return func(l *Loop) { l.sinks = append(l.sinks, sinks...) }
}

func WithObservers(obs ...device.Observer) Option {
	return func(l *Loop) { l.observers = append(l.observers, obs...) }
}
