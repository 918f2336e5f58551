package device

import "errors"

// Domain errors for the control loop and its collaborators.
var (
	// ErrSensor wraps failures reported by the position sensor.
	ErrSensor = errors.New("device: sensor read failed")

	// ErrActuator wraps failures reported by the servo driver.
	ErrActuator = errors.New("device: actuator write failed")

	// ErrConfig marks configuration that cannot drive a session.
	ErrConfig = errors.New("device: invalid configuration")

	// ErrClosed is returned by collaborators used after Close.
	ErrClosed = errors.New("device: closed")
)

// TickError wraps an I/O failure with the tick it happened on.
type TickError struct {
	Tick    int
	Time    float64
	Wrapped error
}

func (e *TickError) Error() string {
	return e.Wrapped.Error()
}

func (e *TickError) Unwrap() error {
	return e.Wrapped
}
