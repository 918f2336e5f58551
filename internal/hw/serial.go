package hw

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/san-kum/haptix/internal/config"
	"github.com/san-kum/haptix/internal/device"
)

// sampleRequest asks the microcontroller bridge for one conversion; it
// answers with the raw count on its own line.
const sampleRequest = "r\n"

const readTimeout = 100 * time.Millisecond

// SerialADC reads the potentiometer through a microcontroller on a serial
// line.
type SerialADC struct {
	rw     io.ReadWriteCloser
	r      *bufio.Reader
	closed bool
}

func NewSerialADC(rw io.ReadWriteCloser) *SerialADC {
	return &SerialADC{rw: rw, r: bufio.NewReader(rw)}
}

func OpenSerialADC(cfg config.HardwareConfig, log *zap.Logger) (*SerialADC, error) {
	if log == nil {
		log = zap.NewNop()
	}
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	var port serial.Port
	err := retry("serial", openBackOff(cfg.OpenRetries), log, func() error {
		p, err := serial.Open(cfg.SerialPort, mode)
		if err != nil {
			return err
		}
		if err := p.SetReadTimeout(readTimeout); err != nil {
			p.Close()
			return err
		}
		port = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", device.ErrSensor, cfg.SerialPort, err)
	}
	log.Info("serial adc ready", zap.String("port", cfg.SerialPort), zap.Int("baud", cfg.BaudRate))
	return NewSerialADC(port), nil
}

func (s *SerialADC) Read() (float64, error) {
	if s.closed {
		return 0, fmt.Errorf("%w: %w", device.ErrSensor, device.ErrClosed)
	}
	if _, err := io.WriteString(s.rw, sampleRequest); err != nil {
		return 0, fmt.Errorf("%w: serial write: %v", device.ErrSensor, err)
	}
	line, err := s.r.ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("%w: serial read: %v", device.ErrSensor, err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad sample %q", device.ErrSensor, strings.TrimSpace(line))
	}
	return v, nil
}

// Close releases the port. Later calls are no-ops.
func (s *SerialADC) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.rw.Close()
}
