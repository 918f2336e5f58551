// Package hysteresis predicts how much of the measured slider velocity is
// caused by the servo itself.
//
// A commanded angle step does not move the horn instantly: backlash and the
// servo's own loop spread one delta over several ticks. The model is a
// fixed FIR over recent command deltas, trained offline and loaded as a
// coefficient vector indexed by "ticks ago".
package hysteresis

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/floats"
)

var ErrNoCoefficients = errors.New("hysteresis: empty coefficient vector")

type Model struct {
	coeffs []float64
}

// New copies coeffs; the model never changes afterwards.
func New(coeffs []float64) (*Model, error) {
	if len(coeffs) == 0 {
		return nil, ErrNoCoefficients
	}
	c := make([]float64, len(coeffs))
	copy(c, coeffs)
	return &Model{coeffs: c}, nil
}

// Len is the number of history entries the model consumes.
func (m *Model) Len() int { return len(m.coeffs) }

func (m *Model) Coefficients() []float64 {
	c := make([]float64, len(m.coeffs))
	copy(c, m.coeffs)
	return c
}

// PredictSelfVelocity returns the dot product of the coefficients with
// history, most recent delta first. Extra entries on either side are
// ignored.
func (m *Model) PredictSelfVelocity(history []float64) float64 {
	n := len(m.coeffs)
	if len(history) < n {
		n = len(history)
	}
	if n == 0 {
		return 0
	}
	return floats.Dot(m.coeffs[:n], history[:n])
}

// LoadCoefficients reads the coefficient vector from path and keeps at most
// limit values (all of them when limit <= 0). A ".npy" file is read as the
// NumPy array the offline fit saves; anything else is text: whitespace,
// comma or newline separated floats, with blank lines and '#' comments
// skipped.
func LoadCoefficients(path string, limit int) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open coefficients: %w", err)
	}
	defer f.Close()

	var coeffs []float64
	if strings.EqualFold(filepath.Ext(path), ".npy") {
		if err := npyio.Read(f, &coeffs); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	} else {
		coeffs, err = readText(path, f)
		if err != nil {
			return nil, err
		}
	}

	if len(coeffs) == 0 {
		return nil, ErrNoCoefficients
	}
	if limit > 0 && len(coeffs) > limit {
		coeffs = coeffs[:limit]
	}
	return coeffs, nil
}

func readText(path string, r io.Reader) ([]float64, error) {
	var coeffs []float64
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		for _, field := range strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		}) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, line, err)
			}
			coeffs = append(coeffs, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return coeffs, nil
}
