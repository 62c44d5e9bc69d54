package sweep

import "fmt"

// Sweep is a single spectrum measurement: a frequency axis and one
// magnitude reading per frequency point. A Sweep is immutable once
// constructed; consumers must treat both slices as read-only.
type Sweep struct {
	Frequencies []float64 // Frequency axis in Hz, strictly increasing
	Magnitudes  []float64 // Measured magnitudes in dBm, one per frequency
}

// New validates and constructs a Sweep. The frequency axis must be strictly
// increasing and of the same, nonzero length as the magnitude vector.
func New(frequencies, magnitudes []float64) (*Sweep, error) {
	if len(frequencies) == 0 {
		return nil, fmt.Errorf("empty frequency axis")
	}
	if len(frequencies) != len(magnitudes) {
		return nil, fmt.Errorf("axis/magnitude length mismatch: %d != %d", len(frequencies), len(magnitudes))
	}
	for i := 1; i < len(frequencies); i++ {
		if frequencies[i] <= frequencies[i-1] {
			return nil, fmt.Errorf("frequency axis is not strictly increasing at index %d", i)
		}
	}
	return &Sweep{Frequencies: frequencies, Magnitudes: magnitudes}, nil
}

// Points returns the number of measurement points in the sweep.
func (s *Sweep) Points() int {
	return len(s.Frequencies)
}

// SpanLow returns the first frequency of the axis in Hz.
func (s *Sweep) SpanLow() float64 {
	return s.Frequencies[0]
}

// SpanHigh returns the last frequency of the axis in Hz.
func (s *Sweep) SpanHigh() float64 {
	return s.Frequencies[len(s.Frequencies)-1]
}

// Axis builds a linearly spaced frequency axis from startHz to stopHz
// inclusive, with the given number of points.
func Axis(startHz, stopHz float64, points int) ([]float64, error) {
	if points < 2 {
		return nil, fmt.Errorf("axis requires at least 2 points, got %d", points)
	}
	if startHz >= stopHz {
		return nil, fmt.Errorf("invalid frequency span: start=%f, stop=%f", startHz, stopHz)
	}

	axis := make([]float64, points)
	step := (stopHz - startHz) / float64(points-1)
	for i := range axis {
		axis[i] = startHz + float64(i)*step
	}
	axis[points-1] = stopHz // exact endpoint regardless of accumulated error
	return axis, nil
}
