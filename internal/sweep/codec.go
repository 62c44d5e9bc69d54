package sweep

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
)

const (
	// DefaultMinDB and DefaultMaxDB bound the plausible magnitude range for
	// a decoded reading. Values outside this range indicate a corrupted or
	// misframed response rather than a real measurement.
	DefaultMinDB = -160.0
	DefaultMaxDB = 20.0

	// spanTolerance is the relative tolerance used when cross-checking a
	// device-reported frequency span against the configured one.
	spanTolerance = 0.01
)

// ErrDecode is returned when a response frame cannot be decoded into a
// sweep. It is transient: one bad frame must not terminate acquisition.
var ErrDecode = errors.New("malformed sweep frame")

// Codec decodes device response frames into Sweep values. The device
// reports one magnitude per line; the frequency axis is fixed per device
// configuration and supplied at construction.
type Codec struct {
	axis  []float64
	minDB float64
	maxDB float64
}

// WithMagnitudeBounds overrides the sanity bounds for decoded magnitudes.
func WithMagnitudeBounds(minDB, maxDB float64) func(*Codec) {
	return func(c *Codec) {
		c.minDB = minDB
		c.maxDB = maxDB
	}
}

// NewCodec creates a Codec for the given frequency axis.
func NewCodec(axis []float64, options ...func(*Codec)) (*Codec, error) {
	if len(axis) == 0 {
		return nil, fmt.Errorf("empty frequency axis")
	}

	c := Codec{
		axis:  axis,
		minDB: DefaultMinDB,
		maxDB: DefaultMaxDB,
	}
	for _, option := range options {
		option(&c)
	}

	if c.minDB >= c.maxDB {
		return nil, fmt.Errorf("invalid magnitude bounds: min=%f, max=%f", c.minDB, c.maxDB)
	}
	return &c, nil
}

// Axis returns the configured frequency axis. The returned slice is shared
// and must be treated as read-only.
func (c *Codec) Axis() []float64 {
	return c.axis
}

// Points returns the expected number of magnitude values per frame.
func (c *Codec) Points() int {
	return len(c.axis)
}

// Rebind replaces the frequency axis. The new axis must have the same
// number of points as the current one; decoded sweeps keep their shape.
func (c *Codec) Rebind(axis []float64) error {
	if len(axis) != len(c.axis) {
		return fmt.Errorf("axis has %d points, expected %d", len(axis), len(c.axis))
	}
	c.axis = axis
	return nil
}

// Decode parses a response frame containing one magnitude per line into a
// Sweep on the configured frequency axis. The frame must contain exactly
// one value per axis point, and every value must be numeric, finite and
// within the configured magnitude bounds.
func (c *Codec) Decode(frame []byte) (*Sweep, error) {
	values, err := c.parseValues(frame)
	if err != nil {
		return nil, err
	}
	if len(values) != len(c.axis) {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrDecode, len(c.axis), len(values))
	}

	for i, v := range values {
		if v < c.minDB || v > c.maxDB {
			return nil, fmt.Errorf("%w: value %f at index %d outside [%f, %f]", ErrDecode, v, i, c.minDB, c.maxDB)
		}
	}

	return New(c.axis, values)
}

// DecodeFrequencies parses a device frequency list frame (one frequency per
// line) and cross-checks it against the configured span. It returns the
// device-reported axis, which callers may adopt in place of the configured
// one.
func (c *Codec) DecodeFrequencies(frame []byte) ([]float64, error) {
	values, err := c.parseValues(frame)
	if err != nil {
		return nil, err
	}
	if len(values) != len(c.axis) {
		return nil, fmt.Errorf("%w: expected %d frequency points, got %d", ErrDecode, len(c.axis), len(values))
	}

	for i := 1; i < len(values); i++ {
		if values[i] <= values[i-1] {
			return nil, fmt.Errorf("%w: frequency list is not strictly increasing at index %d", ErrDecode, i)
		}
	}

	if !withinTolerance(values[0], c.axis[0]) || !withinTolerance(values[len(values)-1], c.axis[len(c.axis)-1]) {
		return nil, fmt.Errorf("%w: device span [%f, %f] does not match configured span [%f, %f]",
			ErrDecode, values[0], values[len(values)-1], c.axis[0], c.axis[len(c.axis)-1])
	}

	return values, nil
}

func (c *Codec) parseValues(frame []byte) ([]float64, error) {
	var values []float64
	for _, line := range bytes.Split(frame, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		v, err := strconv.ParseFloat(string(line), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing %q: %w", ErrDecode, line, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite value %q", ErrDecode, line)
		}

		values = append(values, v)
	}
	return values, nil
}

func withinTolerance(got, want float64) bool {
	scale := math.Abs(want)
	if scale == 0 {
		scale = 1
	}
	return math.Abs(got-want) <= scale*spanTolerance
}
