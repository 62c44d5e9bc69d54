package render

import (
	"image/color"
	"math"
)

// ColorTheme selects a predefined color scheme for magnitude
// visualization.
type ColorTheme string

const (
	ClassicTheme   ColorTheme = "classic"   // Blue to red transition
	GrayscaleTheme ColorTheme = "grayscale" // Black to white transition
	ThermalTheme   ColorTheme = "thermal"   // Black to red to yellow to white

	// DefaultColorMapSize is the number of pre-computed colors in the map.
	DefaultColorMapSize = 256
)

// ColorMapper maps magnitude values onto a pre-computed color ramp for a
// fixed power range.
type ColorMapper struct {
	colorMap      []color.Color
	size          int
	boundsMin     float64
	powerPerIndex float64
}

// NewColorMapper builds the color ramp for the given theme and bounds.
func NewColorMapper(theme ColorTheme, bounds PowerBounds) *ColorMapper {
	cm := ColorMapper{
		colorMap:      make([]color.Color, DefaultColorMapSize),
		size:          DefaultColorMapSize,
		boundsMin:     bounds.Min,
		powerPerIndex: (bounds.Max - bounds.Min) / float64(DefaultColorMapSize-1),
	}

	ramp := themeRamp(theme)
	for i := range cm.colorMap {
		cm.colorMap[i] = ramp(float64(i) / float64(cm.size-1))
	}
	return &cm
}

// GetColor returns the color for a magnitude value, clamped to the bounds.
func (cm *ColorMapper) GetColor(power float64) color.Color {
	index := int((power - cm.boundsMin) / cm.powerPerIndex)
	if index < 0 {
		return cm.colorMap[0]
	}
	if index >= cm.size {
		return cm.colorMap[cm.size-1]
	}
	return cm.colorMap[index]
}

// hsv represents a color in HSV color space.
type hsv struct {
	h float64 // Hue angle in degrees [0-360]
	s float64 // Saturation [0-1]
	v float64 // Value [0-1]
}

// rgb converts HSV to RGB color space.
func (c hsv) rgb() color.Color {
	if c.s <= 0.0 {
		v := uint8(c.v * 255)
		return color.RGBA{R: v, G: v, B: v, A: 255}
	}

	h := c.h
	if h >= 360 {
		h -= 360
	}
	h /= 60

	i := int(h)
	f := h - float64(i)

	v := uint8(c.v * 255)
	p := uint8((c.v * (1 - c.s)) * 255)
	q := uint8((c.v * (1 - (c.s * f))) * 255)
	t := uint8((c.v * (1 - (c.s * (1 - f)))) * 255)

	switch i {
	case 0:
		return color.RGBA{R: v, G: t, B: p, A: 255}
	case 1:
		return color.RGBA{R: q, G: v, B: p, A: 255}
	case 2:
		return color.RGBA{R: p, G: v, B: t, A: 255}
	case 3:
		return color.RGBA{R: p, G: q, B: v, A: 255}
	case 4:
		return color.RGBA{R: t, G: p, B: v, A: 255}
	default: // case 5
		return color.RGBA{R: v, G: p, B: q, A: 255}
	}
}

func themeRamp(theme ColorTheme) func(float64) color.Color {
	switch theme {
	case GrayscaleTheme:
		return func(power float64) color.Color {
			v := uint8(math.Pow(power, 0.7) * 255)
			return color.RGBA{R: v, G: v, B: v, A: 255}
		}

	case ThermalTheme:
		return func(power float64) color.Color {
			if power < 0.33 {
				return color.RGBA{R: uint8((power * 3) * 255), A: 255}
			}
			if power < 0.66 {
				return color.RGBA{R: 255, G: uint8(((power - 0.33) * 3) * 255), A: 255}
			}
			return color.RGBA{R: 255, G: 255, B: uint8(((power - 0.66) * 3) * 255), A: 255}
		}

	default: // ClassicTheme
		return func(power float64) color.Color {
			return hsv{
				h: 240 - (power * 240),
				s: 0.9 + (power * 0.1),
				v: math.Pow(power, 0.7),
			}.rgb()
		}
	}
}
