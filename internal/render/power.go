package render

import "math"

const (
	defaultMinPower = -120.0 // dBm
	defaultMaxPower = -20.0  // dBm

	// Percentile bounds need a minimum population to be meaningful.
	minimumSampleCount = 20

	minimumRangeDB = 30
)

// PowerBounds is the magnitude range mapped onto the color scale.
type PowerBounds struct {
	Min float64 // 5th percentile magnitude in dBm
	Max float64 // 95th percentile magnitude in dBm
}

func defaultPowerBounds() PowerBounds {
	return PowerBounds{Min: defaultMinPower, Max: defaultMaxPower}
}

// PowerHistogram maintains a histogram of magnitude values with 1 dB bins,
// used to derive robust display bounds that ignore outliers.
type PowerHistogram struct {
	bins       map[int]uint32
	totalCount uint64
	minBin     int
	maxBin     int
}

// NewPowerHistogram creates an empty histogram.
func NewPowerHistogram() *PowerHistogram {
	return &PowerHistogram{
		bins:   make(map[int]uint32),
		minBin: math.MaxInt32,
		maxBin: math.MinInt32,
	}
}

// Update adds one magnitude reading to the histogram.
func (h *PowerHistogram) Update(power float64) {
	bin := int(math.Floor(power)) // 1dB bins

	h.bins[bin]++
	h.totalCount++

	if bin < h.minBin {
		h.minBin = bin
	}
	if bin > h.maxBin {
		h.maxBin = bin
	}
}

// Bounds returns the 5th/95th percentile bounds, widened to a minimum
// range of 30 dB plus a 10% margin. With too few samples it falls back to
// the default display range.
func (h *PowerHistogram) Bounds() PowerBounds {
	if h.totalCount < minimumSampleCount {
		return defaultPowerBounds()
	}

	target := h.totalCount * 5 / 100

	var count uint64
	min5th := h.minBin
	for bin := h.minBin; bin <= h.maxBin; bin++ {
		count += uint64(h.bins[bin])
		if count >= target {
			min5th = bin
			break
		}
	}

	count = 0
	max95th := h.maxBin
	for bin := h.maxBin; bin >= h.minBin; bin-- {
		count += uint64(h.bins[bin])
		if count >= target {
			max95th = bin
			break
		}
	}

	if max95th-min5th < minimumRangeDB {
		center := (max95th + min5th) / 2
		min5th = center - minimumRangeDB/2
		max95th = center + minimumRangeDB/2
	}

	margin := (max95th - min5th) / 10
	return PowerBounds{
		Min: float64(min5th - margin),
		Max: float64(max95th + margin),
	}
}
