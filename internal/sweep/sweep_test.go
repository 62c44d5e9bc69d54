package sweep

import (
	"testing"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name        string
		frequencies []float64
		magnitudes  []float64
		wantErr     bool
	}{
		{"valid sweep", []float64{1e6, 2e6, 3e6}, []float64{-80, -75.5, -90}, false},
		{"empty axis", nil, nil, true},
		{"length mismatch", []float64{1e6, 2e6}, []float64{-80}, true},
		{"non-increasing axis", []float64{1e6, 1e6, 2e6}, []float64{-80, -80, -80}, true},
		{"decreasing axis", []float64{3e6, 2e6, 1e6}, []float64{-80, -80, -80}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := New(tc.frequencies, tc.magnitudes)
			if tc.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if s.Points() != len(tc.frequencies) {
				t.Errorf("Expected %d points, got %d", len(tc.frequencies), s.Points())
			}
			if s.SpanLow() != tc.frequencies[0] {
				t.Errorf("Expected span low %f, got %f", tc.frequencies[0], s.SpanLow())
			}
			if s.SpanHigh() != tc.frequencies[len(tc.frequencies)-1] {
				t.Errorf("Expected span high %f, got %f", tc.frequencies[len(tc.frequencies)-1], s.SpanHigh())
			}
		})
	}
}

func TestAxis(t *testing.T) {
	axis, err := Axis(50_000, 3_000_000, 101)
	if err != nil {
		t.Fatalf("Failed to build axis: %v", err)
	}

	if len(axis) != 101 {
		t.Fatalf("Expected 101 points, got %d", len(axis))
	}
	if axis[0] != 50_000 {
		t.Errorf("Expected first point 50000, got %f", axis[0])
	}
	// The endpoint must be exact, not the result of accumulated steps.
	if axis[100] != 3_000_000 {
		t.Errorf("Expected last point 3000000, got %f", axis[100])
	}
	for i := 1; i < len(axis); i++ {
		if axis[i] <= axis[i-1] {
			t.Fatalf("Axis not strictly increasing at index %d: %f <= %f", i, axis[i], axis[i-1])
		}
	}
}

func TestAxis_InvalidParameters(t *testing.T) {
	testCases := []struct {
		name   string
		start  float64
		stop   float64
		points int
	}{
		{"too few points", 1e6, 2e6, 1},
		{"inverted span", 2e6, 1e6, 10},
		{"zero span", 1e6, 1e6, 10},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Axis(tc.start, tc.stop, tc.points); err == nil {
				t.Error("Expected error for invalid parameters")
			}
		})
	}
}
