package sweep

import (
	"errors"
	"testing"
)

func testAxis(t *testing.T) []float64 {
	t.Helper()
	axis, err := Axis(50_000, 3_000_000, 5)
	if err != nil {
		t.Fatalf("Failed to build axis: %v", err)
	}
	return axis
}

func TestCodec_Decode(t *testing.T) {
	codec, err := NewCodec(testAxis(t))
	if err != nil {
		t.Fatalf("Failed to create codec: %v", err)
	}

	testCases := []struct {
		name    string
		frame   string
		want    []float64
		wantErr bool
	}{
		{
			name:  "valid frame",
			frame: "-84.5\n-79.0\n-91.25\n-60.125\n-88.0\n",
			want:  []float64{-84.5, -79.0, -91.25, -60.125, -88.0},
		},
		{
			name:  "blank lines ignored",
			frame: "\n-84.5\n\n-79.0\n-91.25\n-60.125\n-88.0\n\n",
			want:  []float64{-84.5, -79.0, -91.25, -60.125, -88.0},
		},
		{"too few values", "-84.5\n-79.0\n", nil, true},
		{"too many values", "-84.5\n-79.0\n-91.25\n-60.125\n-88.0\n-88.0\n", nil, true},
		{"non-numeric value", "-84.5\n-79.0\nabc\n-60.125\n-88.0\n", nil, true},
		{"non-finite value", "-84.5\n-79.0\nNaN\n-60.125\n-88.0\n", nil, true},
		{"below magnitude bounds", "-84.5\n-79.0\n-500\n-60.125\n-88.0\n", nil, true},
		{"above magnitude bounds", "-84.5\n-79.0\n100\n-60.125\n-88.0\n", nil, true},
		{"empty frame", "", nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := codec.Decode([]byte(tc.frame))
			if tc.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				if !errors.Is(err, ErrDecode) {
					t.Errorf("Expected ErrDecode, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			for i, m := range tc.want {
				if s.Magnitudes[i] != m {
					t.Errorf("Magnitude %d: expected %f, got %f", i, m, s.Magnitudes[i])
				}
			}
		})
	}
}

func TestCodec_MagnitudeBounds(t *testing.T) {
	codec, err := NewCodec(testAxis(t), WithMagnitudeBounds(-100, 0))
	if err != nil {
		t.Fatalf("Failed to create codec: %v", err)
	}

	// -110 is plausible under the defaults but outside the custom bounds.
	if _, err = codec.Decode([]byte("-84.5\n-79.0\n-110\n-60.125\n-88.0\n")); err == nil {
		t.Error("Expected out-of-bounds error with custom bounds")
	}

	if _, err = NewCodec(testAxis(t), WithMagnitudeBounds(0, -100)); err == nil {
		t.Error("Expected error for inverted magnitude bounds")
	}
}

func TestCodec_DecodeFrequencies(t *testing.T) {
	codec, err := NewCodec(testAxis(t))
	if err != nil {
		t.Fatalf("Failed to create codec: %v", err)
	}

	t.Run("matching span", func(t *testing.T) {
		axis, err := codec.DecodeFrequencies([]byte("50000\n787500\n1525000\n2262500\n3000000\n"))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if axis[0] != 50_000 || axis[4] != 3_000_000 {
			t.Errorf("Unexpected axis endpoints: %f, %f", axis[0], axis[4])
		}
	})

	t.Run("not strictly increasing", func(t *testing.T) {
		_, err := codec.DecodeFrequencies([]byte("50000\n787500\n787500\n2262500\n3000000\n"))
		if !errors.Is(err, ErrDecode) {
			t.Errorf("Expected ErrDecode, got %v", err)
		}
	})

	t.Run("span mismatch", func(t *testing.T) {
		_, err := codec.DecodeFrequencies([]byte("100000\n800000\n1500000\n2200000\n6000000\n"))
		if !errors.Is(err, ErrDecode) {
			t.Errorf("Expected ErrDecode, got %v", err)
		}
	})

	t.Run("wrong point count", func(t *testing.T) {
		_, err := codec.DecodeFrequencies([]byte("50000\n3000000\n"))
		if !errors.Is(err, ErrDecode) {
			t.Errorf("Expected ErrDecode, got %v", err)
		}
	})
}

func TestCodec_Rebind(t *testing.T) {
	codec, err := NewCodec(testAxis(t))
	if err != nil {
		t.Fatalf("Failed to create codec: %v", err)
	}

	deviceAxis := []float64{50_001, 787_501, 1_525_001, 2_262_501, 2_999_999}
	if err = codec.Rebind(deviceAxis); err != nil {
		t.Fatalf("Rebind failed: %v", err)
	}
	if got := codec.Axis()[0]; got != 50_001 {
		t.Errorf("Expected rebound axis start 50001, got %f", got)
	}

	if err = codec.Rebind([]float64{1, 2}); err == nil {
		t.Error("Expected error rebinding to an axis of different length")
	}
}
