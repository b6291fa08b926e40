package detection

import (
	"errors"
	"math"
	"testing"
)

func TestQuadCenter(t *testing.T) {
	tests := []struct {
		name    string
		corners [4]Point
		expectX float64
		expectY float64
	}{
		{
			name:    "axis aligned square",
			corners: [4]Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}},
			expectX: 5,
			expectY: 5,
		},
		{
			name:    "counter-clockwise order",
			corners: [4]Point{{0, 10}, {10, 10}, {10, 0}, {0, 0}},
			expectX: 5,
			expectY: 5,
		},
		{
			// Diagonals (0,0)-(8,4) and (6,0)-(0,6) cross at (4,2)
			name:    "perspective quad",
			corners: [4]Point{{0, 0}, {6, 0}, {8, 4}, {0, 6}},
			expectX: 4,
			expectY: 2,
		},
		{
			name:    "degenerate falls back to mean",
			corners: [4]Point{{0, 0}, {2, 0}, {4, 0}, {6, 0}},
			expectX: 3,
			expectY: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := QuadCenter(tc.corners)
			if math.Abs(c.X-tc.expectX) > 1e-9 {
				t.Errorf("Center X: got %.4f, want %.4f", c.X, tc.expectX)
			}
			if math.Abs(c.Y-tc.expectY) > 1e-9 {
				t.Errorf("Center Y: got %.4f, want %.4f", c.Y, tc.expectY)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Family != "tag36h11" {
		t.Errorf("DefaultConfig: Family should be tag36h11, got %q", cfg.Family)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig: should validate, got %v", err)
	}
}

func TestConfigValidate_UnknownFamily(t *testing.T) {
	cfg := Config{Family: "tag99h1"}

	err := cfg.Validate()
	if !errors.Is(err, ErrUnknownFamily) {
		t.Errorf("Validate: expected ErrUnknownFamily, got %v", err)
	}
}

func TestFamilies(t *testing.T) {
	names := Families()

	if len(names) != len(families) {
		t.Fatalf("Families: got %d names, want %d", len(names), len(families))
	}

	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("Families: not sorted at %d (%q >= %q)", i, names[i-1], names[i])
		}
	}

	for _, want := range []string{"tag16h5", "tag25h9", "tag36h11", "4x4_50"} {
		if _, ok := Dictionary(want); !ok {
			t.Errorf("Dictionary(%q): not registered", want)
		}
	}
}
