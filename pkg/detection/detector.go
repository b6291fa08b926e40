// Package detection provides fiducial marker detection using computer vision
package detection

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrUnknownFamily is returned when a marker family name is not registered.
var ErrUnknownFamily = errors.New("detection: unknown marker family")

// Point is a position in image pixel coordinates
type Point struct {
	X, Y float64
}

// Marker represents a detected fiducial marker
type Marker struct {
	ID      int      // Marker identifier within its family
	Center  Point    // Projective center of the quad
	Corners [4]Point // Outer corners in the order the backend reported them
}

// Detector is the interface for marker detection backends
type Detector interface {
	// Detect finds markers in a decoded image. Grayscale input is expected,
	// color input is converted first.
	Detect(img gocv.Mat) ([]Marker, error)

	// Family returns the configured marker family name
	Family() string

	// Close releases resources
	Close() error
}

// Config holds detector configuration
type Config struct {
	Family           string // Marker family, e.g. "tag36h11"
	CornerRefinement bool   // Sub-pixel corner refinement
}

// DefaultConfig returns production defaults matching the AprilTag 36h11 setup
func DefaultConfig() Config {
	return Config{
		Family:           "tag36h11",
		CornerRefinement: true,
	}
}

// Validate checks that the configured family is known.
func (c Config) Validate() error {
	if _, ok := families[c.Family]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFamily, c.Family)
	}
	return nil
}

// QuadCenter returns the intersection of the quad's diagonals, which is where
// a homography maps the marker's own center. Degenerate quads fall back to
// the mean of the corners.
func QuadCenter(c [4]Point) Point {
	// Diagonals: c0->c2 and c1->c3
	d1x, d1y := c[2].X-c[0].X, c[2].Y-c[0].Y
	d2x, d2y := c[3].X-c[1].X, c[3].Y-c[1].Y

	denom := d1x*d2y - d1y*d2x
	if denom > -1e-9 && denom < 1e-9 {
		return Point{
			X: (c[0].X + c[1].X + c[2].X + c[3].X) / 4,
			Y: (c[0].Y + c[1].Y + c[2].Y + c[3].Y) / 4,
		}
	}

	t := ((c[1].X-c[0].X)*d2y - (c[1].Y-c[0].Y)*d2x) / denom
	return Point{X: c[0].X + t*d1x, Y: c[0].Y + t*d1y}
}
