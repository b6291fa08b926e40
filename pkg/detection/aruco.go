package detection

import (
	"errors"
	"fmt"
	"sync"

	"github.com/teslashibe/tagserver/internal/log"
	"gocv.io/x/gocv"
)

// OpenCV cv::aruco::CornerRefineMethod values
const (
	cornerRefineNone     = 0
	cornerRefineSubpix   = 1
	cornerRefineAprilTag = 3
)

// ErrClosed is returned by Detect after Close.
var ErrClosed = errors.New("detection: detector closed")

// ArucoDetector uses OpenCV's ArucoDetector, which also covers the AprilTag
// dictionaries
type ArucoDetector struct {
	detector gocv.ArucoDetector
	config   Config
	mu       sync.Mutex // Protects the native detector and closed
	closed   bool
}

// New configures a detector for a single marker family
func New(cfg Config) (*ArucoDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	code, _ := Dictionary(cfg.Family)

	params := gocv.NewArucoDetectorParameters()
	switch {
	case !cfg.CornerRefinement:
		params.SetCornerRefinementMethod(cornerRefineNone)
	case code >= gocv.ArucoDictAprilTag_16h5:
		params.SetCornerRefinementMethod(cornerRefineAprilTag)
	default:
		params.SetCornerRefinementMethod(cornerRefineSubpix)
	}

	detector := gocv.NewArucoDetectorWithParams(gocv.GetPredefinedDictionary(code), params)

	log.Debug("marker detector configured", "family", cfg.Family, "corner_refinement", cfg.CornerRefinement)

	return &ArucoDetector{
		detector: detector,
		config:   cfg,
	}, nil
}

// Detect finds markers in the image
func (d *ArucoDetector) Detect(img gocv.Mat) ([]Marker, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	gray := img
	if img.Channels() != 1 {
		gray = gocv.NewMat()
		defer gray.Close()
		if err := gocv.CvtColor(img, &gray, gocv.ColorBGRToGray); err != nil {
			return nil, fmt.Errorf("convert to grayscale: %w", err)
		}
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrClosed
	}
	corners, ids, _ := d.detector.DetectMarkers(gray)
	d.mu.Unlock()

	markers, err := markersFromQuads(corners, ids)
	if err != nil {
		return nil, err
	}

	if len(markers) > 0 {
		log.Debug("markers found", "family", d.config.Family, "count", len(markers))
	}

	return markers, nil
}

// markersFromQuads pairs detector ids with their corner quads
func markersFromQuads(corners [][]gocv.Point2f, ids []int) ([]Marker, error) {
	if len(corners) != len(ids) {
		return nil, fmt.Errorf("detector returned %d ids for %d quads", len(ids), len(corners))
	}

	markers := make([]Marker, 0, len(ids))
	for i, id := range ids {
		quad := corners[i]
		if len(quad) != 4 {
			return nil, fmt.Errorf("marker %d: detector returned %d corners", id, len(quad))
		}

		m := Marker{ID: id}
		for j, p := range quad {
			m.Corners[j] = Point{X: float64(p.X), Y: float64(p.Y)}
		}
		m.Center = QuadCenter(m.Corners)
		markers = append(markers, m)
	}
	return markers, nil
}

// Family returns the configured marker family
func (d *ArucoDetector) Family() string {
	return d.config.Family
}

// Close releases the detector resources. Later Detect calls fail with
// ErrClosed.
func (d *ArucoDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.detector.Close()
}
