package tagservice

import (
	"strconv"

	"github.com/teslashibe/tagserver/pkg/detection"
)

// Point2D is a coordinate pair rounded to 2 decimals.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DetectionRecord is one detected marker.
type DetectionRecord struct {
	ID      int       `json:"id"`
	Center  Point2D   `json:"center"`
	Corners []Point2D `json:"corners"` // Always 4, detector winding order
}

// DetectionResponse is the /detect success body.
type DetectionResponse struct {
	Detections []DetectionRecord `json:"detections"`
}

// Round2 rounds to 2 decimal places the way Python's round(x, 2) does:
// the exact binary value is rounded, with ties going to even.
func Round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}

func toPoint(p detection.Point) Point2D {
	return Point2D{X: Round2(p.X), Y: Round2(p.Y)}
}

// NewRecord converts a detector marker into a response record.
func NewRecord(m detection.Marker) DetectionRecord {
	corners := make([]Point2D, 0, len(m.Corners))
	for _, c := range m.Corners {
		corners = append(corners, toPoint(c))
	}
	return DetectionRecord{
		ID:      m.ID,
		Center:  toPoint(m.Center),
		Corners: corners,
	}
}

// NewResponse converts markers in detector order. Duplicate ids are kept.
func NewResponse(markers []detection.Marker) *DetectionResponse {
	resp := &DetectionResponse{Detections: make([]DetectionRecord, 0, len(markers))}
	for _, m := range markers {
		resp.Detections = append(resp.Detections, NewRecord(m))
	}
	return resp
}
