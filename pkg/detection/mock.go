package detection

import (
	"sync"

	"gocv.io/x/gocv"
)

// Mock implements Detector for testing.
type Mock struct {
	// DetectFunc is called when Detect is invoked.
	DetectFunc func(img gocv.Mat) ([]Marker, error)

	// FamilyName is returned by Family.
	FamilyName string

	mu     sync.Mutex
	calls  int
	closed bool
}

// NewMock creates a mock detector that finds nothing.
func NewMock() *Mock {
	return &Mock{
		FamilyName: DefaultConfig().Family,
		DetectFunc: func(gocv.Mat) ([]Marker, error) {
			return nil, nil
		},
	}
}

// WithMarkers creates a mock that always returns the given markers.
func WithMarkers(markers ...Marker) *Mock {
	m := NewMock()
	m.DetectFunc = func(gocv.Mat) ([]Marker, error) {
		return markers, nil
	}
	return m
}

// WithError creates a mock that always fails with err.
func WithError(err error) *Mock {
	m := NewMock()
	m.DetectFunc = func(gocv.Mat) ([]Marker, error) {
		return nil, err
	}
	return m
}

// Detect calls DetectFunc and records the call.
func (m *Mock) Detect(img gocv.Mat) ([]Marker, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.DetectFunc(img)
}

// Family returns FamilyName.
func (m *Mock) Family() string {
	return m.FamilyName
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns how many times Detect was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
