package detection

import (
	"errors"
	"math"
	"sync"
	"testing"

	"gocv.io/x/gocv"
)

func renderMarker(t *testing.T, family string, id, side, left, top, width, height int) gocv.Mat {
	t.Helper()
	img, err := Render(family, id, side, Placement{Left: left, Top: top, Width: width, Height: height})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return img
}

func TestNew_UnknownFamily(t *testing.T) {
	_, err := New(Config{Family: "nope"})
	if err == nil {
		t.Error("Expected error for unknown family")
	}
}

func TestArucoDetect_RoundTrip(t *testing.T) {
	d, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	const side, left, top = 160, 120, 80
	img := renderMarker(t, "tag36h11", 7, side, left, top, 480, 360)
	defer img.Close()

	markers, err := d.Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if len(markers) != 1 {
		t.Fatalf("Expected 1 marker, got %d", len(markers))
	}

	m := markers[0]
	if m.ID != 7 {
		t.Errorf("ID: got %d, want 7", m.ID)
	}

	wantX := float64(left) + float64(side)/2
	wantY := float64(top) + float64(side)/2
	if math.Abs(m.Center.X-wantX) > 1 || math.Abs(m.Center.Y-wantY) > 1 {
		t.Errorf("Center: got (%.2f, %.2f), want within 1px of (%.1f, %.1f)",
			m.Center.X, m.Center.Y, wantX, wantY)
	}
}

func TestArucoDetect_BlankImage(t *testing.T) {
	d, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 240, 320, gocv.MatTypeCV8UC1)
	defer img.Close()

	markers, err := d.Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(markers) > 0 {
		t.Errorf("Expected no markers in blank image, got %d", len(markers))
	}
}

func TestArucoDetect_EmptyMat(t *testing.T) {
	d, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	img := gocv.NewMat()
	defer img.Close()

	if _, err := d.Detect(img); err == nil {
		t.Error("Expected error for empty image")
	}
}

func TestArucoDetect_AfterClose(t *testing.T) {
	d, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 48, 64, gocv.MatTypeCV8UC1)
	defer img.Close()

	if _, err := d.Detect(img); !errors.Is(err, ErrClosed) {
		t.Errorf("Detect after Close: got %v, want ErrClosed", err)
	}
}

func TestMarkersFromQuads(t *testing.T) {
	square := []gocv.Point2f{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}

	tests := []struct {
		name    string
		corners [][]gocv.Point2f
		ids     []int
		want    int
		wantErr bool
	}{
		{name: "none", corners: nil, ids: nil, want: 0},
		{name: "two markers", corners: [][]gocv.Point2f{square, square}, ids: []int{3, 3}, want: 2},
		{name: "three corners", corners: [][]gocv.Point2f{square[:3]}, ids: []int{1}, wantErr: true},
		{name: "five corners", corners: [][]gocv.Point2f{append(square[:4:4], square[0])}, ids: []int{1}, wantErr: true},
		{name: "missing id", corners: [][]gocv.Point2f{square, square}, ids: []int{1}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			markers, err := markersFromQuads(tc.corners, tc.ids)
			if tc.wantErr {
				if err == nil {
					t.Errorf("Expected error, got %d markers", len(markers))
				}
				return
			}
			if err != nil {
				t.Fatalf("markersFromQuads failed: %v", err)
			}
			if len(markers) != tc.want {
				t.Fatalf("Expected %d markers, got %d", tc.want, len(markers))
			}
			for _, m := range markers {
				if m.Center != (Point{X: 5, Y: 5}) {
					t.Errorf("marker %d center = %+v, want (5,5)", m.ID, m.Center)
				}
				if m.Corners[2] != (Point{X: 10, Y: 10}) {
					t.Errorf("marker %d corner order changed: %+v", m.ID, m.Corners)
				}
			}
		})
	}
}

func TestArucoDetect_ColorInput(t *testing.T) {
	d, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	gray := renderMarker(t, "tag36h11", 3, 120, 60, 60, 320, 240)
	defer gray.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(gray, &bgr, gocv.ColorGrayToBGR)

	markers, err := d.Detect(bgr)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(markers) != 1 || markers[0].ID != 3 {
		t.Errorf("Expected marker 3, got %+v", markers)
	}
}

func TestArucoConcurrency(t *testing.T) {
	d, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	img := renderMarker(t, "tag36h11", 11, 100, 50, 50, 240, 200)
	defer img.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			markers, err := d.Detect(img)
			if err != nil {
				t.Errorf("Concurrent detection failed: %v", err)
				return
			}
			if len(markers) != 1 || markers[0].ID != 11 {
				t.Errorf("Concurrent detection: got %+v", markers)
			}
		}()
	}
	wg.Wait()
}

func TestArucoFamily(t *testing.T) {
	d, err := New(Config{Family: "4x4_50"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	if d.Family() != "4x4_50" {
		t.Errorf("Family: got %q", d.Family())
	}

	img := renderMarker(t, "4x4_50", 42, 100, 40, 40, 200, 200)
	defer img.Close()

	markers, err := d.Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(markers) != 1 || markers[0].ID != 42 {
		t.Errorf("Expected marker 42, got %+v", markers)
	}
}

func TestRender_Geometry(t *testing.T) {
	img, err := Render("tag36h11", 0, 100, Placement{Left: 20, Top: 30})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	defer img.Close()

	if img.Cols() != 140 || img.Rows() != 160 {
		t.Errorf("Render size: got %dx%d, want 140x160", img.Cols(), img.Rows())
	}
	if img.Channels() != 1 {
		t.Errorf("Render channels: got %d, want 1", img.Channels())
	}
}

func TestRender_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		family string
		side   int
		at     Placement
	}{
		{"unknown family", "tag1h1", 100, Placement{}},
		{"zero side", "tag36h11", 0, Placement{}},
		{"canvas too small", "tag36h11", 100, Placement{Left: 10, Width: 50}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			img, err := Render(tc.family, 1, tc.side, tc.at)
			defer img.Close()
			if err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestEncodePNG_Decodes(t *testing.T) {
	img := renderMarker(t, "tag36h11", 5, 80, 20, 20, 0, 0)
	defer img.Close()

	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}

	decoded, err := gocv.IMDecode(data, gocv.IMReadGrayScale)
	if err != nil {
		t.Fatalf("IMDecode failed: %v", err)
	}
	defer decoded.Close()

	if decoded.Cols() != img.Cols() || decoded.Rows() != img.Rows() {
		t.Errorf("round trip size: got %dx%d, want %dx%d",
			decoded.Cols(), decoded.Rows(), img.Cols(), img.Rows())
	}
}
