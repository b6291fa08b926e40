package detection

import (
	"fmt"
	"image/color"

	"gocv.io/x/gocv"
)

// Placement positions a rendered marker on a white canvas.
// Zero Width or Height mirrors the left or top margin on the far side.
type Placement struct {
	Left, Top     int
	Width, Height int
}

// Render draws marker id of the family as a side x side grayscale image
// with a one-bit black border, placed on a white canvas. Callers own the
// returned Mat.
func Render(family string, id, side int, at Placement) (gocv.Mat, error) {
	code, ok := Dictionary(family)
	if !ok {
		return gocv.NewMat(), fmt.Errorf("%w: %q", ErrUnknownFamily, family)
	}
	if side <= 0 || at.Left < 0 || at.Top < 0 {
		return gocv.NewMat(), fmt.Errorf("render: invalid geometry side=%d left=%d top=%d", side, at.Left, at.Top)
	}

	width, height := at.Width, at.Height
	if width == 0 {
		width = 2*at.Left + side
	}
	if height == 0 {
		height = 2*at.Top + side
	}
	if width < at.Left+side || height < at.Top+side {
		return gocv.NewMat(), fmt.Errorf("render: %dx%d canvas too small for marker at (%d,%d) side %d",
			width, height, at.Left, at.Top, side)
	}

	marker := gocv.NewMat()
	defer marker.Close()
	if err := gocv.ArucoGenerateImageMarker(code, id, side, marker, 1); err != nil {
		return gocv.NewMat(), fmt.Errorf("render marker %d: %w", id, err)
	}
	if marker.Empty() {
		return gocv.NewMat(), fmt.Errorf("render: marker %d not in family %s", id, family)
	}

	canvas := gocv.NewMat()
	err := gocv.CopyMakeBorder(marker, &canvas,
		at.Top, height-at.Top-side,
		at.Left, width-at.Left-side,
		gocv.BorderConstant, color.RGBA{255, 255, 255, 0})
	if err != nil {
		canvas.Close()
		return gocv.NewMat(), fmt.Errorf("render canvas: %w", err)
	}
	return canvas, nil
}

// EncodePNG encodes a Mat as PNG bytes.
func EncodePNG(img gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	defer buf.Close()

	// Copy out of native memory before the buffer is freed
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
