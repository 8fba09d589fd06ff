package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

const fontFace = gocv.FontHersheySimplex

// Frame is a BGR image owned by the caller until Close.
type Frame struct {
	mat gocv.Mat
}

func NewFrame(mat gocv.Mat) *Frame {
	return &Frame{mat: mat}
}

// Mat exposes the underlying matrix for OpenCV calls.
func (f *Frame) Mat() *gocv.Mat {
	return &f.mat
}

func (f *Frame) Rectangle(r image.Rectangle, c color.RGBA, thickness int) error {
	return gocv.Rectangle(&f.mat, r, c, thickness)
}

func (f *Frame) Line(p1, p2 image.Point, c color.RGBA, thickness int) error {
	return gocv.Line(&f.mat, p1, p2, c, thickness)
}

func (f *Frame) PutText(text string, org image.Point, scale float64, c color.RGBA, thickness int) error {
	return gocv.PutText(&f.mat, text, org, fontFace, scale, c, thickness)
}

func (f *Frame) TextSize(text string, scale float64, thickness int) image.Point {
	return gocv.GetTextSize(text, fontFace, scale, thickness)
}

// Encode returns the frame as JPEG bytes.
func (f *Frame) Encode() ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, f.mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

func (f *Frame) Close() error {
	return f.mat.Close()
}
