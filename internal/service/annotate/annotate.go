// Package annotate draws detections onto frames and decides whether a frame
// shows a safety violation.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"ppemonitor/internal/model"
	"ppemonitor/internal/ppe"
)

// Canvas is the drawing surface of a frame. Thickness -1 fills the shape.
type Canvas interface {
	Rectangle(r image.Rectangle, c color.RGBA, thickness int) error
	Line(p1, p2 image.Point, c color.RGBA, thickness int) error
	PutText(text string, org image.Point, scale float64, c color.RGBA, thickness int) error
	TextSize(text string, scale float64, thickness int) image.Point
}

// Style selects how boxes are rendered.
type Style int

const (
	// StyleAlert colors boxes by compliance and shrinks glove boxes.
	StyleAlert Style = iota
	// StyleCorner draws corner-accented boxes with a filled label tag.
	StyleCorner
)

// ParseStyle maps "corner" to StyleCorner; everything else is StyleAlert.
func ParseStyle(s string) Style {
	if s == "corner" {
		return StyleCorner
	}
	return StyleAlert
}

const (
	fontScale     = 0.6
	fontThickness = 2
	boxThickness  = 3

	cornerLength    = 30
	cornerThickness = 5
	tagScale        = 1.0
	tagThickness    = 1
	tagOffset       = 10
)

// Result is the per-frame outcome of annotation.
type Result struct {
	Violation bool
	Labels    []string // distinct violating labels in detection order
}

// Annotator renders detections in a fixed style.
type Annotator struct {
	style Style
}

func New(style Style) *Annotator {
	return &Annotator{style: style}
}

// Annotate draws every detection and reports whether any of them is a violation.
func (a *Annotator) Annotate(c Canvas, detections []model.Detection) (Result, error) {
	var result Result
	seen := make(map[string]bool)

	for _, det := range detections {
		label := det.Label
		if label == "" {
			label = ppe.Unknown
		}

		var err error
		switch a.style {
		case StyleCorner:
			err = a.drawCorner(c, det.Rect(), ppe.Label(label, det.Confidence))
		default:
			err = a.drawAlert(c, det.Rect(), label, det.Confidence)
		}
		if err != nil {
			return result, fmt.Errorf("draw %s: %w", label, err)
		}

		if ppe.IsViolation(label) {
			result.Violation = true
			if !seen[label] {
				seen[label] = true
				result.Labels = append(result.Labels, label)
			}
		}
	}

	return result, nil
}

func (a *Annotator) drawAlert(c Canvas, box image.Rectangle, label string, conf float64) error {
	col := ppe.ColorFor(label)
	text := ppe.Label(label, conf)

	if label == ppe.GloveViolation {
		glove := ppe.GloveBox(box)
		if err := c.Rectangle(glove, col, boxThickness); err != nil {
			return err
		}
		return c.PutText(text, image.Pt(glove.Min.X, glove.Min.Y-10), fontScale, col, fontThickness)
	}

	if err := c.Rectangle(box, col, boxThickness); err != nil {
		return err
	}
	size := c.TextSize(text, fontScale, fontThickness)
	bg := image.Rect(box.Min.X, box.Min.Y-size.Y-10, box.Min.X+size.X+5, box.Min.Y)
	if err := c.Rectangle(bg, ppe.Black, -1); err != nil {
		return err
	}
	return c.PutText(text, image.Pt(box.Min.X, box.Min.Y-5), fontScale, col, fontThickness)
}

func (a *Annotator) drawCorner(c Canvas, box image.Rectangle, text string) error {
	if err := c.Rectangle(box, ppe.Blue, 1); err != nil {
		return err
	}

	l := cornerLength
	if half := min(box.Dx(), box.Dy()) / 2; half < l {
		l = half
	}
	x, y, x1, y1 := box.Min.X, box.Min.Y, box.Max.X, box.Max.Y
	corners := [][2]image.Point{
		{image.Pt(x, y), image.Pt(x+l, y)}, {image.Pt(x, y), image.Pt(x, y+l)},
		{image.Pt(x1, y), image.Pt(x1-l, y)}, {image.Pt(x1, y), image.Pt(x1, y+l)},
		{image.Pt(x, y1), image.Pt(x+l, y1)}, {image.Pt(x, y1), image.Pt(x, y1-l)},
		{image.Pt(x1, y1), image.Pt(x1-l, y1)}, {image.Pt(x1, y1), image.Pt(x1, y1-l)},
	}
	for _, seg := range corners {
		if err := c.Line(seg[0], seg[1], ppe.Green, cornerThickness); err != nil {
			return err
		}
	}

	return a.drawTag(c, text, image.Pt(max(0, x), max(35, y)))
}

// drawTag renders white text on a filled magenta tag anchored at org.
func (a *Annotator) drawTag(c Canvas, text string, org image.Point) error {
	size := c.TextSize(text, tagScale, tagThickness)
	bg := image.Rect(org.X-tagOffset, org.Y+tagOffset, org.X+size.X+tagOffset, org.Y-size.Y-tagOffset)
	if err := c.Rectangle(bg, ppe.Magenta, -1); err != nil {
		return err
	}
	return c.PutText(text, org, tagScale, ppe.White, tagThickness)
}

// DrawFPS writes the frame rate in the top-left corner.
func (a *Annotator) DrawFPS(c Canvas, fps int) error {
	return a.drawTag(c, fmt.Sprintf("FPS: %d", fps), image.Pt(10, 50))
}
