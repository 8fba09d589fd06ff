// Package placeholder provides the image sent when a video stream fails.
package placeholder

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	Width  = 640
	Height = 480
	Text   = "stream unavailable"
)

// Load reads the placeholder JPEG from path. When the file is missing or
// empty a generated image is returned together with the read error.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil && len(data) > 0 {
		return data, nil
	}
	if err == nil {
		err = fmt.Errorf("placeholder %s is empty", path)
	}

	rendered, renderErr := Render(Text)
	if renderErr != nil {
		return nil, fmt.Errorf("render placeholder: %w", renderErr)
	}
	return rendered, err
}

// Render draws text centred on a dark 640x480 frame and encodes it as JPEG.
func Render(text string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 32, G: 32, B: 32, A: 255}}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 255, G: 0, B: 0, A: 255}),
		Face: face,
	}
	textWidth := d.MeasureString(text).Ceil()
	d.Dot = fixed.P((Width-textWidth)/2, Height/2+face.Ascent/2)
	d.DrawString(text)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
