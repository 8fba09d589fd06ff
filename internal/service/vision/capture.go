package vision

import (
	"errors"
	"fmt"
	"io"
	"ppemonitor/internal/service/pipeline"

	"gocv.io/x/gocv"
)

var (
	// ErrSourceUnavailable means the camera or video file could not be opened.
	ErrSourceUnavailable = errors.New("camera/video not found or could not be opened")
	// ErrNoFrame means an opened camera stopped delivering frames.
	ErrNoFrame = errors.New("no frame received")
)

// Capture reads frames from a camera or a video file.
type Capture struct {
	vc   *gocv.VideoCapture
	name string
	file bool
}

// OpenCamera opens camera index and requests the given frame size.
func OpenCamera(index, width, height int) (*Capture, error) {
	vc, err := gocv.VideoCaptureDevice(index)
	if err != nil || !vc.IsOpened() {
		if vc != nil {
			vc.Close()
		}
		return nil, fmt.Errorf("%w: camera %d", ErrSourceUnavailable, index)
	}

	if width > 0 && height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}

	return &Capture{vc: vc, name: fmt.Sprintf("camera:%d", index)}, nil
}

// OpenFile opens a video file; name identifies it in logs and alerts.
func OpenFile(path, name string) (*Capture, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil || !vc.IsOpened() {
		if vc != nil {
			vc.Close()
		}
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, path)
	}

	if name == "" {
		name = path
	}
	return &Capture{vc: vc, name: name, file: true}, nil
}

// Read returns the next frame, or io.EOF when a video file is exhausted.
func (c *Capture) Read() (pipeline.Frame, error) {
	mat := gocv.NewMat()
	if ok := c.vc.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		if c.file {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%s: %w", c.name, ErrNoFrame)
	}
	return NewFrame(mat), nil
}

func (c *Capture) Name() string {
	return c.name
}

func (c *Capture) Close() error {
	return c.vc.Close()
}
