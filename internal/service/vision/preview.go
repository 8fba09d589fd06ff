package vision

import (
	"ppemonitor/internal/service/pipeline"

	"gocv.io/x/gocv"
)

// Preview shows frames in a desktop window; pressing q closes it.
type Preview struct {
	window *gocv.Window
}

func NewPreview(title string) *Preview {
	return &Preview{window: gocv.NewWindow(title)}
}

func (p *Preview) Show(frame pipeline.Frame) bool {
	f, ok := frame.(*Frame)
	if !ok {
		return false
	}
	p.window.IMShow(*f.Mat())
	return p.window.WaitKey(1)&0xFF != 'q'
}

func (p *Preview) Close() error {
	return p.window.Close()
}
