package vision

import (
	"fmt"
	"image"
	"os"
	"ppemonitor/internal/config"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/model"
	"ppemonitor/internal/ppe"
	"ppemonitor/internal/service/pipeline"
	"sync"

	"gocv.io/x/gocv"
)

// YOLODetector runs a YOLOv8 ONNX export through the OpenCV DNN module.
// The network is shared between streams and guarded by a mutex.
type YOLODetector struct {
	net       gocv.Net
	mu        sync.Mutex
	classes   ppe.Taxonomy
	inputSize image.Point
	confThr   float32
	nmsThr    float32
	logger    *logger.Logger
}

// NewYOLODetector loads the model named in the configuration.
func NewYOLODetector(cfg *config.Config, logger *logger.Logger) (*YOLODetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model from %s", cfg.ModelPath)
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	size := cfg.ModelInputSize
	if size <= 0 {
		size = 640
	}

	d := &YOLODetector{
		net:       net,
		classes:   ppe.NewTaxonomy(cfg.ClassNames),
		inputSize: image.Pt(size, size),
		confThr:   float32(cfg.ConfidenceThreshold),
		nmsThr:    float32(cfg.NMSThreshold),
		logger:    logger,
	}
	logger.Info("Detection model loaded: %s (%d classes)", cfg.ModelPath, len(d.classes))
	return d, nil
}

// Detect runs the network on frame and returns boxes in frame pixel space.
func (d *YOLODetector) Detect(frame pipeline.Frame) ([]model.Detection, error) {
	f, ok := frame.(*Frame)
	if !ok {
		return nil, fmt.Errorf("unsupported frame type %T", frame)
	}
	mat := f.Mat()
	if mat.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	blob := gocv.BlobFromImage(*mat, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	return d.decode(output, float32(mat.Cols()), float32(mat.Rows()))
}

// decode parses the [1, 4+classes, anchors] YOLOv8 output and applies NMS.
func (d *YOLODetector) decode(output gocv.Mat, imgW, imgH float32) ([]model.Detection, error) {
	dims := output.Size()
	if len(dims) != 3 || dims[1] <= 4 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	channels, anchors := dims[1], dims[2]

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	scaleX := imgW / float32(d.inputSize.X)
	scaleY := imgH / float32(d.inputSize.Y)

	var boxes []image.Rectangle
	var scores []float32
	var classIDs []int

	for i := 0; i < anchors; i++ {
		best, bestClass := float32(0), 0
		for c := 4; c < channels; c++ {
			if score := data[c*anchors+i]; score > best {
				best, bestClass = score, c-4
			}
		}
		if best < d.confThr {
			continue
		}

		cx, cy := data[i], data[anchors+i]
		w, h := data[2*anchors+i], data[3*anchors+i]
		boxes = append(boxes, image.Rect(
			int((cx-w/2)*scaleX), int((cy-h/2)*scaleY),
			int((cx+w/2)*scaleX), int((cy+h/2)*scaleY),
		))
		scores = append(scores, best)
		classIDs = append(classIDs, bestClass)
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	indices := gocv.NMSBoxes(boxes, scores, d.confThr, d.nmsThr)
	detections := make([]model.Detection, 0, len(indices))
	for _, idx := range indices {
		box := boxes[idx]
		detections = append(detections, model.Detection{
			X1:         box.Min.X,
			Y1:         box.Min.Y,
			X2:         box.Max.X,
			Y2:         box.Max.Y,
			ClassID:    classIDs[idx],
			Label:      d.classes.Name(classIDs[idx]),
			Confidence: float64(scores[idx]),
		})
	}
	return detections, nil
}

// Close releases the network.
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
