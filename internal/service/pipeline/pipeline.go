// Package pipeline runs the per-frame loop: read, detect, annotate, alert and
// hand the frame to its output.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"ppemonitor/internal/dto"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/metrics"
	"ppemonitor/internal/model"
	"ppemonitor/internal/service/annotate"
	"ppemonitor/internal/service/fps"
	"ppemonitor/internal/service/stream"
	"time"
)

// Frame is a decoded video frame that can be drawn on and encoded.
type Frame interface {
	annotate.Canvas
	Encode() ([]byte, error)
	Close() error
}

// Source yields frames; Read returns io.EOF at the end of a video.
type Source interface {
	Read() (Frame, error)
	Name() string
	Close() error
}

type Detector interface {
	Detect(frame Frame) ([]model.Detection, error)
}

// Sink displays a frame; it returns false when the viewer asked to quit.
type Sink interface {
	Show(frame Frame) bool
}

type Alerter interface {
	Signal(violation bool)
	Shutdown()
}

// Recorder persists the start of a violation episode.
type Recorder interface {
	Record(source string, labels []string, snapshot []byte)
}

type Notifier interface {
	Notify(event dto.AlertEvent)
}

// Options holds the optional collaborators of a Processor.
type Options struct {
	Alert    Alerter
	Recorder Recorder
	Notifier Notifier
	Metrics  *metrics.Metrics
	ShowFPS  bool
}

// Processor drives one source through the detector. It is not safe for concurrent use.
type Processor struct {
	source    Source
	detector  Detector
	annotator *annotate.Annotator
	logger    *logger.Logger
	opts      Options

	meter     fps.Meter
	violating bool
	now       func() time.Time
}

func New(source Source, detector Detector, annotator *annotate.Annotator, logger *logger.Logger, opts Options) *Processor {
	return &Processor{
		source:    source,
		detector:  detector,
		annotator: annotator,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

// Run shows annotated frames in sink until the video ends, the viewer quits
// or ctx is cancelled.
func (p *Processor) Run(ctx context.Context, sink Sink) error {
	defer p.close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, result, err := p.next()
		if errors.Is(err, io.EOF) {
			p.logger.Info("End of video: %s", p.source.Name())
			return nil
		}
		if err != nil {
			return err
		}

		p.report(result, frame.Encode)
		keepGoing := sink.Show(frame)
		frame.Close()

		if !keepGoing {
			p.logger.Info("Preview closed by user")
			return nil
		}
	}
}

// Stream emits JPEG-encoded annotated frames until the video ends, emit fails
// or ctx is cancelled.
func (p *Processor) Stream(ctx context.Context, emit stream.Emit) error {
	defer p.close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, result, err := p.next()
		if errors.Is(err, io.EOF) {
			p.logger.Info("End of video: %s", p.source.Name())
			return nil
		}
		if err != nil {
			return err
		}

		jpeg, encodeErr := frame.Encode()
		frame.Close()
		if encodeErr != nil {
			p.logger.Warning("Skipping frame from %s: %v", p.source.Name(), encodeErr)
			p.opts.Metrics.FrameSkipped()
			p.report(result, nil)
			continue
		}

		p.report(result, func() ([]byte, error) { return jpeg, nil })
		if err := emit(jpeg); err != nil {
			return err
		}
	}
}

// next reads one frame and runs detection, annotation and alerting on it.
// The caller owns the returned frame.
func (p *Processor) next() (Frame, annotate.Result, error) {
	frame, err := p.source.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, annotate.Result{}, err
		}
		return nil, annotate.Result{}, fmt.Errorf("read frame: %w", err)
	}

	detections, err := p.detector.Detect(frame)
	if err != nil {
		frame.Close()
		return nil, annotate.Result{}, fmt.Errorf("detect: %w", err)
	}

	result, err := p.annotator.Annotate(frame, detections)
	if err != nil {
		frame.Close()
		return nil, annotate.Result{}, fmt.Errorf("annotate: %w", err)
	}

	rate := p.meter.Tick(p.now())
	if p.opts.ShowFPS {
		if err := p.annotator.DrawFPS(frame, rate); err != nil {
			frame.Close()
			return nil, annotate.Result{}, fmt.Errorf("draw fps: %w", err)
		}
	}
	p.logger.Debug("%s: %d detections, %d fps", p.source.Name(), len(detections), rate)
	p.opts.Metrics.FrameProcessed(rate)

	if p.opts.Alert != nil {
		p.opts.Alert.Signal(result.Violation)
	}
	return frame, result, nil
}

// report handles compliance edges. snapshot is only called on a rising edge
// when a recorder is configured; a nil snapshot records the event without image.
func (p *Processor) report(result annotate.Result, snapshot func() ([]byte, error)) {
	if result.Violation == p.violating {
		return
	}
	p.violating = result.Violation
	source := p.source.Name()

	if p.opts.Notifier != nil {
		p.opts.Notifier.Notify(dto.AlertEvent{
			Source:    source,
			Violation: result.Violation,
			Labels:    result.Labels,
			Timestamp: p.now(),
		})
	}

	if !result.Violation {
		p.logger.Info("%s: compliant again", source)
		return
	}

	p.logger.Warning("%s: safety violation detected: %v", source, result.Labels)
	p.opts.Metrics.ViolationStarted()

	if p.opts.Recorder == nil {
		return
	}
	var jpeg []byte
	if snapshot != nil {
		data, err := snapshot()
		if err != nil {
			p.logger.Warning("Could not encode violation snapshot: %v", err)
		}
		jpeg = data
	}
	p.opts.Recorder.Record(source, result.Labels, jpeg)
}

func (p *Processor) close() {
	if p.opts.Alert != nil {
		p.opts.Alert.Shutdown()
	}
	if err := p.source.Close(); err != nil {
		p.logger.Warning("Closing %s: %v", p.source.Name(), err)
	}
}
