package service

import (
	"context"
	"errors"
	"ppemonitor/internal/config"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/metrics"
	"ppemonitor/internal/model"
	"ppemonitor/internal/service/annotate"
	"ppemonitor/internal/service/jobs"
	"ppemonitor/internal/service/pipeline"
	"ppemonitor/internal/service/storage"
	"ppemonitor/internal/service/stream"
	"ppemonitor/internal/service/vision"
	"ppemonitor/internal/service/websocket"
)

// ErrNoDetector is returned by streams when the model could not be loaded at startup.
var ErrNoDetector = errors.New("detection model not loaded")

type (
	cameraOpener func(index, width, height int) (pipeline.Source, error)
	fileOpener   func(path, name string) (pipeline.Source, error)
)

// Manager owns the services shared by all HTTP streams.
type Manager struct {
	detector         pipeline.Detector
	jobService       *jobs.Service
	bufferService    *storage.BufferService
	websocketService *websocket.HubService
	streamWriter     *stream.Writer
	metrics          *metrics.Metrics
	logger           *logger.Logger

	cameraIndex  int
	cameraWidth  int
	cameraHeight int
	style        annotate.Style

	openCamera cameraOpener
	openFile   fileOpener
}

// NewManager wires the shared services. detector may be nil; streams then fail
// with ErrNoDetector and viewers get the placeholder image.
func NewManager(cfg *config.Config, detector pipeline.Detector, jobService *jobs.Service, bufferService *storage.BufferService,
	websocketService *websocket.HubService, streamWriter *stream.Writer, metrics *metrics.Metrics, logger *logger.Logger) *Manager {
	return &Manager{
		detector:         detector,
		jobService:       jobService,
		bufferService:    bufferService,
		websocketService: websocketService,
		streamWriter:     streamWriter,
		metrics:          metrics,
		logger:           logger,
		cameraIndex:      cfg.CameraIndex,
		cameraWidth:      cfg.CameraWidth,
		cameraHeight:     cfg.CameraHeight,
		style:            annotate.StyleAlert,
		openCamera: func(index, width, height int) (pipeline.Source, error) {
			return vision.OpenCamera(index, width, height)
		},
		openFile: func(path, name string) (pipeline.Source, error) {
			return vision.OpenFile(path, name)
		},
	}
}

// File returns a producer streaming the annotated video of job.
func (m *Manager) File(job *model.Job) stream.Producer {
	return func(ctx context.Context, emit stream.Emit) error {
		if m.detector == nil {
			return ErrNoDetector
		}
		source, err := m.openFile(job.FilePath, job.ID)
		if err != nil {
			return err
		}
		return m.processor(source).Stream(ctx, emit)
	}
}

// Camera returns a producer streaming the annotated configured camera.
func (m *Manager) Camera() stream.Producer {
	return func(ctx context.Context, emit stream.Emit) error {
		if m.detector == nil {
			return ErrNoDetector
		}
		source, err := m.openCamera(m.cameraIndex, m.cameraWidth, m.cameraHeight)
		if err != nil {
			return err
		}
		return m.processor(source).Stream(ctx, emit)
	}
}

// processor builds a per-request pipeline. The web surface has no alert
// sound; violations go to the snapshot buffer and the alert feed.
func (m *Manager) processor(source pipeline.Source) *pipeline.Processor {
	opts := pipeline.Options{Metrics: m.metrics}
	if m.bufferService != nil {
		opts.Recorder = m.bufferService
	}
	if m.websocketService != nil {
		opts.Notifier = m.websocketService
	}
	return pipeline.New(source, m.detector, annotate.New(m.style), m.logger, opts)
}

func (m *Manager) GetJobService() *jobs.Service {
	return m.jobService
}
func (m *Manager) GetBufferService() *storage.BufferService {
	return m.bufferService
}
func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.websocketService
}
func (m *Manager) GetStreamWriter() *stream.Writer {
	return m.streamWriter
}
func (m *Manager) GetMetrics() *metrics.Metrics {
	return m.metrics
}
