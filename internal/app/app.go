package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"ppemonitor/internal/config"
	"ppemonitor/internal/handler"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/metrics"
	"ppemonitor/internal/repository/sqlite"
	"ppemonitor/internal/route"
	"ppemonitor/internal/service"
	"ppemonitor/internal/service/jobs"
	"ppemonitor/internal/service/pipeline"
	"ppemonitor/internal/service/placeholder"
	"ppemonitor/internal/service/storage"
	"ppemonitor/internal/service/stream"
	"ppemonitor/internal/service/vision"
	"ppemonitor/internal/service/websocket"
	"syscall"
	"time"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config        *config.Config
	logger        *logger.Logger
	db            *sqlite.DB
	detector      *vision.YOLODetector
	bufferService *storage.BufferService
	hubService    *websocket.HubService
	manager       *service.Manager
	handler       http.Handler
}

func NewApp() (*App, error) {
	cfg := config.Load()
	l := logger.NewLogger(cfg)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	jobRepo := sqlite.NewJobRepository(db)
	violationRepo := sqlite.NewViolationRepository(db)

	pages, err := handler.NewPages(cfg.TemplateDirectory, l)
	if err != nil {
		db.Close()
		l.Close()
		return nil, err
	}

	m := metrics.New()
	jobService := jobs.NewService(cfg, jobRepo, l, m)
	buffer := storage.NewBufferService(cfg, l, violationRepo)
	hub := websocket.NewHubService(l, m)

	errorImage, err := placeholder.Load(cfg.ErrorImagePath)
	if err != nil {
		l.Warning("Error image %s unavailable, using generated placeholder: %v", cfg.ErrorImagePath, err)
	}
	writer := stream.NewWriter(errorImage, l, m)

	// Bez modelu serwer dalej działa, strumienie pokazują obrazek błędu
	var detector pipeline.Detector
	yolo, err := vision.NewYOLODetector(cfg, l)
	if err != nil {
		l.Error("Detection model not loaded: %v", err)
	} else {
		detector = yolo
	}

	mng := service.NewManager(cfg, detector, jobService, buffer, hub, writer, m, l)

	return &App{
		config:        cfg,
		logger:        l,
		db:            db,
		detector:      yolo,
		bufferService: buffer,
		hubService:    hub,
		manager:       mng,
		handler:       route.SetupRoutes(mng, cfg, l, violationRepo, pages),
	}, nil
}

// Run serves HTTP until SIGINT/SIGTERM, then drains the background services.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer a.close()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.config.Port))
	if err != nil {
		return err
	}

	fmt.Printf("🦺 PPE Monitor\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📁 Uploads: %s\n", a.config.UploadDirectory)
	fmt.Printf("🤖 AI Model: %s\n", a.config.ModelPath)

	return a.serve(ctx, ln)
}

// serve runs the HTTP server on ln until ctx is done. Streaming requests see
// ctx through their request context and end with it; pending snapshots are
// flushed before serve returns.
func (a *App) serve(ctx context.Context, ln net.Listener) error {
	// Start background services
	background, cancel := context.WithCancel(context.Background())
	bufferDone := make(chan struct{})
	go func() {
		defer close(bufferDone)
		a.bufferService.Run(background)
	}()
	go a.hubService.Run(background)

	server := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ln)
	}()

	var err error
	select {
	case err = <-serveErr:
	case <-ctx.Done():
		a.logger.Info("Shutting down")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		err = server.Shutdown(shutdownCtx)
		cancelShutdown()
	}

	cancel()
	<-bufferDone

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) close() {
	if a.detector != nil {
		a.detector.Close()
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing database: %v", err)
	}
	a.logger.Close()
}
