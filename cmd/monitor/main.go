package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"ppemonitor/internal/config"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/metrics"
	"ppemonitor/internal/repository/sqlite"
	"ppemonitor/internal/service/alert"
	"ppemonitor/internal/service/annotate"
	"ppemonitor/internal/service/audio"
	"ppemonitor/internal/service/pipeline"
	"ppemonitor/internal/service/storage"
	"ppemonitor/internal/service/vision"
	"syscall"
)

const windowTitle = "PPE Detection"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()

	source := flag.String("source", "", "camera or video; asks when empty")
	video := flag.String("video", "", "path to the video file")
	flag.IntVar(&cfg.CameraIndex, "camera", cfg.CameraIndex, "camera device index")
	flag.IntVar(&cfg.CameraWidth, "width", cfg.CameraWidth, "camera frame width (default depends on -style)")
	flag.IntVar(&cfg.CameraHeight, "height", cfg.CameraHeight, "camera frame height (default depends on -style)")
	flag.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "path to the ONNX model")
	flag.StringVar(&cfg.AlertSoundPath, "sound", cfg.AlertSoundPath, "alert sound file")
	style := flag.String("style", "alert", "box style: alert or corner")
	showFPS := flag.Bool("fps", false, "draw the FPS counter (on by default for -style corner)")
	record := flag.Bool("record", false, "store violation events in the database")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warning or error")
	flag.Parse()

	set := overrides{
		size: os.Getenv("CAMERA_WIDTH") != "" || os.Getenv("CAMERA_HEIGHT") != "",
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width", "height":
			set.size = true
		case "fps":
			set.fps = true
		}
	})
	boxStyle := annotate.ParseStyle(*style)
	settings := settingsFor(boxStyle, cfg.CameraWidth, cfg.CameraHeight, *showFPS, set)

	l := logger.NewLogger(cfg)
	defer l.Close()

	choice, err := chooseSource(os.Stdin, os.Stdout, *source, *video)
	if err != nil {
		fmt.Println(err)
		return 1
	}

	var capture *vision.Capture
	if choice.kind == sourceCamera {
		capture, err = vision.OpenCamera(cfg.CameraIndex, settings.width, settings.height)
	} else {
		capture, err = vision.OpenFile(choice.path, filepath.Base(choice.path))
	}
	if err != nil {
		l.Error("Open source: %v", err)
		fmt.Println("Error: Camera/Video not found or could not be opened.")
		return 1
	}

	detector, err := vision.NewYOLODetector(cfg, l)
	if err != nil {
		capture.Close()
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	defer detector.Close()

	m := metrics.New()
	controller := alert.NewController(audio.NewPlayer(cfg.AlertSoundPath, cfg.AlertPlayer), l)
	controller.OnChange = func(s alert.State) {
		m.SetAlerting(s == alert.Alerting)
		l.Debug("Alert %s", s)
	}

	opts := pipeline.Options{
		Alert:   controller,
		Metrics: m,
		ShowFPS: settings.showFPS,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *record {
		db, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			l.Error("Failed to open database: %v", err)
		} else {
			defer db.Close()
			buffer := storage.NewBufferService(cfg, l, sqlite.NewViolationRepository(db))
			bufferCtx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				defer close(done)
				buffer.Run(bufferCtx)
			}()
			defer func() {
				cancel()
				<-done
			}()
			opts.Recorder = buffer
		}
	}

	preview := vision.NewPreview(windowTitle)
	defer preview.Close()

	processor := pipeline.New(capture, detector, annotate.New(boxStyle), l, opts)
	if err := processor.Run(ctx, preview); err != nil && !errors.Is(err, context.Canceled) {
		l.Error("Detection stopped: %v", err)
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	l.Info("Processed %d frames, %d violations", m.FramesProcessed.Load(), m.Violations.Load())
	return 0
}
