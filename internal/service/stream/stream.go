// Package stream writes annotated frames as a multipart/x-mixed-replace
// response that browsers render as a live video in an <img> tag.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/metrics"
)

const (
	Boundary    = "frame"
	ContentType = "multipart/x-mixed-replace; boundary=" + Boundary
)

// Emit sends one JPEG frame to the client.
type Emit func(jpeg []byte) error

// Producer generates frames until it is done, ctx is cancelled or emit fails.
type Producer func(ctx context.Context, emit Emit) error

// ErrClientGone wraps write failures towards the client.
var ErrClientGone = errors.New("client disconnected")

// Writer serves producers over HTTP and substitutes the placeholder image on failure.
type Writer struct {
	placeholder []byte
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

func NewWriter(placeholder []byte, logger *logger.Logger, metrics *metrics.Metrics) *Writer {
	return &Writer{placeholder: placeholder, logger: logger, metrics: metrics}
}

// Serve streams frames from produce until it returns.
func (s *Writer) Serve(w http.ResponseWriter, r *http.Request, name string, produce Producer) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	emit := func(jpeg []byte) error {
		if err := writePart(w, jpeg); err != nil {
			return fmt.Errorf("%w: %v", ErrClientGone, err)
		}
		flusher.Flush()
		return nil
	}

	s.metrics.StreamStarted()
	s.logger.Info("Stream %s started for %s", name, r.RemoteAddr)

	err := run(r.Context(), produce, emit)
	failed := err != nil && !errors.Is(err, ErrClientGone) && r.Context().Err() == nil
	s.metrics.StreamFinished(failed)

	switch {
	case failed:
		s.logger.Error("Stream %s failed: %v", name, err)
		if writeErr := emit(s.placeholder); writeErr != nil {
			s.logger.Warning("Could not send placeholder for %s: %v", name, writeErr)
		}
	case err != nil:
		s.logger.Info("Stream %s closed by client", name)
	default:
		s.logger.Info("Stream %s finished", name)
	}
}

// run calls produce and converts a panic into an error.
func run(ctx context.Context, produce Producer, emit Emit) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("producer panic: %v", p)
		}
	}()
	return produce(ctx, emit)
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\n\r\n", Boundary); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}
