package handler

import (
	"errors"
	"net/http"
	"net/url"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/model"
	"ppemonitor/internal/service/jobs"
	"ppemonitor/internal/service/stream"
)

// Streams builds frame producers for the video endpoints.
type Streams interface {
	File(job *model.Job) stream.Producer
	Camera() stream.Producer
}

// StreamURL returns the address of the annotated stream of a job.
func StreamURL(jobID string) string {
	return "/video?job=" + url.QueryEscape(jobID)
}

// VideoHandler streams the annotated video of the job named in the "job" query parameter.
func VideoHandler(jobService *jobs.Service, streams Streams, writer *stream.Writer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := jobService.Get(r.URL.Query().Get("job"))
		if err != nil {
			if !errors.Is(err, jobs.ErrNotFound) {
				logger.Error("Error loading job: %v", err)
			}
			http.Error(w, "No video found.", http.StatusBadRequest)
			return
		}

		writer.Serve(w, r, job.ID, streams.File(job))
	}
}

// WebappHandler streams the annotated camera feed.
func WebappHandler(streams Streams, writer *stream.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writer.Serve(w, r, "camera", streams.Camera())
	}
}
