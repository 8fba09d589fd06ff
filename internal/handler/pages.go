package handler

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"ppemonitor/internal/config"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/service/jobs"
)

const (
	indexTemplate  = "indexproject.html"
	webcamTemplate = "ui.html"
	uploadTemplate = "videoprojectnew.html"

	uploadField = "file"
)

// Pages renders the HTML templates of the web interface.
type Pages struct {
	templates *template.Template
	logger    *logger.Logger
}

// NewPages parses every *.html file in dir.
func NewPages(dir string, logger *logger.Logger) (*Pages, error) {
	templates, err := template.ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates in %s: %w", dir, err)
	}
	return &Pages{templates: templates, logger: logger}, nil
}

func (p *Pages) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := p.templates.ExecuteTemplate(w, name, data); err != nil {
		p.logger.Error("Error rendering %s: %v", name, err)
	}
}

// UploadPage is the data of the upload form template.
type UploadPage struct {
	Uploaded  bool
	Filename  string
	StreamURL string
	Error     string
}

// HomeHandler renders the landing page.
func HomeHandler(pages *Pages) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pages.render(w, http.StatusOK, indexTemplate, nil)
	}
}

// WebcamHandler renders the live camera page.
func WebcamHandler(pages *Pages) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pages.render(w, http.StatusOK, webcamTemplate, nil)
	}
}

// FrontPageHandler shows the upload form and, on POST, stores the video as a new job.
func FrontPageHandler(pages *Pages, jobService *jobs.Service, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			pages.render(w, http.StatusOK, uploadTemplate, UploadPage{})
			return
		}

		limit := cfg.MaxUploadBytes()
		tooLarge := UploadPage{Error: fmt.Sprintf("File is larger than %d MB.", cfg.MaxUploadSizeMB)}
		if r.ContentLength > limit {
			logger.Warning("Upload rejected, %d bytes announced", r.ContentLength)
			pages.render(w, http.StatusRequestEntityTooLarge, uploadTemplate, tooLarge)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, limit)
		file, header, err := r.FormFile(uploadField)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				logger.Warning("Upload rejected, larger than %d bytes", maxErr.Limit)
				pages.render(w, http.StatusRequestEntityTooLarge, uploadTemplate, tooLarge)
				return
			}
			pages.render(w, http.StatusBadRequest, uploadTemplate, UploadPage{Error: "Please choose a video file."})
			return
		}
		defer file.Close()

		job, err := jobService.Save(header.Filename, file)
		if err != nil {
			if errors.Is(err, jobs.ErrInvalidFilename) {
				pages.render(w, http.StatusBadRequest, uploadTemplate, UploadPage{Error: "Invalid file name."})
				return
			}
			logger.Error("Error saving upload %s: %v", header.Filename, err)
			pages.render(w, http.StatusInternalServerError, uploadTemplate, UploadPage{Error: "Could not save the video."})
			return
		}

		pages.render(w, http.StatusOK, uploadTemplate, UploadPage{
			Uploaded:  true,
			Filename:  job.Filename,
			StreamURL: StreamURL(job.ID),
		})
	}
}
