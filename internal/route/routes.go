package route

import (
	"net/http"
	"ppemonitor/internal/config"
	"ppemonitor/internal/handler"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/middleware"
	"ppemonitor/internal/repository"
	"ppemonitor/internal/service"
)

// SetupRoutes registers pages, video streams, API endpoints and static files,
// and wraps the mux with the recover and logging middleware.
func SetupRoutes(manager *service.Manager, cfg *config.Config, logger *logger.Logger,
	violationRepo repository.ViolationRepository, pages *handler.Pages) http.Handler {
	mux := http.NewServeMux()

	jobService := manager.GetJobService()
	writer := manager.GetStreamWriter()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// Pages
	mux.HandleFunc("GET /{$}", handler.HomeHandler(pages))
	mux.HandleFunc("GET /home", handler.HomeHandler(pages))
	mux.HandleFunc("GET /webcam", handler.WebcamHandler(pages))
	mux.HandleFunc("/FrontPage", handler.FrontPageHandler(pages, jobService, cfg, logger))

	// Video streams
	mux.HandleFunc("GET /video", handler.VideoHandler(jobService, manager, writer, logger))
	mux.HandleFunc("GET /webapp", handler.WebappHandler(manager, writer))

	// API endpoints
	mux.HandleFunc("GET /api/jobs", handler.ListJobsHandler(jobService, logger))
	mux.HandleFunc("DELETE /api/jobs/{id}", handler.DeleteJobHandler(jobService, logger))
	mux.HandleFunc("GET /api/violations", handler.GetViolationsHandler(violationRepo, logger))
	mux.HandleFunc("DELETE /api/violations", handler.ClearViolationsHandler(manager.GetBufferService(), logger))
	mux.HandleFunc("GET /api/violations/snapshot", handler.ViewSnapshotHandler(cfg))
	mux.HandleFunc("/api/alerts/ws", handler.AlertsWebsocketHandler(manager.GetWebsocketService(), logger))
	mux.Handle("GET /metrics", manager.GetMetrics().Handler())

	// Log endpoints
	mux.HandleFunc("GET /logs/{level}", handler.ShowLogsHandler(cfg))
	mux.HandleFunc("POST /logs/{level}/clear", handler.ClearLogsHandler(logger))

	return middleware.RecoverMiddleware(logger, middleware.LoggingMiddleware(logger, mux))
}
