package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"ppemonitor/internal/dto"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/service/jobs"
)

// ListJobsHandler returns all uploaded videos as JSON.
func ListJobsHandler(jobService *jobs.Service, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := jobService.List()
		if err != nil {
			logger.Error("Error querying jobs from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		infos := make([]dto.JobInfo, 0, len(list))
		for _, job := range list {
			infos = append(infos, dto.JobInfo{
				ID:        job.ID,
				Filename:  job.Filename,
				FileSize:  job.FileSize,
				CreatedAt: job.CreatedAt,
				StreamURL: StreamURL(job.ID),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(infos); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// DeleteJobHandler removes the job named by the {id} path segment and its video.
func DeleteJobHandler(jobService *jobs.Service, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := jobService.Delete(r.PathValue("id"))
		if errors.Is(err, jobs.ErrNotFound) {
			http.Error(w, "No video found.", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.Error("Error deleting job: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
