package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"path/filepath"
	"ppemonitor/internal/config"
	"ppemonitor/internal/dto"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/model"
	"ppemonitor/internal/repository"
	"ppemonitor/internal/service/storage"
	"strconv"
	"time"
)

const maxPageSize = 200

// GetViolationsHandler returns a filtered, paginated list of violation events.
func GetViolationsHandler(repo repository.ViolationRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := min(atoiDefault(q.Get("limit"), 50), maxPageSize)

		filter := &model.ViolationFilter{
			Source: q.Get("source"),
			Label:  q.Get("label"),
			Since:  parseSince(q.Get("since")),
			Limit:  limit,
			Offset: (page - 1) * limit,
		}

		events, err := repo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying violations from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := repo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting violations: %v", err)
			totalCount = len(events)
		}

		violations := make([]dto.ViolationInfo, 0, len(events))
		for _, ev := range events {
			info := dto.ViolationInfo{
				ID:        ev.ID,
				Source:    ev.Source,
				Labels:    ev.Labels,
				Date:      ev.StartedAt,
				TimeOfDay: ev.StartedAt,
			}
			if ev.Snapshot != "" {
				info.SnapshotURL = "/api/violations/snapshot?name=" + url.QueryEscape(ev.Snapshot)
			}
			violations = append(violations, info)
		}

		data := dto.ViolationsData{
			Violations:  violations,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// ClearViolationsHandler deletes every recorded violation, the pending
// snapshots and the snapshot files.
func ClearViolationsHandler(buffer *storage.BufferService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := buffer.Clear(); err != nil {
			logger.Error("Error clearing violations: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ViewSnapshotHandler serves a single snapshot named by the "name" query parameter.
func ViewSnapshotHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, "Name parameter is required", http.StatusBadRequest)
			return
		}
		name = filepath.Base(name)
		if name == "." || name == ".." || name == string(filepath.Separator) {
			http.Error(w, "Invalid snapshot name", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filepath.Join(cfg.SnapshotDirectory, name))
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseSince accepts RFC 3339 timestamps or dates in the HTML input format "2006-01-02".
func parseSince(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t
	}
	return time.Time{}
}
