package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"ppemonitor/internal/config"
	"ppemonitor/internal/dto"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/model"
	"ppemonitor/internal/repository"
	"strings"
	"sync"
	"time"
)

const timestampLayout = "2006-01-02_15-04_05.000"

// BufferService buffers violation snapshots in memory and periodically flushes them to disk.
type BufferService struct {
	snapshotDir string
	limit       int
	interval    time.Duration
	snapshots   []dto.BufferedSnapshot
	bufferCount map[string]int
	mu          sync.Mutex
	logger      *logger.Logger
	repo        repository.ViolationRepository
	now         func() time.Time
}

// NewBufferService creates a new BufferService writing to the configured snapshot directory.
func NewBufferService(cfg *config.Config, logger *logger.Logger, repo repository.ViolationRepository) *BufferService {
	interval := cfg.SnapshotFlushInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &BufferService{
		snapshotDir: cfg.SnapshotDirectory,
		limit:       cfg.SnapshotBufferLimit,
		interval:    interval,
		bufferCount: make(map[string]int),
		logger:      logger,
		repo:        repo,
		now:         time.Now,
	}
}

// Run flushes the buffer periodically until ctx is cancelled, then flushes once more.
func (s *BufferService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.FlushSnapshots()
		case <-ctx.Done():
			s.FlushSnapshots()
			return
		}
	}
}

// Record stores the start of a violation episode. Events without a snapshot,
// or over the per-source limit, are written to the database immediately.
func (s *BufferService) Record(source string, labels []string, snapshot []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if len(snapshot) == 0 || s.bufferCount[source] >= s.limit {
		s.insert(&model.ViolationEvent{Source: source, Labels: labels, StartedAt: now})
		return
	}

	s.snapshots = append(s.snapshots, dto.BufferedSnapshot{
		Timestamp: now,
		Source:    source,
		Labels:    append([]string(nil), labels...),
		Data:      snapshot,
	})
	s.bufferCount[source]++
	s.logger.Info("Buffer size for source %s: %d/%d", source, s.bufferCount[source], s.limit)
}

// Pending returns the number of buffered snapshots.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

// FlushSnapshots writes buffered snapshots to disk, inserts their events and resets the buffer.
func (s *BufferService) FlushSnapshots() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.snapshots) == 0 {
		return
	}

	if err := os.MkdirAll(s.snapshotDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return
	}

	savedCount := 0
	for _, snap := range s.snapshots {
		filename := SnapshotName(snap.Timestamp, snap.Source, snap.Labels)
		event := &model.ViolationEvent{
			Source:    snap.Source,
			Labels:    snap.Labels,
			Snapshot:  filename,
			StartedAt: snap.Timestamp,
		}

		if err := os.WriteFile(filepath.Join(s.snapshotDir, filename), snap.Data, 0644); err != nil {
			s.logger.Error("Error saving snapshot %s: %v", filename, err)
			event.Snapshot = ""
		} else {
			savedCount++
		}
		s.insert(event)
	}

	s.logger.Info("Flushed %d snapshots to disk", savedCount)
	s.snapshots = s.snapshots[:0]
	s.bufferCount = make(map[string]int)
}

// Clear drops pending snapshots, deletes every violation event and removes the
// snapshot files. Returns the number of files removed.
func (s *BufferService) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots = s.snapshots[:0]
	s.bufferCount = make(map[string]int)

	if s.repo != nil {
		if err := s.repo.DeleteAll(); err != nil {
			return 0, err
		}
	}

	files, err := os.ReadDir(s.snapshotDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read snapshot directory: %w", err)
	}

	removed := 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.snapshotDir, file.Name())); err != nil {
			s.logger.Error("Error deleting file %s: %v", file.Name(), err)
			continue
		}
		removed++
	}

	s.logger.Info("All violations cleared, %d snapshots removed from %s", removed, s.snapshotDir)
	return removed, nil
}

func (s *BufferService) insert(event *model.ViolationEvent) {
	if s.repo == nil {
		return
	}
	if _, err := s.repo.Insert(event); err != nil {
		s.logger.Error("Error saving violation to database: %v", err)
	}
}

// SnapshotName builds "<timestamp>_<source>_<labels>.jpg" using only file-safe characters.
func SnapshotName(ts time.Time, source string, labels []string) string {
	clean := func(s string) string {
		return strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
				return r
			}
			return '-'
		}, s)
	}

	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, clean(l))
	}
	return fmt.Sprintf("%s_%s_%s.jpg", ts.Format(timestampLayout), clean(source), strings.Join(parts, "_"))
}
