// Package jobs stores uploaded videos and the job descriptors that reference them.
package jobs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"ppemonitor/internal/config"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/metrics"
	"ppemonitor/internal/model"
	"ppemonitor/internal/repository"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidFilename = errors.New("invalid file name")
	ErrNotFound        = errors.New("no video found")
)

// Service saves uploads and resolves job ids to files.
type Service struct {
	dir     string
	repo    repository.JobRepository
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(cfg *config.Config, repo repository.JobRepository, logger *logger.Logger, metrics *metrics.Metrics) *Service {
	return &Service{
		dir:     cfg.UploadDirectory,
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Save writes the upload to the upload directory and registers a new job.
func (s *Service) Save(filename string, r io.Reader) (*model.Job, error) {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	id := uuid.NewString()
	path := filepath.Join(s.dir, id[:8]+"_"+name)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	size, copyErr := io.Copy(file, r)
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write %s: %w", path, errors.Join(copyErr, closeErr))
	}

	job := &model.Job{
		ID:        id,
		Filename:  name,
		FilePath:  path,
		FileSize:  size,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Insert(job); err != nil {
		os.Remove(path)
		return nil, err
	}

	s.metrics.Uploads.Add(1)
	s.logger.Info("Saved upload %s as job %s (%d bytes)", name, id, size)
	return job, nil
}

// Register creates a job for a file that already exists on disk. A file that
// is already registered returns its job with created set to false.
func (s *Service) Register(path string) (job *model.Job, created bool, err error) {
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, err
	}
	if info.IsDir() {
		return nil, false, fmt.Errorf("%s is a directory", path)
	}

	existing, err := s.repo.GetByFilePath(path)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	name, err := SanitizeFilename(info.Name())
	if err != nil {
		return nil, false, err
	}

	job = &model.Job{
		ID:        uuid.NewString(),
		Filename:  name,
		FilePath:  path,
		FileSize:  info.Size(),
		CreatedAt: info.ModTime().UTC(),
	}
	if err := s.repo.Insert(job); err != nil {
		return nil, false, err
	}
	return job, true, nil
}

// Get returns the job with id; ErrNotFound covers unknown ids and deleted files.
func (s *Service) Get(id string) (*model.Job, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	job, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrNotFound
	}
	if _, err := os.Stat(job.FilePath); err != nil {
		s.logger.Warning("Video for job %s is missing: %v", id, err)
		return nil, ErrNotFound
	}
	return job, nil
}

// Delete removes the uploaded video and its job. A file that is already gone
// does not block removing the job.
func (s *Service) Delete(id string) error {
	if id == "" {
		return ErrNotFound
	}
	job, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if job == nil {
		return ErrNotFound
	}

	if err := os.Remove(job.FilePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", job.FilePath, err)
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.logger.Info("Deleted job %s (%s)", id, job.Filename)
	return nil
}

// List returns all jobs, newest first.
func (s *Service) List() ([]model.Job, error) {
	return s.repo.GetAll()
}

// SanitizeFilename reduces an uploaded file name to a safe base name made of
// ASCII letters, digits, '.', '_' and '-'. Whitespace becomes '_'.
func SanitizeFilename(filename string) (string, error) {
	filename = strings.NewReplacer("/", " ", "\\", " ").Replace(filename)
	filename = strings.Join(strings.Fields(filename), "_")

	var b strings.Builder
	for _, r := range filename {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}

	name := strings.Trim(b.String(), "._")
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return name, nil
}
