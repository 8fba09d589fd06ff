package sqlite

import (
	"database/sql"
	"fmt"

	"ppemonitor/internal/model"
)

// JobRepository implements repository.JobRepository for SQLite.
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new SQLite job repository.
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

// Insert adds a new job record to the database.
func (r *JobRepository) Insert(job *model.Job) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO jobs (id, filename, filepath, filesize, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, job.ID, job.Filename, job.FilePath, job.FileSize, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by its ID. A missing job yields nil without error.
func (r *JobRepository) GetByID(id string) (*model.Job, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.scanOne(r.db.Conn().QueryRow(`
		SELECT id, filename, filepath, filesize, created_at
		FROM jobs WHERE id = ?
	`, id))
}

// GetByFilePath retrieves the job registered for a file on disk.
func (r *JobRepository) GetByFilePath(path string) (*model.Job, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.scanOne(r.db.Conn().QueryRow(`
		SELECT id, filename, filepath, filesize, created_at
		FROM jobs WHERE filepath = ?
	`, path))
}

func (r *JobRepository) scanOne(row *sql.Row) (*model.Job, error) {
	var job model.Job
	err := row.Scan(&job.ID, &job.Filename, &job.FilePath, &job.FileSize, &job.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// GetAll returns every job, newest first.
func (r *JobRepository) GetAll() ([]model.Job, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, filename, filepath, filesize, created_at
		FROM jobs ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var job model.Job
		if err := rows.Scan(&job.ID, &job.Filename, &job.FilePath, &job.FileSize, &job.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Delete removes a job by its ID.
func (r *JobRepository) Delete(id string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}
