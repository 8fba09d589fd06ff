package repository

import (
	"ppemonitor/internal/model"
)

// JobRepository defines the interface for upload job operations.
type JobRepository interface {
	// Create operations
	Insert(job *model.Job) error

	// Read operations
	GetByID(id string) (*model.Job, error)
	GetByFilePath(path string) (*model.Job, error)
	GetAll() ([]model.Job, error)

	// Delete operations
	Delete(id string) error
}

// ViolationRepository defines the interface for violation event operations.
type ViolationRepository interface {
	// Create operations
	Insert(event *model.ViolationEvent) (int64, error)

	// Read operations
	GetAll(filter *model.ViolationFilter) ([]model.ViolationEvent, error)
	GetTotalCount(filter *model.ViolationFilter) (int, error)
	GetStats() (*model.ViolationStats, error)

	// Delete operations
	DeleteAll() error
}
