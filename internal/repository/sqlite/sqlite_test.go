package sqlite_test

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"ppemonitor/internal/model"
	"ppemonitor/internal/repository"
	"ppemonitor/internal/repository/sqlite"
)

var (
	_ repository.JobRepository       = (*sqlite.JobRepository)(nil)
	_ repository.ViolationRepository = (*sqlite.ViolationRepository)(nil)
)

// ========================================
// Test Setup Helpers
// ========================================

func setupTestDB(t *testing.T) (*sqlite.DB, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "ppemonitor_db_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	db, err := sqlite.New(filepath.Join(tempDir, "data", "test.db"))
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Failed to create test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tempDir)
	}

	return db, cleanup
}

func newJob(id, filename string, created time.Time) *model.Job {
	return &model.Job{
		ID:        id,
		Filename:  filename,
		FilePath:  filepath.Join("static", "files", id+"_"+filename),
		FileSize:  2048,
		CreatedAt: created,
	}
}

// ========================================
// Database Tests
// ========================================

func TestDatabase_CreatesDirectoryAndFile(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "nested", "ppemonitor.db")

	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

func TestDatabase_MigrationIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 2; i++ {
		db, err := sqlite.New(dbPath)
		if err != nil {
			t.Fatalf("Open %d failed: %v", i, err)
		}
		db.Close()
	}
}

// ========================================
// Job Repository Tests
// ========================================

func TestJobRepository_InsertAndGetByID(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := sqlite.NewJobRepository(db)
	created := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)
	job := newJob("6f1c2b1e-0000-4000-8000-000000000001", "site_walk.mp4", created)

	if err := repo.Insert(job); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := repo.GetByID(job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected job, got nil")
	}
	if got.Filename != job.Filename || got.FilePath != job.FilePath || got.FileSize != job.FileSize {
		t.Errorf("GetByID = %+v, want %+v", got, job)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
}

func TestJobRepository_GetByID_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	got, err := sqlite.NewJobRepository(db).GetByID("missing")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing job, got %+v", got)
	}
}

func TestJobRepository_DuplicateID(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := sqlite.NewJobRepository(db)
	job := newJob("dup", "a.mp4", time.Now())
	if err := repo.Insert(job); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := repo.Insert(job); err == nil {
		t.Error("Expected error for duplicate job id, got nil")
	}
}

func TestJobRepository_GetAllNewestFirst(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := sqlite.NewJobRepository(db)
	base := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := repo.Insert(newJob(fmt.Sprintf("job-%d", i), "clip.mp4", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}

	jobs, err := repo.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	var ids []string
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	if !reflect.DeepEqual(ids, []string{"job-2", "job-1", "job-0"}) {
		t.Errorf("GetAll order = %v", ids)
	}
}

func TestJobRepository_GetByFilePathAndDelete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := sqlite.NewJobRepository(db)
	job := newJob("job-1", "yard.mp4", time.Now())
	if err := repo.Insert(job); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := repo.GetByFilePath(job.FilePath)
	if err != nil || got == nil || got.ID != "job-1" {
		t.Fatalf("GetByFilePath = %+v, %v", got, err)
	}
	if got, err := repo.GetByFilePath(filepath.Join("static", "files", "yard.mp4")); err != nil || got != nil {
		t.Errorf("GetByFilePath(unknown) = %+v, %v, want nil", got, err)
	}

	if err := repo.Delete("job-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, _ := repo.GetByID("job-1"); got != nil {
		t.Error("Job should be deleted")
	}
}

// ========================================
// Violation Repository Tests
// ========================================

func TestViolationRepository_InsertAndGetAll(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := sqlite.NewViolationRepository(db)
	started := time.Date(2024, 3, 10, 9, 15, 0, 0, time.UTC)
	event := &model.ViolationEvent{
		Source:    "camera:0",
		Labels:    []string{"NO-Hardhat", "NO-Mask"},
		Snapshot:  "2024-03-10_09-15_00.000_camera-0_NO-Hardhat_NO-Mask.jpg",
		StartedAt: started,
	}

	id, err := repo.Insert(event)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id <= 0 || event.ID != id {
		t.Errorf("Expected positive ID stored on event, got %d / %d", id, event.ID)
	}

	events, err := repo.GetAll(&model.ViolationFilter{})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	got := events[0]
	if got.Source != event.Source || got.Snapshot != event.Snapshot || !got.StartedAt.Equal(started) {
		t.Errorf("GetAll = %+v", got)
	}
	if !reflect.DeepEqual(got.Labels, event.Labels) {
		t.Errorf("Labels = %v, want %v", got.Labels, event.Labels)
	}
}

func TestViolationRepository_Filters(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := sqlite.NewViolationRepository(db)
	base := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	fixtures := []model.ViolationEvent{
		{Source: "camera:0", Labels: []string{"NO-Hardhat"}, StartedAt: base},
		{Source: "camera:0", Labels: []string{"NO-Mask"}, StartedAt: base.Add(time.Minute)},
		{Source: "job-1", Labels: []string{"NO-Hardhat", "NO-Safety Vest"}, StartedAt: base.Add(2 * time.Minute)},
		{Source: "job-1", Labels: []string{"NO-Gloves"}, StartedAt: base.Add(3 * time.Minute)},
	}
	for i := range fixtures {
		if _, err := repo.Insert(&fixtures[i]); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}

	tests := []struct {
		name   string
		filter *model.ViolationFilter
		want   int
	}{
		{"nil filter", nil, 4},
		{"by source", &model.ViolationFilter{Source: "camera:0"}, 2},
		{"by label", &model.ViolationFilter{Label: "NO-Hardhat"}, 2},
		{"since", &model.ViolationFilter{Since: base.Add(2 * time.Minute)}, 2},
		{"source and label", &model.ViolationFilter{Source: "job-1", Label: "NO-Hardhat"}, 1},
		{"limit", &model.ViolationFilter{Limit: 3}, 3},
		{"limit offset", &model.ViolationFilter{Limit: 3, Offset: 2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := repo.GetAll(tt.filter)
			if err != nil {
				t.Fatalf("GetAll failed: %v", err)
			}
			if len(events) != tt.want {
				t.Errorf("GetAll returned %d events, want %d", len(events), tt.want)
			}
		})
	}

	count, err := repo.GetTotalCount(&model.ViolationFilter{Label: "NO-Hardhat", Limit: 1})
	if err != nil {
		t.Fatalf("GetTotalCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("GetTotalCount ignores pagination, got %d want 2", count)
	}

	latest, _ := repo.GetAll(&model.ViolationFilter{Limit: 1})
	if len(latest) != 1 || latest[0].Labels[0] != "NO-Gloves" {
		t.Errorf("Expected newest event first, got %+v", latest)
	}
}

func TestViolationRepository_StatsAndDeleteAll(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := sqlite.NewViolationRepository(db)
	now := time.Now()
	repo.Insert(&model.ViolationEvent{Source: "camera:0", Labels: []string{"NO-Hardhat"}, StartedAt: now})
	repo.Insert(&model.ViolationEvent{Source: "camera:0", Labels: []string{"NO-Hardhat", "NO-Mask"}, StartedAt: now})
	repo.Insert(&model.ViolationEvent{Source: "job-7", Labels: []string{"NO-Mask"}, StartedAt: now})

	stats, err := repo.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalEvents != 3 {
		t.Errorf("TotalEvents = %d, want 3", stats.TotalEvents)
	}
	if stats.PerSource["camera:0"] != 2 || stats.PerSource["job-7"] != 1 {
		t.Errorf("PerSource = %v", stats.PerSource)
	}
	if stats.LabelCounts["NO-Hardhat"] != 2 || stats.LabelCounts["NO-Mask"] != 2 {
		t.Errorf("LabelCounts = %v", stats.LabelCounts)
	}

	if err := repo.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if count, _ := repo.GetTotalCount(nil); count != 0 {
		t.Errorf("Expected 0 events after DeleteAll, got %d", count)
	}
}

func TestViolationRepository_ConcurrentInsert(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := sqlite.NewViolationRepository(db)

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(idx int) {
			_, err := repo.Insert(&model.ViolationEvent{
				Source:    fmt.Sprintf("camera:%d", idx),
				Labels:    []string{"NO-Hardhat"},
				StartedAt: time.Now(),
			})
			if err != nil {
				t.Errorf("Concurrent insert %d failed: %v", idx, err)
			}
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	count, _ := repo.GetTotalCount(&model.ViolationFilter{})
	if count != 10 {
		t.Errorf("Expected 10 events, got %d", count)
	}
}
