package storage

import (
	"context"
	"os"
	"path/filepath"
	"ppemonitor/internal/config"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/model"
	"ppemonitor/internal/repository/sqlite"
	"reflect"
	"testing"
	"time"
)

func newTestBuffer(t *testing.T, limit int) (*BufferService, *sqlite.ViolationRepository, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		SnapshotDirectory:     filepath.Join(dir, "snapshots"),
		SnapshotBufferLimit:   limit,
		SnapshotFlushInterval: 10 * time.Millisecond,
		LogDirectory:          filepath.Join(dir, "logs"),
		LogLevel:              "error",
		LogMaxSizeMB:          1,
	}

	db, err := sqlite.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	l := logger.NewLogger(cfg)
	t.Cleanup(func() {
		db.Close()
		l.Close()
	})

	repo := sqlite.NewViolationRepository(db)
	buf := NewBufferService(cfg, l, repo)
	buf.now = func() time.Time { return time.Date(2024, 3, 10, 9, 15, 7, 250e6, time.UTC) }
	return buf, repo, cfg.SnapshotDirectory
}

func TestSnapshotName(t *testing.T) {
	ts := time.Date(2024, 3, 10, 9, 15, 7, 250e6, time.UTC)
	got := SnapshotName(ts, "camera:0", []string{"NO-Hardhat", "NO-Safety Vest"})
	want := "2024-03-10_09-15_07.250_camera-0_NO-Hardhat_NO-Safety-Vest.jpg"
	if got != want {
		t.Errorf("SnapshotName = %q, want %q", got, want)
	}
}

func TestBuffer_FlushWritesFilesAndEvents(t *testing.T) {
	buf, repo, dir := newTestBuffer(t, 5)

	buf.Record("camera:0", []string{"NO-Mask"}, []byte("jpeg-1"))
	if buf.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", buf.Pending())
	}
	if count, _ := repo.GetTotalCount(nil); count != 0 {
		t.Errorf("event written before flush")
	}

	buf.FlushSnapshots()

	if buf.Pending() != 0 {
		t.Errorf("buffer not cleared after flush")
	}
	events, err := repo.GetAll(nil)
	if err != nil || len(events) != 1 {
		t.Fatalf("events = %v, %v", events, err)
	}
	ev := events[0]
	if ev.Source != "camera:0" || !reflect.DeepEqual(ev.Labels, []string{"NO-Mask"}) {
		t.Errorf("event = %+v", ev)
	}
	data, err := os.ReadFile(filepath.Join(dir, ev.Snapshot))
	if err != nil || string(data) != "jpeg-1" {
		t.Errorf("snapshot %q content = %q, %v", ev.Snapshot, data, err)
	}
}

func TestBuffer_LimitPerSource(t *testing.T) {
	buf, repo, _ := newTestBuffer(t, 2)

	for i := 0; i < 4; i++ {
		buf.Record("job-1", []string{"NO-Hardhat"}, []byte("jpeg"))
	}
	buf.Record("job-2", []string{"NO-Hardhat"}, []byte("jpeg"))

	if buf.Pending() != 3 {
		t.Errorf("Pending = %d, want 2 for job-1 and 1 for job-2", buf.Pending())
	}
	if count, _ := repo.GetTotalCount(nil); count != 2 {
		t.Errorf("over-limit events written immediately: got %d, want 2", count)
	}

	buf.FlushSnapshots()
	withSnapshot := 0
	events, _ := repo.GetAll(nil)
	for _, ev := range events {
		if ev.Snapshot != "" {
			withSnapshot++
		}
	}
	if len(events) != 5 || withSnapshot != 3 {
		t.Errorf("events = %d (with snapshot %d), want 5 (3)", len(events), withSnapshot)
	}

	buf.Record("job-1", []string{"NO-Hardhat"}, []byte("jpeg"))
	if buf.Pending() != 1 {
		t.Error("per-source counters not reset after flush")
	}
}

func TestBuffer_RecordWithoutSnapshot(t *testing.T) {
	buf, repo, _ := newTestBuffer(t, 5)

	buf.Record("camera:1", []string{"NO-Gloves"}, nil)

	if buf.Pending() != 0 {
		t.Error("event without image must not be buffered")
	}
	events, _ := repo.GetAll(&model.ViolationFilter{Source: "camera:1"})
	if len(events) != 1 || events[0].Snapshot != "" {
		t.Errorf("events = %+v", events)
	}
}

func TestBuffer_RunFlushesOnCancel(t *testing.T) {
	buf, repo, _ := newTestBuffer(t, 5)
	buf.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		buf.Run(ctx)
		close(done)
	}()

	buf.Record("camera:0", []string{"NO-Mask"}, []byte("jpeg"))
	cancel()
	<-done

	if count, _ := repo.GetTotalCount(nil); count != 1 {
		t.Errorf("expected final flush on shutdown, got %d events", count)
	}
}

func TestBuffer_Clear(t *testing.T) {
	buf, repo, dir := newTestBuffer(t, 5)

	buf.Record("camera:0", []string{"NO-Mask"}, []byte("jpeg-1"))
	buf.FlushSnapshots()
	buf.Record("camera:0", []string{"NO-Hardhat"}, nil)
	buf.Record("hall.mp4", []string{"NO-Gloves"}, []byte("jpeg-2"))

	removed, err := buf.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if buf.Pending() != 0 {
		t.Errorf("Pending = %d after Clear, want 0", buf.Pending())
	}
	if count, _ := repo.GetTotalCount(nil); count != 0 {
		t.Errorf("events after Clear = %d, want 0", count)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("snapshot directory still holds %d files", len(entries))
	}

	// Nothing buffered before the clear comes back on the next flush.
	buf.FlushSnapshots()
	if count, _ := repo.GetTotalCount(nil); count != 0 {
		t.Errorf("events after flush = %d, want 0", count)
	}
}

func TestBuffer_ClearWithoutDirectory(t *testing.T) {
	buf, _, _ := newTestBuffer(t, 5)

	removed, err := buf.Clear()
	if err != nil || removed != 0 {
		t.Errorf("Clear = %d, %v, want 0, nil", removed, err)
	}
}
