package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"ppemonitor/internal/config"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/metrics"
	"ppemonitor/internal/repository/sqlite"
	"ppemonitor/internal/service/jobs"
	"strings"
)

var videoExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
}

func main() {
	cfg := config.Load()
	flag.StringVar(&cfg.UploadDirectory, "videos", cfg.UploadDirectory, "Directory containing uploaded videos")
	flag.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "Database path")
	flag.Parse()

	fmt.Printf("Registering videos from %s in database %s\n", cfg.UploadDirectory, cfg.DatabasePath)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	l := logger.NewLogger(cfg)
	defer l.Close()

	jobService := jobs.NewService(cfg, sqlite.NewJobRepository(db), l, metrics.New())

	registered, skipped, err := registerUploads(jobService, cfg.UploadDirectory, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to register videos: %v", err)
	}

	fmt.Printf("✅ Registered %d videos\n", registered)
	if skipped > 0 {
		fmt.Printf("⚠️  Skipped %d files (already registered or unreadable)\n", skipped)
	}

	// Show stats
	all, err := jobService.List()
	if err != nil {
		return
	}
	stats, err := sqlite.NewViolationRepository(db).GetStats()
	if err == nil {
		fmt.Printf("\n📊 Database Statistics:\n")
		fmt.Printf("   Jobs: %d\n", len(all))
		fmt.Printf("   Violation events: %d\n", stats.TotalEvents)
		if len(stats.PerSource) > 0 {
			fmt.Printf("   Per source:\n")
			for source, count := range stats.PerSource {
				fmt.Printf("      - %s: %d events\n", source, count)
			}
		}
	}
}

// registerUploads creates a job for every video in dir that has none yet.
func registerUploads(jobService *jobs.Service, dir string, out io.Writer) (registered, skipped int, err error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read upload directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !videoExtensions[strings.ToLower(filepath.Ext(file.Name()))] {
			continue
		}

		job, created, err := jobService.Register(filepath.Join(dir, file.Name()))
		if err != nil {
			log.Printf("⚠️  Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}
		if !created {
			skipped++
			continue
		}
		registered++
		fmt.Fprintf(out, "   + %s -> %s\n", job.Filename, job.ID)
	}
	return registered, skipped, nil
}
