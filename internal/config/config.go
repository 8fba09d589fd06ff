package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              int
	StaticDirectory   string
	TemplateDirectory string

	ModelPath           string
	ClassNames          []string
	ConfidenceThreshold float64
	NMSThreshold        float64
	ModelInputSize      int

	CameraIndex  int
	CameraWidth  int
	CameraHeight int

	AlertSoundPath string
	AlertPlayer    string // Komenda odtwarzacza, np. "aplay -q"; pusta = domyślna dla systemu
	ErrorImagePath string

	UploadDirectory string
	MaxUploadSizeMB int64

	DatabasePath          string
	SnapshotDirectory     string
	SnapshotBufferLimit   int           // Maksymalna liczba zdjęć naruszeń na źródło między zapisami
	SnapshotFlushInterval time.Duration // Co ile zapisywać bufor na dysk

	LogDirectory  string
	LogLevel      string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// Load reads the optional .env file and builds the configuration from the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:              getEnvAsInt("PORT", 5000),
		StaticDirectory:   getEnv("STATIC_DIR", "static"),
		TemplateDirectory: getEnv("TEMPLATE_DIR", "templates"),

		ModelPath:           getEnv("MODEL_PATH", filepath.Join(".", "models", "ppe_yolov8.onnx")),
		ClassNames:          getEnvAsList("CLASS_NAMES", nil),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.5),
		NMSThreshold:        getEnvAsFloat("NMS_THRESHOLD", 0.45),
		ModelInputSize:      getEnvAsInt("MODEL_INPUT_SIZE", 640),

		CameraIndex:  getEnvAsInt("CAMERA_INDEX", 0),
		CameraWidth:  getEnvAsInt("CAMERA_WIDTH", 640),
		CameraHeight: getEnvAsInt("CAMERA_HEIGHT", 480),

		AlertSoundPath: getEnv("ALERT_SOUND", filepath.Join("static", "alert.wav")),
		AlertPlayer:    getEnv("ALERT_PLAYER", ""),
		ErrorImagePath: getEnv("ERROR_IMAGE", filepath.Join("static", "error.jpg")),

		UploadDirectory: getEnv("UPLOAD_DIR", filepath.Join("static", "files")),
		MaxUploadSizeMB: getEnvAsInt64("MAX_UPLOAD_SIZE_MB", 512),

		DatabasePath:          getEnv("DB_PATH", filepath.Join(".", "data", "ppemonitor.db")),
		SnapshotDirectory:     getEnv("SNAPSHOT_DIR", filepath.Join(".", "data", "snapshots")),
		SnapshotBufferLimit:   getEnvAsInt("SNAPSHOT_BUFFER_LIMIT", 5),
		SnapshotFlushInterval: getEnvAsDuration("SNAPSHOT_FLUSH_INTERVAL", 30*time.Second),

		LogDirectory:  getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogMaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 14),
	}
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadSizeMB << 20
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("45s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
