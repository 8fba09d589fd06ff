package model

import "time"

// Job describes one uploaded video that can be streamed through the detector.
type Job struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	FilePath  string    `json:"filepath"`
	FileSize  int64     `json:"filesize"`
	CreatedAt time.Time `json:"created_at"`
}
