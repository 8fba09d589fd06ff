package dto

import "time"

// JobInfo describes an uploaded video and where it can be streamed from.
type JobInfo struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	FileSize  int64     `json:"filesize"`
	CreatedAt time.Time `json:"createdAt"`
	StreamURL string    `json:"streamUrl"`
}
