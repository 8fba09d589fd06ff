package dto

import "time"

// AlertEvent is pushed to alert feed viewers whenever a source changes compliance state.
type AlertEvent struct {
	Source    string    `json:"source"`
	Violation bool      `json:"violation"`
	Labels    []string  `json:"labels"`
	Timestamp time.Time `json:"timestamp"`
}
