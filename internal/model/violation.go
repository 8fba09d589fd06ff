package model

import "time"

// ViolationEvent records the moment a source started showing missing safety gear.
type ViolationEvent struct {
	ID        int64     `json:"id"`
	Source    string    `json:"source"`
	Labels    []string  `json:"labels"`
	Snapshot  string    `json:"snapshot"`
	StartedAt time.Time `json:"started_at"`
}

// ViolationFilter contains filtering options for querying violation events.
type ViolationFilter struct {
	Source string
	Label  string
	Since  time.Time
	Limit  int
	Offset int
}

// ViolationStats contains statistics about recorded violations.
type ViolationStats struct {
	TotalEvents int            `json:"total_events"`
	PerSource   map[string]int `json:"per_source"`
	LabelCounts map[string]int `json:"label_counts"`
}
