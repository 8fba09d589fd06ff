package dto

import (
	"encoding/json"
	"time"
)

// ViolationInfo is a violation event as shown in the dashboard.
type ViolationInfo struct {
	ID          int64     `json:"id"`
	Source      string    `json:"source"`
	Labels      []string  `json:"labels"` // Missing gear, e.g. NO-Hardhat
	Date        time.Time `json:"date"`
	TimeOfDay   time.Time `json:"timeOfDay"`
	SnapshotURL string    `json:"snapshotUrl,omitempty"`
}

// MarshalJSON customizes JSON output for ViolationInfo to format date and time-of-day.
func (v ViolationInfo) MarshalJSON() ([]byte, error) {
	type Alias ViolationInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      v.Date.Format("02-01-2006"),
		TimeOfDay: v.TimeOfDay.Format("15:04:05"),
		Alias:     (Alias)(v),
	})
}
