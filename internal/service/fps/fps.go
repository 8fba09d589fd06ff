// Package fps measures the frame rate of a processing loop.
package fps

import "time"

// Meter reports the instantaneous frame rate from consecutive frame times.
type Meter struct {
	prev time.Time
}

// Tick records a frame at now and returns the rate since the previous frame.
// The first frame and a zero interval report 0.
func (m *Meter) Tick(now time.Time) int {
	prev := m.prev
	m.prev = now
	if prev.IsZero() {
		return 0
	}
	elapsed := now.Sub(prev).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return int(1 / elapsed)
}
