package dto

import "time"

// BufferedSnapshot holds an annotated violation frame before flushing to disk.
type BufferedSnapshot struct {
	Timestamp time.Time
	Source    string
	Labels    []string
	Data      []byte
}
