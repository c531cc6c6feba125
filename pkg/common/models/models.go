package models

import "time"

const (
	EventRunCompleted = "dcis.run.completed"
	EventRunFailed    = "dcis.run.failed"
)

// Event is the envelope published on the pipeline topic.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
