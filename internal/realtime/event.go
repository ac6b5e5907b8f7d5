package realtime

import (
	"time"

	"github.com/google/uuid"
)

type RunEventType string

const (
	RunEventCreated RunEventType = "run_created"
	RunEventStatus  RunEventType = "run_status"
	RunEventFailed  RunEventType = "run_failed"
	RunEventDone    RunEventType = "run_done"
)

// RunEvent is published whenever a generation run changes.
type RunEvent struct {
	// Channel scopes delivery; it is the collection ID.
	Channel      string       `json:"channel"`
	Event        RunEventType `json:"event"`
	RunID        uuid.UUID    `json:"run_id"`
	CollectionID uuid.UUID    `json:"collection_id"`
	JobType      string       `json:"job_type,omitempty"`
	Status       string       `json:"status,omitempty"`
	Progress     int          `json:"progress,omitempty"`
	Message      string       `json:"message,omitempty"`
	Error        string       `json:"error,omitempty"`
	Data         any          `json:"data,omitempty"`
	At           time.Time    `json:"at"`
}
