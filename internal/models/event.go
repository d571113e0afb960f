package models

import "time"

// Change event type constants
const (
	EventRecordPut     = "RECORD_PUT"
	EventRecordDeleted = "RECORD_DELETED"
)

// ChangeEvent notifies connected clients that a persisted record changed
// and they should re-render.
type ChangeEvent struct {
	EventType string    `json:"event_type"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	RecordID  string    `json:"record_id"`
	Timestamp time.Time `json:"timestamp"`
}
