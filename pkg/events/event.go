package events

import "time"

// Event is the contract every domain event satisfies before it hits the bus.
type Event interface {
	// EventType returns the unique code for this event (e.g. "FILE_UPLOADED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is a ready-made implementation for ad-hoc events.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Event codes published by the platform.
const (
	TypeUserRegistered = "USER_REGISTERED"
	TypeProjectDeleted = "PROJECT_DELETED"
	TypeFileUploaded   = "FILE_UPLOADED"
	TypeFileProcessed  = "FILE_PROCESSED"
)
