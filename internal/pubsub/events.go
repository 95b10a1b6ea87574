// Package pubsub fans typed events out to buffered subscriber channels.
// Log entries reach the debug overlay through it, and repository change
// notifications reach the update loop.
package pubsub

import "time"

// EventType labels what happened to the payload's subject.
type EventType string

const (
	CreatedEvent EventType = "created"
	UpdatedEvent EventType = "updated"
	DeletedEvent EventType = "deleted"
)

// Event pairs a payload with its type and publish time.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}
