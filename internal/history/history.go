package history

import (
	"context"
	"time"

	"github.com/loykin/longrun/internal/operation"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventStarted         EventType = "started"
	EventPaused          EventType = "paused"
	EventResumed         EventType = "resumed"
	EventCancelRequested EventType = "cancel_requested"
	EventCancelled       EventType = "cancelled"
	EventFinished        EventType = "finished"
	EventFailed          EventType = "failed"
)

// Event represents a lifecycle event to be exported to external systems.
type Event struct {
	Type        EventType        `json:"type"`
	OccurredAt  time.Time        `json:"occurred_at"`
	OperationID string           `json:"operation_id"`
	Status      operation.Status `json:"status"`
	Step        int              `json:"step"`
	Total       int              `json:"total"`
}

// Sink is a destination for history events (analytics/statistics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
