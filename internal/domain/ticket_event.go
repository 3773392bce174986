package domain

import "time"

// TicketEventType captures what a ticket audit entry records.
type TicketEventType string

const (
	EventTypeCreated         TicketEventType = "created"
	EventTypeStatusChanged   TicketEventType = "status_changed"
	EventTypeAssigned        TicketEventType = "assigned"
	EventTypeCommentAdded    TicketEventType = "comment_added"
	EventTypeAttachmentAdded TicketEventType = "attachment_added"
	EventTypePriorityChanged TicketEventType = "priority_changed"
	EventTypeUpdated         TicketEventType = "updated"
)

// TicketEvent is an append-only audit log row. One row is created per
// accepted mutation; rows are never updated or deleted.
type TicketEvent struct {
	ID        string
	TicketID  string
	EventType TicketEventType
	ActorID   *string
	OldValue  *string
	NewValue  *string
	Comment   *string
	Metadata  map[string]any
	CreatedAt time.Time
}
