package dto

import (
	"time"

	"github.com/carelog/carelog/internal/domain"
)

// CreateTicketRequest is the payload for POST /tickets.
type CreateTicketRequest struct {
	OrganizationID  string                `json:"organization_id"`
	LocationID      string                `json:"location_id"`
	HardwareID      *string               `json:"hardware_id,omitempty"`
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	Priority        domain.TicketPriority `json:"priority"`
	SOPAcknowledged bool                  `json:"sop_acknowledged"`
}

// ChangeStatusRequest is the payload for POST /staff/tickets/:id/status.
type ChangeStatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Comment string              `json:"comment,omitempty"`
}

// AssignTicketRequest is the payload for POST /staff/tickets/:id/assign.
type AssignTicketRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// ChangePriorityRequest is the payload for POST /staff/tickets/:id/priority.
type ChangePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// CreateCommentRequest is the payload for POST /tickets/:id/comments.
type CreateCommentRequest struct {
	Body        string              `json:"body"`
	IsInternal  bool                `json:"is_internal"`
	Attachments []AttachmentRequest `json:"attachments,omitempty"`
}

// AttachmentRequest references an already-uploaded file.
type AttachmentRequest struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// RateTicketRequest is the payload for POST /tickets/:id/rating.
type RateTicketRequest struct {
	Rating int `json:"rating"`
}

// TicketSummary is the list-view projection.
type TicketSummary struct {
	ID             string                `json:"id"`
	Number         string                `json:"number"`
	OrganizationID string                `json:"organization_id"`
	LocationID     string                `json:"location_id"`
	Title          string                `json:"title"`
	Status         domain.TicketStatus   `json:"status"`
	Priority       domain.TicketPriority `json:"priority"`
	AssigneeID     *string               `json:"assignee_id,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// TicketDetailResponse is the single-ticket projection with thread and
// audit history.
type TicketDetailResponse struct {
	ID                 string                  `json:"id"`
	Number             string                  `json:"number"`
	OrganizationID     string                  `json:"organization_id"`
	LocationID         string                  `json:"location_id"`
	HardwareID         *string                 `json:"hardware_id,omitempty"`
	SubmitterID        string                  `json:"submitter_id"`
	AssigneeID         *string                 `json:"assignee_id,omitempty"`
	Title              string                  `json:"title"`
	Description        string                  `json:"description"`
	Status             domain.TicketStatus     `json:"status"`
	Priority           domain.TicketPriority   `json:"priority"`
	SOPAcknowledged    bool                    `json:"sop_acknowledged"`
	FirstResponseAt    *time.Time              `json:"first_response_at,omitempty"`
	ResolvedAt         *time.Time              `json:"resolved_at,omitempty"`
	ClosedAt           *time.Time              `json:"closed_at,omitempty"`
	ClosedSummary      *string                 `json:"closed_summary,omitempty"`
	SatisfactionRating *int                    `json:"satisfaction_rating,omitempty"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
	Comments           []CommentResponse     `json:"comments"`
	History            []TicketEventResponse `json:"history"`
}

// CommentResponse is the thread-item projection.
type CommentResponse struct {
	ID          string               `json:"id"`
	AuthorID    string               `json:"author_id"`
	Body        string               `json:"body"`
	IsInternal  bool                 `json:"is_internal"`
	Attachments []AttachmentResponse `json:"attachments"`
	CreatedAt   time.Time            `json:"created_at"`
}

// AttachmentResponse is the attachment projection.
type AttachmentResponse struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// TicketEventResponse is the audit-entry projection.
type TicketEventResponse struct {
	ID        string                 `json:"id"`
	EventType domain.TicketEventType `json:"event_type"`
	ActorID   *string                `json:"actor_id,omitempty"`
	OldValue  *string                `json:"old_value,omitempty"`
	NewValue  *string                `json:"new_value,omitempty"`
	Comment   *string                `json:"comment,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// TimingResponse reports the derived SLA durations in seconds.
type TimingResponse struct {
	TicketID          string `json:"ticket_id"`
	ResponseSeconds   *int64 `json:"response_seconds,omitempty"`
	ResolutionSeconds *int64 `json:"resolution_seconds,omitempty"`
	TotalOpenSeconds  *int64 `json:"total_open_seconds,omitempty"`
}
