package dto

import (
	"time"

	"github.com/carelog/carelog/internal/domain"
)

// NotificationResponse is the in-app notification projection.
type NotificationResponse struct {
	ID        string                  `json:"id"`
	TicketID  *string                 `json:"ticket_id,omitempty"`
	Type      domain.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	IsRead    bool                    `json:"is_read"`
	CreatedAt time.Time               `json:"created_at"`
}

// NewNotificationResponse projects a domain notification.
func NewNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		TicketID:  n.TicketID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

// EmailWebhookRequest is the delivery-event payload posted by the
// e-mail provider.
type EmailWebhookRequest struct {
	Timestamp string `json:"timestamp"`
	Token     string `json:"token"`
	Signature string `json:"signature"`
	Event     string `json:"event"`
	Recipient string `json:"recipient"`
	MessageID string `json:"message_id"`
}
