package domain

import "time"

// NotificationType enumerates in-app notification kinds.
type NotificationType string

const (
	NotificationTicketCreated  NotificationType = "ticket_created"
	NotificationStatusChanged  NotificationType = "ticket_status_changed"
	NotificationTicketAssigned NotificationType = "ticket_assigned"
	NotificationCommentAdded   NotificationType = "ticket_comment_added"
	NotificationTicketResolved NotificationType = "ticket_resolved"
)

// Notification is a per-recipient in-app record. Notifications are
// created server-side as lifecycle side effects, never by a client
// request.
type Notification struct {
	ID        string
	UserID    string
	TicketID  *string
	Type      NotificationType
	Title     string
	Message   string
	IsRead    bool
	CreatedAt time.Time
}
