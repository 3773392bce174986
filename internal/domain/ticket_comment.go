package domain

import "time"

// TicketComment is a message on a ticket thread. Internal comments are
// staff-only and are excluded from member views and from the closing
// summary prompt.
type TicketComment struct {
	ID          string
	TicketID    string
	AuthorID    string
	Body        string
	IsInternal  bool
	Attachments []AttachmentReference
	CreatedAt   time.Time
}

// AttachmentReference stores metadata for a comment attachment.
type AttachmentReference struct {
	ID         string
	CommentID  string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
