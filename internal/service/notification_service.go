package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/carelog/carelog/internal/domain"
	"github.com/carelog/carelog/internal/events"
	"github.com/carelog/carelog/internal/mailer"
	"github.com/carelog/carelog/internal/observability"
	"github.com/carelog/carelog/internal/repository"
	apperrors "github.com/carelog/carelog/pkg/util"
)

// NotificationService turns lifecycle events into per-recipient in-app
// notifications and transactional e-mail. Every side effect here is
// best-effort: a failed insert or delivery is logged and swallowed, it
// never surfaces to the request that triggered the event.
type NotificationService struct {
	notifications repository.NotificationRepository
	tickets       repository.TicketRepository
	users         repository.UserRepository
	mail          mailer.Mailer
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(
	notifications repository.NotificationRepository,
	tickets repository.TicketRepository,
	users repository.UserRepository,
	mail mailer.Mailer,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		tickets:       tickets,
		users:         users,
		mail:          mail,
		metrics:       metrics,
		logger:        logger,
	}
}

// Register subscribes to the lifecycle events that fan out to users.
func (s *NotificationService) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, s.handleTicketCreated)
	dispatcher.Subscribe(events.EventTicketStatusChanged, s.handleStatusChanged)
	dispatcher.Subscribe(events.EventTicketAssigned, s.handleAssigned)
	dispatcher.Subscribe(events.EventTicketCommentAdded, s.handleCommentAdded)
}

// ListForUser returns the caller's own notifications.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	return s.notifications.ListByUser(ctx, userID, unreadOnly, limit, offset)
}

// MarkRead marks one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if err := s.notifications.MarkRead(ctx, userID, notificationID); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("notification", nil)
		}
		return err
	}
	return nil
}

// MarkAllRead marks every unread notification of the caller as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.notifications.MarkAllRead(ctx, userID)
}

func (s *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	ticket, err := s.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		s.logNotifyFailure(event, err)
		return nil
	}
	title := fmt.Sprintf("Ticket %s created", ticket.Number)
	message := fmt.Sprintf("Your ticket %q was received and is in the queue.", ticket.Title)
	s.notify(ctx, event, ticket, domain.NotificationTicketCreated, title, message)
	return nil
}

func (s *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	ticket, err := s.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		s.logNotifyFailure(event, err)
		return nil
	}

	title := fmt.Sprintf("Ticket %s is now %s", ticket.Number, payload.NewStatus)
	message := fmt.Sprintf("Status changed from %s to %s.", payload.OldStatus, payload.NewStatus)
	if strings.TrimSpace(payload.Comment) != "" {
		message += " Note: " + strings.TrimSpace(payload.Comment)
	}

	notificationType := domain.NotificationStatusChanged
	if payload.NewStatus == domain.TicketStatusResolved {
		notificationType = domain.NotificationTicketResolved
	}
	s.notify(ctx, event, ticket, notificationType, title, message)

	// The submitter additionally gets a resolution e-mail with the time
	// it took, even when they triggered the change themselves.
	if payload.NewStatus == domain.TicketStatusResolved {
		s.sendResolutionEmail(ctx, ticket)
	}
	return nil
}

func (s *NotificationService) handleAssigned(ctx context.Context, event events.Event) error {
	ticket, err := s.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		s.logNotifyFailure(event, err)
		return nil
	}
	title := fmt.Sprintf("Ticket %s assigned", ticket.Number)
	message := fmt.Sprintf("Ticket %q has been assigned to a technician.", ticket.Title)
	s.notify(ctx, event, ticket, domain.NotificationTicketAssigned, title, message)
	return nil
}

func (s *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCommentAddedPayload)
	if !ok {
		return nil
	}
	// Internal notes stay invisible to members, so they produce no
	// notifications at all.
	if payload.IsInternal {
		return nil
	}
	ticket, err := s.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		s.logNotifyFailure(event, err)
		return nil
	}
	title := fmt.Sprintf("New reply on ticket %s", ticket.Number)
	message := payload.BodyPreview
	s.notify(ctx, event, ticket, domain.NotificationCommentAdded, title, message)
	return nil
}

// notify fans a notification out to the ticket's submitter and current
// assignee, minus the actor who caused the event. Each recipient gets
// one in-app record and one e-mail.
func (s *NotificationService) notify(ctx context.Context, event events.Event, ticket *domain.Ticket, notificationType domain.NotificationType, title, message string) {
	for _, recipientID := range s.recipients(ticket, event.Actor.ID) {
		notification := &domain.Notification{
			UserID:   recipientID,
			TicketID: &ticket.ID,
			Type:     notificationType,
			Title:    title,
			Message:  message,
		}
		if err := s.notifications.Create(ctx, notification); err != nil {
			s.logger.Warn("failed to create notification",
				zap.String("ticket_id", ticket.ID),
				zap.String("user_id", recipientID),
				zap.Error(err))
		}

		recipient, err := s.users.GetByID(ctx, recipientID)
		if err != nil {
			s.logger.Warn("failed to load notification recipient",
				zap.String("user_id", recipientID), zap.Error(err))
			continue
		}
		if err := s.mail.Send(ctx, mailer.Message{
			To:      recipient.Email,
			Subject: title,
			HTML:    fmt.Sprintf("<p>Hi %s,</p><p>%s</p><p>Ticket: %s</p>", recipient.FirstName, message, ticket.Number),
		}); err != nil {
			s.metrics.RecordEmailFailure()
			s.logger.Warn("failed to send notification email",
				zap.String("user_id", recipientID), zap.Error(err))
		}
	}
}

// recipients returns the distinct set {submitter, assignee} minus the
// acting user.
func (s *NotificationService) recipients(ticket *domain.Ticket, actorID string) []string {
	seen := map[string]bool{actorID: true}
	var out []string
	for _, id := range []string{ticket.SubmitterID, derefString(ticket.AssigneeID)} {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (s *NotificationService) sendResolutionEmail(ctx context.Context, ticket *domain.Ticket) {
	submitter, err := s.users.GetByID(ctx, ticket.SubmitterID)
	if err != nil {
		s.logger.Warn("failed to load submitter for resolution email",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}

	elapsed := "unknown"
	if ticket.ResolvedAt != nil {
		elapsed = formatDuration(ticket.ResolvedAt.Sub(ticket.CreatedAt))
	}
	msg := mailer.Message{
		To:      submitter.Email,
		Subject: fmt.Sprintf("Ticket %s resolved", ticket.Number),
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your ticket %q was resolved in %s.</p><p>If the issue persists you can reopen it from the portal.</p>",
			submitter.FirstName, ticket.Title, elapsed),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.metrics.RecordEmailFailure()
		s.logger.Warn("failed to send resolution email",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

func (s *NotificationService) logNotifyFailure(event events.Event, err error) {
	s.logger.Warn("notification handler failed to load ticket",
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)),
		zap.Error(err))
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Minute)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	switch {
	case hours >= 24:
		return fmt.Sprintf("%dd %dh", hours/24, hours%24)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
