package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/carelog/carelog/internal/domain"
	"github.com/carelog/carelog/internal/repository"
	"github.com/carelog/carelog/internal/summarizer"
	apperrors "github.com/carelog/carelog/pkg/util"
)

// summaryPersona is the fixed system instruction for closing summaries.
const summaryPersona = "You are an IT support assistant. Write a neutral closing summary " +
	"of the resolved support ticket in 2-4 sentences: what was reported, what was done, " +
	"and the outcome. Do not invent details that are not in the transcript."

// SummaryService generates AI closing summaries for closed tickets.
// Generation is asynchronous and best-effort; a ticket closes fine
// without a summary and the backfill sweep picks up stragglers.
type SummaryService struct {
	tickets  repository.TicketRepository
	comments repository.TicketCommentRepository
	events   repository.TicketEventRepository
	users    repository.UserRepository
	provider summarizer.Summarizer
	logger   *zap.Logger
}

// NewSummaryService constructs the service.
func NewSummaryService(
	tickets repository.TicketRepository,
	comments repository.TicketCommentRepository,
	events repository.TicketEventRepository,
	users repository.UserRepository,
	provider summarizer.Summarizer,
	logger *zap.Logger,
) *SummaryService {
	return &SummaryService{
		tickets:  tickets,
		comments: comments,
		events:   events,
		users:    users,
		provider: provider,
		logger:   logger,
	}
}

// GenerateClosingSummary produces and stores the closing summary for a
// closed ticket. If a summary already exists it is returned unchanged
// without calling the provider. Only closed tickets are summarized.
func (s *SummaryService) GenerateClosingSummary(ctx context.Context, ticketID string) (string, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NewNotFound("ticket", nil)
		}
		return "", err
	}
	if ticket.ClosedSummary != nil && *ticket.ClosedSummary != "" {
		return *ticket.ClosedSummary, nil
	}
	if ticket.Status != domain.TicketStatusClosed {
		return "", apperrors.NewValidationError("only closed tickets are summarized", map[string]any{
			"status": ticket.Status,
		})
	}

	content, err := s.buildPrompt(ctx, ticket)
	if err != nil {
		return "", err
	}

	summary, err := s.provider.Summarize(ctx, summaryPersona, content)
	if err != nil {
		return "", fmt.Errorf("generate summary for ticket %s: %w", ticket.Number, err)
	}

	// The store keeps the first writer's summary; a concurrent generation
	// racing us turns this into a no-op.
	if err := s.tickets.SetClosedSummary(ctx, ticket.ID, summary); err != nil {
		return "", err
	}
	return summary, nil
}

// Backfill summarizes closed tickets that still lack a summary, up to
// limit tickets per sweep. Per-ticket failures are logged and skipped.
func (s *SummaryService) Backfill(ctx context.Context, limit int) {
	tickets, err := s.tickets.ListClosedWithoutSummary(ctx, limit)
	if err != nil {
		s.logger.Warn("summary backfill query failed", zap.Error(err))
		return
	}
	for _, ticket := range tickets {
		if _, err := s.GenerateClosingSummary(ctx, ticket.ID); err != nil {
			s.logger.Warn("summary backfill skipped ticket",
				zap.String("ticket_id", ticket.ID),
				zap.String("number", ticket.Number),
				zap.Error(err))
			if errors.Is(err, summarizer.ErrExhausted) || ctx.Err() != nil {
				return
			}
			continue
		}
		s.logger.Info("backfilled closing summary",
			zap.String("ticket_id", ticket.ID),
			zap.String("number", ticket.Number))
	}
}

// buildPrompt assembles the transcript the model sees: title,
// description, the public comment thread in chronological order with
// author attribution, and the status history. Internal comments never
// reach the provider.
func (s *SummaryService) buildPrompt(ctx context.Context, ticket *domain.Ticket) (string, error) {
	comments, err := s.comments.ListPublicByTicket(ctx, ticket.ID)
	if err != nil {
		return "", err
	}
	history, err := s.events.ListStatusChanges(ctx, ticket.ID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Ticket: %s\n", ticket.Title)
	fmt.Fprintf(&b, "Description: %s\n\n", ticket.Description)

	b.WriteString("Conversation:\n")
	if len(comments) == 0 {
		b.WriteString("(no public comments)\n")
	}
	for _, comment := range comments {
		fmt.Fprintf(&b, "User %s: %s\n", s.authorName(ctx, comment.AuthorID), comment.Body)
	}

	b.WriteString("\nStatus history:\n")
	for _, event := range history {
		oldValue := derefString(event.OldValue)
		newValue := derefString(event.NewValue)
		fmt.Fprintf(&b, "%s -> %s\n", oldValue, newValue)
	}
	return b.String(), nil
}

func (s *SummaryService) authorName(ctx context.Context, authorID string) string {
	user, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		return "unknown"
	}
	return user.FullName()
}
