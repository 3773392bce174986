package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/carelog/carelog/internal/domain"
	"github.com/carelog/carelog/internal/events"
	"github.com/carelog/carelog/internal/repository"
	apperrors "github.com/carelog/carelog/pkg/util"
)

// TicketService owns the ticket lifecycle: creation, the status state
// machine with its milestone stamps, assignment, comments and priority.
// Every mutation appends an audit event; accepted transitions emit
// dispatcher events for the best-effort side effects.
type TicketService struct {
	tickets     repository.TicketRepository
	eventsRepo  repository.TicketEventRepository
	comments    repository.TicketCommentRepository
	attachments repository.AttachmentRepository
	users       repository.UserRepository
	orgs        repository.OrganizationRepository
	locations   repository.LocationRepository
	hardware    repository.HardwareRepository
	timings     repository.TimingRepository
	numbers     NumberAllocator
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	EventRepo      repository.TicketEventRepository
	CommentRepo    repository.TicketCommentRepository
	AttachmentRepo repository.AttachmentRepository
	UserRepo       repository.UserRepository
	OrgRepo        repository.OrganizationRepository
	LocationRepo   repository.LocationRepository
	HardwareRepo   repository.HardwareRepository
	TimingRepo     repository.TimingRepository
	Numbers        NumberAllocator
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	OrganizationID  string
	LocationID      string
	HardwareID      *string
	Title           string
	Description     string
	Priority        domain.TicketPriority
	SOPAcknowledged bool
}

// CommentAttachmentInput defines attachment metadata.
type CommentAttachmentInput struct {
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
}

// TicketListFilter describes listing filters; member scope is applied
// on top by the service.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	AssigneeID *string
	SearchTerm *string
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		eventsRepo:  deps.EventRepo,
		comments:    deps.CommentRepo,
		attachments: deps.AttachmentRepo,
		users:       deps.UserRepo,
		orgs:        deps.OrgRepo,
		locations:   deps.LocationRepo,
		hardware:    deps.HardwareRepo,
		timings:     deps.TimingRepo,
		numbers:     deps.Numbers,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
	}
}

// CreateTicket creates a ticket in the open state against a resolved
// organization/location/hardware chain.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	org, err := s.orgs.GetByID(ctx, input.OrganizationID)
	if err != nil {
		return nil, notFoundOr(err, "organization")
	}
	if !org.IsActive {
		return nil, apperrors.NewValidationError("organization inactive", nil)
	}
	location, err := s.locations.GetByID(ctx, input.LocationID)
	if err != nil {
		return nil, notFoundOr(err, "location")
	}
	if location.OrganizationID != org.ID {
		return nil, apperrors.NewValidationError("location not part of organization", nil)
	}
	if input.HardwareID != nil {
		hw, err := s.hardware.GetByID(ctx, *input.HardwareID)
		if err != nil {
			return nil, notFoundOr(err, "hardware")
		}
		if hw.OrganizationID != org.ID || hw.LocationID != location.ID {
			return nil, apperrors.NewValidationError("hardware not registered at this location", nil)
		}
	}

	// Members may only raise tickets for their own organization.
	if !actor.IsStaff() {
		submitter, err := s.users.GetByID(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if submitter.OrganizationID == nil || *submitter.OrganizationID != org.ID {
			return nil, apperrors.NewForbidden("cannot create tickets for another organization")
		}
	}

	now := time.Now()
	number, err := s.numbers.Next(ctx, now)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Number:          number,
		OrganizationID:  org.ID,
		LocationID:      location.ID,
		HardwareID:      input.HardwareID,
		SubmitterID:     actor.ID,
		Title:           strings.TrimSpace(input.Title),
		Description:     strings.TrimSpace(input.Description),
		Status:          domain.TicketStatusOpen,
		Priority:        input.Priority,
		SOPAcknowledged: input.SOPAcknowledged,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityNormal
	}
	if !domain.ValidTicketPriority(ticket.Priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{
			"accepted": domain.TicketPriorities,
		})
	}
	if input.SOPAcknowledged {
		ticket.SOPAcknowledgedAt = &now
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.appendEvent(ctx, &domain.TicketEvent{
		TicketID:  ticket.ID,
		EventType: domain.EventTypeCreated,
		ActorID:   &actor.ID,
		NewValue:  stringPtr(string(ticket.Status)),
	}); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			OrganizationID: ticket.OrganizationID,
			LocationID:     ticket.LocationID,
			Priority:       ticket.Priority,
			Title:          ticket.Title,
		},
	})
	return ticket, nil
}

// ChangeStatus moves a ticket along the transition graph. It stamps
// milestone timestamps exactly once, appends the audit entry, and
// emits the status-changed event for notification/summary side
// effects. A concurrent transition on the same ticket makes the loser
// fail with CONFLICT rather than silently overwriting.
func (s *TicketService) ChangeStatus(ctx context.Context, actor domain.Actor, ticketID string, requested domain.TicketStatus, comment string) (*domain.Ticket, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("platform staff required")
	}
	if !domain.ValidTicketStatus(requested) {
		return nil, apperrors.NewInvalidStatus(string(requested), statusStrings(domain.TicketStatuses))
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}
	if !domain.CanTransition(ticket.Status, requested) {
		return nil, apperrors.NewInvalidTransition(
			string(ticket.Status),
			string(requested),
			statusStrings(domain.AllowedNextStatuses(ticket.Status)))
	}

	now := time.Now()
	patch := ticket.MilestonesFor(requested, now)
	if err := s.tickets.UpdateStatus(ctx, ticket.ID, ticket.Status, requested, patch); err != nil {
		if errors.Is(err, repository.ErrStaleTicket) {
			return nil, apperrors.NewConflict("ticket was modified concurrently", map[string]any{
				"ticket_id": ticket.ID,
			})
		}
		return nil, err
	}

	oldStatus := ticket.Status
	ticket.Status = requested
	if patch.FirstResponseAt != nil {
		ticket.FirstResponseAt = patch.FirstResponseAt
	}
	if patch.ResolvedAt != nil {
		ticket.ResolvedAt = patch.ResolvedAt
	}
	if patch.ClosedAt != nil {
		ticket.ClosedAt = patch.ClosedAt
	}

	event := &domain.TicketEvent{
		TicketID:  ticket.ID,
		EventType: domain.EventTypeStatusChanged,
		ActorID:   &actor.ID,
		OldValue:  stringPtr(string(oldStatus)),
		NewValue:  stringPtr(string(requested)),
	}
	if strings.TrimSpace(comment) != "" {
		event.Comment = stringPtr(strings.TrimSpace(comment))
	}
	if err := s.appendEvent(ctx, event); err != nil {
		return nil, err
	}

	s.updateTimings(ctx, ticket)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: requested,
			Comment:   comment,
		},
	})
	return ticket, nil
}

// Assign sets the assignee; the assignee must be platform staff.
func (s *TicketService) Assign(ctx context.Context, actor domain.Actor, ticketID, assigneeID string) (*domain.Ticket, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("platform staff required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		return nil, notFoundOr(err, "assignee")
	}
	if !assignee.IsPlatformStaff() {
		return nil, apperrors.NewValidationError("assignee must be platform staff", nil)
	}

	var oldValue *string
	if ticket.AssigneeID != nil {
		oldValue = stringPtr(*ticket.AssigneeID)
	}
	if err := s.tickets.UpdateAssignee(ctx, ticket.ID, &assignee.ID); err != nil {
		return nil, err
	}
	ticket.AssigneeID = &assignee.ID

	if err := s.appendEvent(ctx, &domain.TicketEvent{
		TicketID:  ticket.ID,
		EventType: domain.EventTypeAssigned,
		ActorID:   &actor.ID,
		OldValue:  oldValue,
		NewValue:  stringPtr(assignee.ID),
	}); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  events.TicketAssignedPayload{AssigneeID: assignee.ID},
	})
	return ticket, nil
}

// UpdatePriority changes ticket priority by staff.
func (s *TicketService) UpdatePriority(ctx context.Context, actor domain.Actor, ticketID string, priority domain.TicketPriority) (*domain.Ticket, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("platform staff required")
	}
	if !domain.ValidTicketPriority(priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{
			"accepted": domain.TicketPriorities,
		})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}

	oldPriority := ticket.Priority
	if err := s.tickets.UpdatePriority(ctx, ticket.ID, priority); err != nil {
		return nil, err
	}
	ticket.Priority = priority

	if err := s.appendEvent(ctx, &domain.TicketEvent{
		TicketID:  ticket.ID,
		EventType: domain.EventTypePriorityChanged,
		ActorID:   &actor.ID,
		OldValue:  stringPtr(string(oldPriority)),
		NewValue:  stringPtr(string(priority)),
	}); err != nil {
		return nil, err
	}
	return ticket, nil
}

// AddComment appends a comment to a ticket thread. Members may only
// comment on tickets they can see and never post internal notes.
func (s *TicketService) AddComment(ctx context.Context, actor domain.Actor, ticketID, body string, isInternal bool, attachments []CommentAttachmentInput) (*domain.TicketComment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}
	if !actor.IsStaff() {
		if isInternal {
			return nil, apperrors.NewForbidden("internal notes are staff-only")
		}
		if err := s.memberCanAccess(ctx, actor.ID, ticket); err != nil {
			return nil, err
		}
	}

	comment := &domain.TicketComment{
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		Body:       strings.TrimSpace(body),
		IsInternal: isInternal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	if err := s.appendEvent(ctx, &domain.TicketEvent{
		TicketID:  ticket.ID,
		EventType: domain.EventTypeCommentAdded,
		ActorID:   &actor.ID,
		Metadata:  map[string]any{"comment_id": comment.ID, "is_internal": isInternal},
	}); err != nil {
		return nil, err
	}

	for _, att := range attachments {
		record := &domain.AttachmentReference{
			CommentID:  comment.ID,
			StorageKey: att.StorageKey,
			FileName:   att.FileName,
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
		}
		if err := s.attachments.Create(ctx, record); err != nil {
			return nil, err
		}
		comment.Attachments = append(comment.Attachments, *record)
		if err := s.appendEvent(ctx, &domain.TicketEvent{
			TicketID:  ticket.ID,
			EventType: domain.EventTypeAttachmentAdded,
			ActorID:   &actor.ID,
			NewValue:  stringPtr(record.FileName),
			Metadata:  map[string]any{"attachment_id": record.ID},
		}); err != nil {
			return nil, err
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCommentAddedPayload{
			CommentID:   comment.ID,
			AuthorID:    actor.ID,
			IsInternal:  isInternal,
			BodyPreview: stringPreview(comment.Body, 120),
		},
	})
	return comment, nil
}

// RateSatisfaction records the submitter's rating on a resolved or
// closed ticket.
func (s *TicketService) RateSatisfaction(ctx context.Context, actor domain.Actor, ticketID string, rating int) (*domain.Ticket, error) {
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}
	if ticket.SubmitterID != actor.ID {
		return nil, apperrors.NewForbidden("only the submitter can rate a ticket")
	}
	if ticket.Status != domain.TicketStatusResolved && ticket.Status != domain.TicketStatusClosed {
		return nil, apperrors.NewValidationError("ticket must be resolved or closed to rate", nil)
	}

	var oldValue *string
	if ticket.SatisfactionRating != nil {
		oldValue = stringPtr(strconv.Itoa(*ticket.SatisfactionRating))
	}
	if err := s.tickets.SetSatisfactionRating(ctx, ticket.ID, rating); err != nil {
		return nil, err
	}
	ticket.SatisfactionRating = &rating

	if err := s.appendEvent(ctx, &domain.TicketEvent{
		TicketID:  ticket.ID,
		EventType: domain.EventTypeUpdated,
		ActorID:   &actor.ID,
		OldValue:  oldValue,
		NewValue:  stringPtr(strconv.Itoa(rating)),
		Metadata:  map[string]any{"field": "satisfaction_rating"},
	}); err != nil {
		return nil, err
	}
	return ticket, nil
}

// GetTicket fetches a ticket with its thread, enforcing organization
// isolation for members and hiding internal comments from them.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, []domain.TicketComment, []domain.TicketEvent, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, nil, notFoundOr(err, "ticket")
	}

	var comments []domain.TicketComment
	if actor.IsStaff() {
		comments, err = s.comments.ListByTicket(ctx, ticket.ID)
	} else {
		if err := s.memberCanAccess(ctx, actor.ID, ticket); err != nil {
			return nil, nil, nil, err
		}
		comments, err = s.comments.ListPublicByTicket(ctx, ticket.ID)
	}
	if err != nil {
		return nil, nil, nil, err
	}
	for i := range comments {
		attachments, err := s.attachments.ListByComment(ctx, comments[i].ID)
		if err != nil {
			return nil, nil, nil, err
		}
		comments[i].Attachments = attachments
	}

	history, err := s.eventsRepo.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	return ticket, comments, history, nil
}

// ListTickets returns tickets visible to the actor.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		AssigneeID: filter.AssigneeID,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if !actor.IsStaff() {
		user, err := s.users.GetByID(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if user.OrganizationID == nil {
			return []domain.Ticket{}, nil
		}
		repoFilter.OrganizationID = user.OrganizationID
	}
	return s.tickets.ListWithFilter(ctx, repoFilter)
}

// Timing returns the derived SLA durations for a ticket.
func (s *TicketService) Timing(ctx context.Context, actor domain.Actor, ticketID string) (*domain.TicketTiming, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}
	if !actor.IsStaff() {
		if err := s.memberCanAccess(ctx, actor.ID, ticket); err != nil {
			return nil, err
		}
	}
	timing, err := s.timings.GetByTicket(ctx, ticket.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			t := domain.TimingFor(ticket)
			return &t, nil
		}
		return nil, err
	}
	return timing, nil
}

func (s *TicketService) memberCanAccess(ctx context.Context, userID string, ticket *domain.Ticket) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.OrganizationID == nil || *user.OrganizationID != ticket.OrganizationID {
		return apperrors.NewForbidden("access denied")
	}
	return nil
}

func (s *TicketService) appendEvent(ctx context.Context, event *domain.TicketEvent) error {
	return s.eventsRepo.Create(ctx, event)
}

// updateTimings refreshes the analytics row. Analytics failures never
// fail the transition.
func (s *TicketService) updateTimings(ctx context.Context, ticket *domain.Ticket) {
	if s.timings == nil {
		return
	}
	timing := domain.TimingFor(ticket)
	if err := s.timings.Upsert(ctx, &timing); err != nil {
		s.logger.Warn("failed to update ticket timing",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func notFoundOr(err error, resource string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, nil)
	}
	return err
}

func statusStrings(statuses []domain.TicketStatus) []string {
	out := make([]string, len(statuses))
	for i, status := range statuses {
		out[i] = string(status)
	}
	return out
}

func stringPtr(s string) *string {
	return &s
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
