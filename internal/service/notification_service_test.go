package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carelog/carelog/internal/domain"
	"github.com/carelog/carelog/internal/events"
	"github.com/carelog/carelog/internal/mailer"
	"github.com/carelog/carelog/internal/observability"
)

type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []mailer.Message
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) to() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, msg := range m.sent {
		out = append(out, msg.To)
	}
	return out
}

type notificationFixture struct {
	service *NotificationService
	store   *fakeNotificationRepo
	tickets *fakeTicketRepo
	mail    *fakeMailer
	metrics *observability.Metrics
	ticket  *domain.Ticket
}

func newNotificationFixture(t *testing.T) *notificationFixture {
	t.Helper()

	submitter := &domain.User{ID: "user-member", FirstName: "Dana", Email: "dana@acme.test", Role: domain.RoleMember}
	assignee := &domain.User{ID: "user-staff", FirstName: "Sam", Email: "sam@carelog.test", Role: domain.RoleStaff}

	ticketRepo := newFakeTicketRepo()
	assigneeID := assignee.ID
	ticket := &domain.Ticket{
		Number:         "TKT-20250901-000001",
		OrganizationID: "org-1",
		LocationID:     "loc-1",
		SubmitterID:    submitter.ID,
		AssigneeID:     &assigneeID,
		Title:          "Scanner offline",
		Description:    "d",
		Status:         domain.TicketStatusInProgress,
	}
	require.NoError(t, ticketRepo.Create(context.Background(), ticket))

	store := &fakeNotificationRepo{}
	mail := &fakeMailer{}
	metrics := observability.NewMetrics()
	svc := NewNotificationService(store, ticketRepo, newFakeUserRepo(submitter, assignee), mail, metrics, zap.NewNop())

	return &notificationFixture{service: svc, store: store, tickets: ticketRepo, mail: mail, metrics: metrics, ticket: ticket}
}

func TestStatusChangeNotifiesEveryoneButTheActor(t *testing.T) {
	f := newNotificationFixture(t)

	err := f.service.handleStatusChanged(context.Background(), events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: f.ticket.ID,
		Actor:    domain.Actor{ID: "user-staff", Role: domain.RoleStaff},
		Payload: events.TicketStatusChangedPayload{
			OldStatus: domain.TicketStatusOpen,
			NewStatus: domain.TicketStatusInProgress,
		},
	})
	require.NoError(t, err)

	// The acting staff member is excluded; only the submitter is left.
	records, err := f.store.ListByUser(context.Background(), "user-member", false, 20, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.NotificationStatusChanged, records[0].Type)

	staffRecords, err := f.store.ListByUser(context.Background(), "user-staff", false, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, staffRecords)

	assert.Equal(t, []string{"dana@acme.test"}, f.mail.to())
}

func TestResolutionSendsDurationEmailToSubmitter(t *testing.T) {
	f := newNotificationFixture(t)

	resolvedAt := f.ticket.CreatedAt.Add(90 * time.Minute)
	f.tickets.mu.Lock()
	f.tickets.tickets[f.ticket.ID].Status = domain.TicketStatusResolved
	f.tickets.tickets[f.ticket.ID].ResolvedAt = &resolvedAt
	f.tickets.mu.Unlock()

	err := f.service.handleStatusChanged(context.Background(), events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: f.ticket.ID,
		Actor:    domain.Actor{ID: "user-staff", Role: domain.RoleStaff},
		Payload: events.TicketStatusChangedPayload{
			OldStatus: domain.TicketStatusInProgress,
			NewStatus: domain.TicketStatusResolved,
		},
	})
	require.NoError(t, err)

	// One fan-out mail plus the dedicated resolution mail.
	require.Len(t, f.mail.sent, 2)
	resolution := f.mail.sent[1]
	assert.Equal(t, "dana@acme.test", resolution.To)
	assert.Contains(t, resolution.Subject, "resolved")
	assert.Contains(t, resolution.HTML, "1h 30m")
}

func TestEmailFailuresAreCountedNotSurfaced(t *testing.T) {
	f := newNotificationFixture(t)
	f.mail.err = errors.New("provider down")

	err := f.service.handleStatusChanged(context.Background(), events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: f.ticket.ID,
		Actor:    domain.Actor{ID: "user-staff", Role: domain.RoleStaff},
		Payload: events.TicketStatusChangedPayload{
			OldStatus: domain.TicketStatusOpen,
			NewStatus: domain.TicketStatusInProgress,
		},
	})
	require.NoError(t, err)

	// The in-app record still lands and the failed delivery is counted.
	records, err := f.store.ListByUser(context.Background(), "user-member", false, 20, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), f.metrics.EmailFailures())
}

func TestInternalCommentsProduceNoNotifications(t *testing.T) {
	f := newNotificationFixture(t)

	err := f.service.handleCommentAdded(context.Background(), events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: f.ticket.ID,
		Actor:    domain.Actor{ID: "user-staff", Role: domain.RoleStaff},
		Payload: events.TicketCommentAddedPayload{
			CommentID:  "comment-1",
			AuthorID:   "user-staff",
			IsInternal: true,
		},
	})
	require.NoError(t, err)

	records, err := f.store.ListByUser(context.Background(), "user-member", false, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, f.mail.sent)
}
