package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carelog/carelog/internal/domain"
	"github.com/carelog/carelog/internal/repository"
)

// In-memory repository fakes backing the service tests. They mimic the
// store contracts the services rely on, including the observed-status
// guard on UpdateStatus and the write-once closed_summary column.

type fakeTicketRepo struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", r.seq)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.Number == number {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) UpdateStatus(_ context.Context, id string, observed, next domain.TicketStatus, patch domain.MilestonePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok || ticket.Status != observed {
		return repository.ErrStaleTicket
	}
	ticket.Status = next
	if patch.FirstResponseAt != nil && ticket.FirstResponseAt == nil {
		ticket.FirstResponseAt = patch.FirstResponseAt
	}
	if patch.ResolvedAt != nil && ticket.ResolvedAt == nil {
		ticket.ResolvedAt = patch.ResolvedAt
	}
	if patch.ClosedAt != nil && ticket.ClosedAt == nil {
		ticket.ClosedAt = patch.ClosedAt
	}
	ticket.UpdatedAt = time.Now()
	return nil
}

func (r *fakeTicketRepo) UpdateAssignee(_ context.Context, id string, assigneeID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.AssigneeID = assigneeID
	return nil
}

func (r *fakeTicketRepo) UpdatePriority(_ context.Context, id string, priority domain.TicketPriority) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.Priority = priority
	return nil
}

func (r *fakeTicketRepo) SetClosedSummary(_ context.Context, id, summary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if ticket.ClosedSummary != nil {
		return nil
	}
	ticket.ClosedSummary = &summary
	return nil
}

func (r *fakeTicketRepo) SetSatisfactionRating(_ context.Context, id string, rating int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.SatisfactionRating = &rating
	return nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.OrganizationID != nil && ticket.OrganizationID != *filter.OrganizationID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		out = append(out, *ticket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTicketRepo) ListClosedWithoutSummary(_ context.Context, limit int) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.Status == domain.TicketStatusClosed && ticket.ClosedSummary == nil {
			out = append(out, *ticket)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type fakeEventRepo struct {
	mu     sync.Mutex
	seq    int
	events []domain.TicketEvent
	failed bool
}

func (r *fakeEventRepo) Create(_ context.Context, event *domain.TicketEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed {
		return fmt.Errorf("event store unavailable")
	}
	r.seq++
	event.ID = fmt.Sprintf("event-%d", r.seq)
	event.CreatedAt = time.Now()
	r.events = append(r.events, *event)
	return nil
}

func (r *fakeEventRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketEvent
	for _, event := range r.events {
		if event.TicketID == ticketID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) ListStatusChanges(_ context.Context, ticketID string) ([]domain.TicketEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketEvent
	for _, event := range r.events {
		if event.TicketID == ticketID && event.EventType == domain.EventTypeStatusChanged {
			out = append(out, event)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) byType(eventType domain.TicketEventType) []domain.TicketEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketEvent
	for _, event := range r.events {
		if event.EventType == eventType {
			out = append(out, event)
		}
	}
	return out
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	seq      int
	comments []domain.TicketComment
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.TicketComment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	comment.ID = fmt.Sprintf("comment-%d", r.seq)
	comment.CreatedAt = time.Now()
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketComment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketComment
	for _, comment := range r.comments {
		if comment.TicketID == ticketID {
			out = append(out, comment)
		}
	}
	return out, nil
}

func (r *fakeCommentRepo) ListPublicByTicket(_ context.Context, ticketID string) ([]domain.TicketComment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketComment
	for _, comment := range r.comments {
		if comment.TicketID == ticketID && !comment.IsInternal {
			out = append(out, comment)
		}
	}
	return out, nil
}

type fakeAttachmentRepo struct {
	mu          sync.Mutex
	seq         int
	attachments []domain.AttachmentReference
}

func (r *fakeAttachmentRepo) Create(_ context.Context, attachment *domain.AttachmentReference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	attachment.ID = fmt.Sprintf("attachment-%d", r.seq)
	attachment.CreatedAt = time.Now()
	r.attachments = append(r.attachments, *attachment)
	return nil
}

func (r *fakeAttachmentRepo) ListByComment(_ context.Context, commentID string) ([]domain.AttachmentReference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AttachmentReference
	for _, attachment := range r.attachments {
		if attachment.CommentID == commentID {
			out = append(out, attachment)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", len(r.users)+1)
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeOrgRepo struct {
	orgs map[string]*domain.Organization
}

func newFakeOrgRepo(orgs ...*domain.Organization) *fakeOrgRepo {
	repo := &fakeOrgRepo{orgs: make(map[string]*domain.Organization)}
	for _, org := range orgs {
		repo.orgs[org.ID] = org
	}
	return repo
}

func (r *fakeOrgRepo) Create(_ context.Context, org *domain.Organization) error {
	r.orgs[org.ID] = org
	return nil
}

func (r *fakeOrgRepo) GetByID(_ context.Context, id string) (*domain.Organization, error) {
	org, ok := r.orgs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return org, nil
}

func (r *fakeOrgRepo) List(_ context.Context) ([]domain.Organization, error) {
	out := make([]domain.Organization, 0, len(r.orgs))
	for _, org := range r.orgs {
		out = append(out, *org)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeLocationRepo struct {
	locations map[string]*domain.Location
}

func newFakeLocationRepo(locations ...*domain.Location) *fakeLocationRepo {
	repo := &fakeLocationRepo{locations: make(map[string]*domain.Location)}
	for _, location := range locations {
		repo.locations[location.ID] = location
	}
	return repo
}

func (r *fakeLocationRepo) Create(_ context.Context, location *domain.Location) error {
	r.locations[location.ID] = location
	return nil
}

func (r *fakeLocationRepo) GetByID(_ context.Context, id string) (*domain.Location, error) {
	location, ok := r.locations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return location, nil
}

func (r *fakeLocationRepo) ListByOrganization(_ context.Context, orgID string) ([]domain.Location, error) {
	var out []domain.Location
	for _, location := range r.locations {
		if location.OrganizationID == orgID {
			out = append(out, *location)
		}
	}
	return out, nil
}

func (r *fakeLocationRepo) ListAll(_ context.Context) ([]domain.Location, error) {
	out := make([]domain.Location, 0, len(r.locations))
	for _, location := range r.locations {
		out = append(out, *location)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeHardwareRepo struct {
	mu       sync.Mutex
	seq      int
	hardware map[string]*domain.Hardware
	types    []domain.HardwareType
	batchErr error
}

func newFakeHardwareRepo(types ...domain.HardwareType) *fakeHardwareRepo {
	return &fakeHardwareRepo{hardware: make(map[string]*domain.Hardware), types: types}
}

func (r *fakeHardwareRepo) Create(_ context.Context, hw *domain.Hardware) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	hw.ID = fmt.Sprintf("hw-%d", r.seq)
	r.hardware[hw.ID] = hw
	return nil
}

func (r *fakeHardwareRepo) CreateBatch(_ context.Context, hardware []domain.Hardware) ([]domain.Hardware, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.batchErr != nil {
		return nil, r.batchErr
	}
	out := make([]domain.Hardware, 0, len(hardware))
	for _, hw := range hardware {
		r.seq++
		hw.ID = fmt.Sprintf("hw-%d", r.seq)
		copied := hw
		r.hardware[hw.ID] = &copied
		out = append(out, hw)
	}
	return out, nil
}

func (r *fakeHardwareRepo) GetByID(_ context.Context, id string) (*domain.Hardware, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hw, ok := r.hardware[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return hw, nil
}

func (r *fakeHardwareRepo) ListByOrganization(_ context.Context, orgID string) ([]domain.Hardware, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Hardware
	for _, hw := range r.hardware {
		if hw.OrganizationID == orgID {
			out = append(out, *hw)
		}
	}
	return out, nil
}

func (r *fakeHardwareRepo) ListTypes(_ context.Context) ([]domain.HardwareType, error) {
	return r.types, nil
}

func (r *fakeHardwareRepo) CreateType(_ context.Context, hwType *domain.HardwareType) error {
	r.types = append(r.types, *hwType)
	return nil
}

type fakeTimingRepo struct {
	mu      sync.Mutex
	timings map[string]domain.TicketTiming
}

func newFakeTimingRepo() *fakeTimingRepo {
	return &fakeTimingRepo{timings: make(map[string]domain.TicketTiming)}
}

func (r *fakeTimingRepo) Upsert(_ context.Context, timing *domain.TicketTiming) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timings[timing.TicketID] = *timing
	return nil
}

func (r *fakeTimingRepo) GetByTicket(_ context.Context, ticketID string) (*domain.TicketTiming, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	timing, ok := r.timings[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &timing, nil
}

type fakeNotificationRepo struct {
	mu      sync.Mutex
	seq     int
	records []domain.Notification
}

func (r *fakeNotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	notification.ID = fmt.Sprintf("notification-%d", r.seq)
	notification.CreatedAt = time.Now()
	r.records = append(r.records, *notification)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, _, _ int) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, record := range r.records {
		if record.UserID != userID {
			continue
		}
		if unreadOnly && record.IsRead {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, userID, notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].ID == notificationID && r.records[i].UserID == userID {
			r.records[i].IsRead = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].UserID == userID {
			r.records[i].IsRead = true
		}
	}
	return nil
}

type fakeNumberAllocator struct {
	seq int
}

func (a *fakeNumberAllocator) Next(_ context.Context, now time.Time) (string, error) {
	a.seq++
	return fmt.Sprintf("TKT-%s-%06d", now.Format("20060102"), a.seq), nil
}

// fakeSummarizer records prompts and serves canned responses.
type fakeSummarizer struct {
	mu       sync.Mutex
	calls    int
	contents []string
	response string
	err      error
}

func (s *fakeSummarizer) Summarize(_ context.Context, _, content string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.contents = append(s.contents, content)
	if s.err != nil {
		return "", s.err
	}
	if s.response == "" {
		return "Issue reported, fixed, and confirmed by the user.", nil
	}
	return s.response, nil
}
