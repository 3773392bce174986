package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
	TicketStatusCancelled  TicketStatus = "cancelled"
)

// TicketStatuses lists every member of the status enum.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusCancelled,
}

// ValidTicketStatus reports whether s is a member of the status enum.
func ValidTicketStatus(s TicketStatus) bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// TicketPriorities lists the accepted priority values.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityNormal,
	TicketPriorityHigh,
	TicketPriorityUrgent,
}

// ValidTicketPriority reports whether p is an accepted priority value.
func ValidTicketPriority(p TicketPriority) bool {
	for _, candidate := range TicketPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// allowedTransitions is the status graph. Any requested edge outside
// this table is rejected. Terminal states have no outgoing edges; the
// resolved -> in_progress edge is the reopen path.
var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusInProgress, TicketStatusCancelled},
	TicketStatusInProgress: {TicketStatusResolved, TicketStatusCancelled},
	TicketStatusResolved:   {TicketStatusClosed, TicketStatusInProgress},
	TicketStatusClosed:     {},
	TicketStatusCancelled:  {},
}

// AllowedNextStatuses returns the legal destination states for the
// given current status. Empty for terminal states.
func AllowedNextStatuses(current TicketStatus) []TicketStatus {
	next := allowedTransitions[current]
	out := make([]TicketStatus, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether (current -> next) is an edge in the
// transition graph.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status has no outgoing edges.
func (s TicketStatus) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// Ticket is the aggregate for support requests. Milestone timestamps
// are stamped exactly once on first entry into the corresponding state
// and never cleared, including across a resolved -> in_progress reopen.
type Ticket struct {
	ID                 string
	Number             string
	OrganizationID     string
	LocationID         string
	HardwareID         *string
	SubmitterID        string
	AssigneeID         *string
	Title              string
	Description        string
	Status             TicketStatus
	Priority           TicketPriority
	SOPAcknowledged    bool
	SOPAcknowledgedAt  *time.Time
	FirstResponseAt    *time.Time
	ResolvedAt         *time.Time
	ClosedAt           *time.Time
	ClosedSummary      *string
	SatisfactionRating *int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// MilestonePatch carries the timestamps a single transition stamps.
// Nil fields are left untouched by the store.
type MilestonePatch struct {
	FirstResponseAt *time.Time
	ResolvedAt      *time.Time
	ClosedAt        *time.Time
}

// MilestonesFor computes the patch for an accepted transition at the
// given moment. Reopening a resolved ticket stamps nothing.
func (t *Ticket) MilestonesFor(next TicketStatus, now time.Time) MilestonePatch {
	var patch MilestonePatch
	switch next {
	case TicketStatusInProgress:
		if t.Status == TicketStatusOpen && t.FirstResponseAt == nil {
			patch.FirstResponseAt = &now
		}
	case TicketStatusResolved:
		if t.ResolvedAt == nil {
			patch.ResolvedAt = &now
		}
	case TicketStatusClosed:
		if t.ClosedAt == nil {
			patch.ClosedAt = &now
		}
	}
	return patch
}
