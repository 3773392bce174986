package domain

import "time"

// TicketTiming holds derived SLA durations, one row per ticket.
// Durations are recomputed when the corresponding milestone is stamped;
// a nil duration means the milestone has not been reached.
type TicketTiming struct {
	TicketID       string
	ResponseTime   *time.Duration
	ResolutionTime *time.Duration
	TotalOpenTime  *time.Duration
	UpdatedAt      time.Time
}

// TimingFor derives the analytics row from a ticket's milestones.
func TimingFor(t *Ticket) TicketTiming {
	timing := TicketTiming{TicketID: t.ID}
	if t.FirstResponseAt != nil {
		d := t.FirstResponseAt.Sub(t.CreatedAt)
		timing.ResponseTime = &d
	}
	if t.ResolvedAt != nil {
		d := t.ResolvedAt.Sub(t.CreatedAt)
		timing.ResolutionTime = &d
	}
	if t.ClosedAt != nil {
		d := t.ClosedAt.Sub(t.CreatedAt)
		timing.TotalOpenTime = &d
	}
	return timing
}
