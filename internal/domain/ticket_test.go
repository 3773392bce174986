package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := map[TicketStatus][]TicketStatus{
		TicketStatusOpen:       {TicketStatusInProgress, TicketStatusCancelled},
		TicketStatusInProgress: {TicketStatusResolved, TicketStatusCancelled},
		TicketStatusResolved:   {TicketStatusClosed, TicketStatusInProgress},
		TicketStatusClosed:     {},
		TicketStatusCancelled:  {},
	}

	// Every (current, next) pair succeeds iff it is an edge in the table.
	for _, current := range TicketStatuses {
		allowedSet := map[TicketStatus]bool{}
		for _, next := range allowed[current] {
			allowedSet[next] = true
		}
		for _, next := range TicketStatuses {
			got := CanTransition(current, next)
			assert.Equalf(t, allowedSet[next], got, "%s -> %s", current, next)
		}
	}
}

func TestAllowedNextStatuses(t *testing.T) {
	assert.ElementsMatch(t,
		[]TicketStatus{TicketStatusInProgress, TicketStatusCancelled},
		AllowedNextStatuses(TicketStatusOpen))
	assert.Empty(t, AllowedNextStatuses(TicketStatusClosed))
	assert.Empty(t, AllowedNextStatuses(TicketStatusCancelled))
	assert.True(t, TicketStatusClosed.IsTerminal())
	assert.False(t, TicketStatusResolved.IsTerminal())
}

func TestMilestonesFor(t *testing.T) {
	now := time.Now()
	created := now.Add(-time.Hour)

	t.Run("first response stamped on open to in_progress", func(t *testing.T) {
		ticket := &Ticket{Status: TicketStatusOpen, CreatedAt: created}
		patch := ticket.MilestonesFor(TicketStatusInProgress, now)
		assert.NotNil(t, patch.FirstResponseAt)
		assert.Equal(t, now, *patch.FirstResponseAt)
		assert.Nil(t, patch.ResolvedAt)
		assert.Nil(t, patch.ClosedAt)
	})

	t.Run("reopen stamps nothing", func(t *testing.T) {
		resolvedAt := now.Add(-10 * time.Minute)
		firstResponse := now.Add(-30 * time.Minute)
		ticket := &Ticket{
			Status:          TicketStatusResolved,
			FirstResponseAt: &firstResponse,
			ResolvedAt:      &resolvedAt,
			CreatedAt:       created,
		}
		patch := ticket.MilestonesFor(TicketStatusInProgress, now)
		assert.Nil(t, patch.FirstResponseAt)
		assert.Nil(t, patch.ResolvedAt)
		assert.Nil(t, patch.ClosedAt)
	})

	t.Run("resolved stamped once", func(t *testing.T) {
		ticket := &Ticket{Status: TicketStatusInProgress, CreatedAt: created}
		patch := ticket.MilestonesFor(TicketStatusResolved, now)
		assert.NotNil(t, patch.ResolvedAt)

		// A ticket that already carries resolved_at (re-resolve after a
		// reopen) keeps the original stamp.
		ticket.ResolvedAt = patch.ResolvedAt
		later := now.Add(time.Hour)
		patch = ticket.MilestonesFor(TicketStatusResolved, later)
		assert.Nil(t, patch.ResolvedAt)
	})

	t.Run("closed stamped", func(t *testing.T) {
		ticket := &Ticket{Status: TicketStatusResolved, CreatedAt: created}
		patch := ticket.MilestonesFor(TicketStatusClosed, now)
		assert.NotNil(t, patch.ClosedAt)
		assert.Equal(t, now, *patch.ClosedAt)
	})
}

func TestTimingFor(t *testing.T) {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	first := created.Add(15 * time.Minute)
	resolved := created.Add(2 * time.Hour)

	ticket := &Ticket{
		ID:              "t1",
		CreatedAt:       created,
		FirstResponseAt: &first,
		ResolvedAt:      &resolved,
	}
	timing := TimingFor(ticket)
	assert.Equal(t, 15*time.Minute, *timing.ResponseTime)
	assert.Equal(t, 2*time.Hour, *timing.ResolutionTime)
	assert.Nil(t, timing.TotalOpenTime)
}
