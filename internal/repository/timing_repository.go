package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelog/carelog/internal/domain"
)

// TimingRepository stores derived SLA durations, one row per ticket.
type TimingRepository interface {
	Upsert(ctx context.Context, timing *domain.TicketTiming) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.TicketTiming, error)
}

type timingRepository struct {
	pool *pgxpool.Pool
}

// NewTimingRepository builds repository.
func NewTimingRepository(pool *pgxpool.Pool) TimingRepository {
	return &timingRepository{pool: pool}
}

func (r *timingRepository) Upsert(ctx context.Context, timing *domain.TicketTiming) error {
	const query = `
        INSERT INTO ticket_timings (ticket_id, response_seconds, resolution_seconds, total_open_seconds, updated_at)
        VALUES ($1,$2,$3,$4,NOW())
        ON CONFLICT (ticket_id) DO UPDATE SET
            response_seconds=EXCLUDED.response_seconds,
            resolution_seconds=EXCLUDED.resolution_seconds,
            total_open_seconds=EXCLUDED.total_open_seconds,
            updated_at=NOW()`
	_, err := r.pool.Exec(ctx, query,
		timing.TicketID,
		durationSeconds(timing.ResponseTime),
		durationSeconds(timing.ResolutionTime),
		durationSeconds(timing.TotalOpenTime),
	)
	return err
}

func (r *timingRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.TicketTiming, error) {
	const query = `
        SELECT ticket_id, response_seconds, resolution_seconds, total_open_seconds, updated_at
        FROM ticket_timings WHERE ticket_id=$1`
	var (
		timing     domain.TicketTiming
		response   *int64
		resolution *int64
		totalOpen  *int64
	)
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&timing.TicketID,
		&response,
		&resolution,
		&totalOpen,
		&timing.UpdatedAt,
	); err != nil {
		return nil, err
	}
	timing.ResponseTime = secondsDuration(response)
	timing.ResolutionTime = secondsDuration(resolution)
	timing.TotalOpenTime = secondsDuration(totalOpen)
	return &timing, nil
}

func durationSeconds(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	seconds := int64(d.Seconds())
	return &seconds
}

func secondsDuration(seconds *int64) *time.Duration {
	if seconds == nil {
		return nil
	}
	d := time.Duration(*seconds) * time.Second
	return &d
}
