package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/carelog/carelog/internal/domain"
	"github.com/carelog/carelog/internal/events"
	"github.com/carelog/carelog/internal/observability"
	"github.com/carelog/carelog/internal/service"
)

// SummaryWorker generates closing summaries off the request path. A
// closed-transition event enqueues the ticket on a buffered channel; a
// periodic sweep backfills tickets whose enqueue was dropped or whose
// generation failed.
type SummaryWorker struct {
	summaries     *service.SummaryService
	queue         chan string
	sweepInterval time.Duration
	sweepLimit    int
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewSummaryWorker constructs the worker.
func NewSummaryWorker(summaries *service.SummaryService, sweepInterval time.Duration, metrics *observability.Metrics, logger *zap.Logger) *SummaryWorker {
	return &SummaryWorker{
		summaries:     summaries,
		queue:         make(chan string, 64),
		sweepInterval: sweepInterval,
		sweepLimit:    50,
		metrics:       metrics,
		logger:        logger,
	}
}

// Register subscribes to status changes so closures enqueue summary
// generation.
func (w *SummaryWorker) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketStatusChanged, func(_ context.Context, event events.Event) error {
		payload, ok := event.Payload.(events.TicketStatusChangedPayload)
		if !ok || payload.NewStatus != domain.TicketStatusClosed {
			return nil
		}
		select {
		case w.queue <- event.TicketID:
		default:
			// Queue full; the sweep will pick this ticket up.
			w.logger.Warn("summary queue full, deferring to sweep",
				zap.String("ticket_id", event.TicketID))
		}
		return nil
	})
}

// Run processes the queue and the periodic sweep until ctx is done.
func (w *SummaryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	w.logger.Info("summary worker started",
		zap.Duration("sweep_interval", w.sweepInterval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("summary worker stopped")
			return
		case ticketID := <-w.queue:
			w.generate(ctx, ticketID)
		case <-ticker.C:
			w.summaries.Backfill(ctx, w.sweepLimit)
		}
	}
}

func (w *SummaryWorker) generate(ctx context.Context, ticketID string) {
	if _, err := w.summaries.GenerateClosingSummary(ctx, ticketID); err != nil {
		w.metrics.RecordSummary("failed")
		w.logger.Warn("closing summary generation failed",
			zap.String("ticket_id", ticketID), zap.Error(err))
		return
	}
	w.metrics.RecordSummary("generated")
	w.logger.Info("closing summary generated", zap.String("ticket_id", ticketID))
}
