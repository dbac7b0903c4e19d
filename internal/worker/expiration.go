// Package worker hosts the background loops that run alongside the API:
// expiring unpaid orders and sending the daily operations report.
package worker

import (
	"context"
	"sync"
	"time"

	"shophub/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ExpirationFacade exposes the subset of the order service the reaper needs.
type ExpirationFacade interface {
	ExpiredPendingOrders(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error)
	ExpireOrder(ctx context.Context, orderID uuid.UUID) error
}

// ExpirationReaper periodically cancels orders that stayed unpaid past the
// payment window, returning their reserved stock.
type ExpirationReaper struct {
	facade    ExpirationFacade
	interval  time.Duration
	maxAge    time.Duration
	batchSize int
	logger    zerolog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewExpirationReaper constructs the reaper.
func NewExpirationReaper(facade ExpirationFacade, interval, maxAge time.Duration, batchSize int, logger zerolog.Logger) *ExpirationReaper {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ExpirationReaper{
		facade:    facade,
		interval:  interval,
		maxAge:    maxAge,
		batchSize: batchSize,
		logger:    logger.With().Str("worker", "expiration-reaper").Logger(),
	}
}

// Start launches the background loop.
func (r *ExpirationReaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.run(runCtx)
}

// Stop cancels the loop and waits for it to finish.
func (r *ExpirationReaper) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *ExpirationReaper) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep cancels one batch of expired orders. Failures on individual orders
// are logged and skipped; the next sweep retries them.
func (r *ExpirationReaper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.maxAge)

	orders, err := r.facade.ExpiredPendingOrders(ctx, cutoff, r.batchSize)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to list expired orders")
		return
	}
	if len(orders) == 0 {
		return
	}

	expired := 0
	for _, order := range orders {
		if ctx.Err() != nil {
			return
		}
		if err := r.facade.ExpireOrder(ctx, order.ID); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", order.ID.String()).
				Msg("failed to expire order")
			continue
		}
		expired++
	}

	r.logger.Info().
		Int("found", len(orders)).
		Int("expired", expired).
		Msg("expiration sweep completed")
}
