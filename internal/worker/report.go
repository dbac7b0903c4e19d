package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"shophub/internal/model"
	"shophub/internal/notification"

	"github.com/rs/zerolog"
)

// MetricsSource reads the daily counters the report is built from.
type MetricsSource interface {
	MetricsForDate(ctx context.Context, date time.Time) ([]model.DailyMetric, error)
}

// DailyReporter emails a summary of the previous day's orders once per day.
type DailyReporter struct {
	metrics   MetricsSource
	sender    notification.Sender
	recipient string
	hour      int
	logger    zerolog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewDailyReporter constructs the reporter. The report runs at the given hour
// of day, server local time.
func NewDailyReporter(metrics MetricsSource, sender notification.Sender, recipient string, hour int, logger zerolog.Logger) *DailyReporter {
	return &DailyReporter{
		metrics:   metrics,
		sender:    sender,
		recipient: recipient,
		hour:      hour,
		logger:    logger.With().Str("worker", "daily-reporter").Logger(),
	}
}

// Start launches the background loop. A reporter with no recipient is inert.
func (d *DailyReporter) Start(ctx context.Context) {
	if d.recipient == "" {
		d.logger.Info().Msg("no report recipient configured, daily reporter disabled")
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.run(runCtx)
}

// Stop cancels the loop and waits for it to finish.
func (d *DailyReporter) Stop() {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *DailyReporter) run(ctx context.Context) {
	defer d.wg.Done()

	for {
		timer := time.NewTimer(time.Until(d.nextRun(time.Now())))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			d.report(ctx, time.Now().AddDate(0, 0, -1))
		}
	}
}

// nextRun returns the next occurrence of the configured hour after now.
func (d *DailyReporter) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), d.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// report sends the summary for the given date.
func (d *DailyReporter) report(ctx context.Context, date time.Time) {
	metrics, err := d.metrics.MetricsForDate(ctx, date)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to read daily metrics")
		return
	}

	subject := fmt.Sprintf("Daily Order Report - %s", date.Format("2006-01-02"))
	body := buildReportBody(date, metrics)

	if err := d.sender.Send(ctx, d.recipient, subject, body); err != nil {
		d.logger.Error().Err(err).Msg("failed to send daily report")
		return
	}

	d.logger.Info().
		Str("date", date.Format("2006-01-02")).
		Int("metrics", len(metrics)).
		Msg("daily report sent")
}

func buildReportBody(date time.Time, metrics []model.DailyMetric) string {
	var orders, revenue float64
	for _, m := range metrics {
		switch m.MetricType {
		case model.MetricOrdersCreated:
			orders = m.Value
		case model.MetricRevenue:
			revenue = m.Value
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Order summary for %s\n\n", date.Format("2006-01-02"))
	fmt.Fprintf(&b, "Orders created: %.0f\n", orders)
	fmt.Fprintf(&b, "Revenue: R$ %.2f\n", revenue)
	return b.String()
}
