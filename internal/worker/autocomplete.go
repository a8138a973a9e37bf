package worker

import (
	"context"
	"fmt"
	"log/slog"
	"storefront-payments/internal/repo"
	"time"

	"github.com/robfig/cron/v3"
)

const defaultBatchSize = 100

// AutoCompleteWorker marks in_transit orders complete once they have sat
// untouched for the configured period.
type AutoCompleteWorker struct {
	orderRepo repo.OrderRepo
	after     time.Duration
	schedule  string
	batchSize int
	log       *slog.Logger
	now       func() time.Time
}

func NewAutoCompleteWorker(
	orderRepo repo.OrderRepo,
	after time.Duration,
	schedule string,
	logger *slog.Logger,
) *AutoCompleteWorker {
	return &AutoCompleteWorker{
		orderRepo: orderRepo,
		after:     after,
		schedule:  schedule,
		batchSize: defaultBatchSize,
		log:       logger,
		now:       time.Now,
	}
}

// Run blocks until ctx is cancelled, sweeping on the cron schedule.
// Overlapping runs are skipped.
func (w *AutoCompleteWorker) Run(ctx context.Context) error {
	logger := cronLogger{w.log}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	_, err := c.AddFunc(w.schedule, func() {
		if _, err := w.RunOnce(ctx); err != nil {
			w.log.ErrorContext(ctx, "auto-complete sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule auto-complete %q: %w", w.schedule, err)
	}

	w.log.InfoContext(ctx, "auto-complete worker started", "schedule", w.schedule, "after", w.after.String())
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	w.log.Info("auto-complete worker stopped")
	return nil
}

// RunOnce completes one batch of stale orders and returns how many changed.
func (w *AutoCompleteWorker) RunOnce(ctx context.Context) (int, error) {
	stale, err := w.orderRepo.FindStaleInTransit(ctx, w.after, w.batchSize)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	w.log.InfoContext(ctx, "completing stale orders", "count", len(stale))

	completed := 0
	for _, order := range stale {
		ok, err := w.orderRepo.CompleteOrder(ctx, nil, order.ID, w.now())
		if err != nil {
			w.log.ErrorContext(ctx, "failed to complete order", "order_id", order.ID, "error", err)
			continue // retried on the next sweep
		}
		if !ok {
			// status moved since the scan
			continue
		}
		completed++
		w.log.InfoContext(ctx, "order auto-completed", "order_id", order.ID, "order_number", order.OrderNumber)
	}
	return completed, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
