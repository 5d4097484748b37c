package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"calsync/internal/domain"
)

type EventSource interface {
	ListByUserBetween(ctx context.Context, userID int64, start, end time.Time) ([]domain.Event, error)
}

type AggregateStore interface {
	DeleteRange(ctx context.Context, userID int64, start, end time.Time) error
	InsertBatch(ctx context.Context, aggregates []domain.DailyAggregate) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Recomputer rebuilds a user's daily aggregates over a date range. The
// whole range is deleted and rewritten in one transaction, so running
// the same window twice yields the same stored rows.
type Recomputer struct {
	events     EventSource
	aggregates AggregateStore
	txManager  TransactionManager
	logger     *slog.Logger
	now        func() time.Time
}

func NewRecomputer(events EventSource, aggregates AggregateStore, txManager TransactionManager, logger *slog.Logger) *Recomputer {
	return &Recomputer{
		events:     events,
		aggregates: aggregates,
		txManager:  txManager,
		logger:     logger.With("component", "metrics"),
		now:        time.Now,
	}
}

// Recompute rebuilds aggregates for every day from start through end
// inclusive. start and end are day-aligned instants.
func (r *Recomputer) Recompute(ctx context.Context, userID int64, start, end time.Time) error {
	if start.After(end) {
		return fmt.Errorf("invalid range: %s after %s", start, end)
	}

	events, err := r.events.ListByUserBetween(ctx, userID, start, end.AddDate(0, 0, 1))
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	computedAt := r.now()
	var rows []domain.DailyAggregate
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		rows = append(rows, computeDay(userID, day, events, computedAt))
	}

	err = r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := r.aggregates.DeleteRange(txCtx, userID, start, end); err != nil {
			return fmt.Errorf("delete aggregates: %w", err)
		}
		return r.aggregates.InsertBatch(txCtx, rows)
	})
	if err != nil {
		return fmt.Errorf("replace aggregates: %w", err)
	}

	r.logger.Info("aggregates recomputed",
		"user_id", userID,
		"start", start,
		"end", end,
		"days", len(rows),
		"events", len(events),
	)

	return nil
}
