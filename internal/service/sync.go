package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"calsync/internal/classify"
	"calsync/internal/domain"
	"calsync/internal/ics"
)

// SyncService runs the calendar sync pipeline for a user's feed
// integrations: fetch, parse, classify, reconcile against the event
// store under replace semantics, then trigger aggregate recomputation
// and change notification.
type SyncService struct {
	fetcher    Fetcher
	events     EventStore
	feeds      FeedStore
	recomputer Recomputer
	txManager  TransactionManager
	publisher  Publisher
	decrypter  Decrypter
	logger     *slog.Logger
	now        func() time.Time
}

func NewSyncService(
	fetcher Fetcher,
	events EventStore,
	feeds FeedStore,
	recomputer Recomputer,
	txManager TransactionManager,
	publisher Publisher,
	decrypter Decrypter,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		fetcher:    fetcher,
		events:     events,
		feeds:      feeds,
		recomputer: recomputer,
		txManager:  txManager,
		publisher:  publisher,
		decrypter:  decrypter,
		logger:     logger.With("component", "sync"),
		now:        time.Now,
	}
}

// SyncAll syncs every active feed integration of one user, each feed
// independently: one broken feed never blocks the others. Failures are
// counted into the summary, not raised.
func (s *SyncService) SyncAll(ctx context.Context, userID int64) (*domain.SyncSummary, error) {
	startTime := s.now()

	integrations, err := s.feeds.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list active feeds: %w", err)
	}

	summary := &domain.SyncSummary{
		UserID: userID,
		Feeds:  len(integrations),
	}

	for i := range integrations {
		feed := &integrations[i]
		outcome, err := s.SyncFeed(ctx, feed)
		if err != nil {
			summary.Failed++
			s.logger.Error("feed sync failed",
				"user_id", userID,
				"feed_id", feed.ID,
				"error", err,
			)
			continue
		}

		if outcome.Changed {
			summary.Synced++
		} else {
			summary.Unchanged++
		}
	}

	summary.Duration = time.Since(startTime)

	s.logger.Info("sync completed",
		"user_id", userID,
		"feeds", summary.Feeds,
		"synced", summary.Synced,
		"unchanged", summary.Unchanged,
		"failed", summary.Failed,
		"duration", summary.Duration,
	)

	return summary, nil
}

// SyncDue runs SyncAll for every user that has at least one active feed
// integration. The scheduler calls this on each tick.
func (s *SyncService) SyncDue(ctx context.Context) error {
	userIDs, err := s.feeds.ListSyncUsers(ctx)
	if err != nil {
		return fmt.Errorf("list sync users: %w", err)
	}

	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := s.SyncAll(ctx, userID); err != nil {
			s.logger.Error("user sync failed", "user_id", userID, "error", err)
		}
	}

	return nil
}

// SyncFeed runs the full pipeline for one feed integration.
func (s *SyncService) SyncFeed(ctx context.Context, feed *domain.FeedIntegration) (*domain.SyncOutcome, error) {
	url, err := s.decrypter.Decrypt(feed.URLCipher)
	if err != nil {
		return nil, fmt.Errorf("decrypt feed url: %w", err)
	}

	raw, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	parsed := ics.Parse(raw)
	classified := s.classifyAll(feed, parsed)

	outcome, windowed, err := s.reconcile(ctx, feed, classified)
	if err != nil {
		return nil, err
	}

	if outcome.Changed {
		s.triggerRecompute(ctx, feed.UserID, windowed)
		s.publish(ctx, feed.UserID, outcome)
	}

	return outcome, nil
}

func (s *SyncService) classifyAll(feed *domain.FeedIntegration, parsed []domain.RawEvent) []domain.Event {
	events := make([]domain.Event, 0, len(parsed))
	for _, raw := range parsed {
		events = append(events, domain.Event{
			FeedIntegrationID: feed.ID,
			UserID:            feed.UserID,
			ExternalID:        raw.ExternalID,
			Title:             raw.Title,
			Classification:    classify.Classify(raw.Title, raw.Description),
			StartTime:         raw.StartTime,
			EndTime:           raw.EndTime,
			Description:       raw.Description,
			Location:          raw.Location,
			AttendeeCount:     raw.AttendeeCount,
		})
	}
	return events
}

// reconcile compares the windowed parse result against the stored set
// and, when membership differs, replaces the feed's stored events
// wholesale inside one transaction. Field-level changes under a stable
// id do not trip the comparison; the wholesale replace on any membership
// change is the accepted tradeoff for unstable provider UIDs.
func (s *SyncService) reconcile(ctx context.Context, feed *domain.FeedIntegration, classified []domain.Event) (*domain.SyncOutcome, []domain.Event, error) {
	windowStart, windowEnd := relevanceWindow(s.now())

	windowed := make([]domain.Event, 0, len(classified))
	for _, ev := range classified {
		if inWindow(ev, windowStart, windowEnd) {
			windowed = append(windowed, ev)
		}
	}

	stored, err := s.events.ListByFeed(ctx, feed.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list stored events: %w", err)
	}

	outcome := &domain.SyncOutcome{FeedIntegrationID: feed.ID}

	if changedSince(stored, windowed) {
		err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			if err := s.events.DeleteByFeed(txCtx, feed.ID); err != nil {
				return fmt.Errorf("delete events: %w", err)
			}
			if len(windowed) == 0 {
				return nil
			}
			if err := s.events.BulkInsert(txCtx, windowed); err != nil {
				return fmt.Errorf("insert events: %w", err)
			}
			return nil
		})
		if err != nil {
			// lastSync stays stale so the next cycle retries.
			return nil, nil, fmt.Errorf("replace events: %w", err)
		}

		outcome.Changed = true
		outcome.SyncedCount = len(windowed)

		s.logger.Info("feed reconciled",
			"feed_id", feed.ID,
			"stored", len(stored),
			"synced", outcome.SyncedCount,
		)
	} else {
		s.logger.Debug("feed unchanged", "feed_id", feed.ID, "events", len(stored))
	}

	if err := s.feeds.UpdateLastSync(ctx, feed.ID, s.now()); err != nil {
		return outcome, windowed, fmt.Errorf("update last sync: %w", err)
	}

	return outcome, windowed, nil
}

// changedSince detects membership change between the stored set and the
// windowed parse result by external id and count only.
func changedSince(stored, windowed []domain.Event) bool {
	if len(stored) != len(windowed) {
		return true
	}

	storedIDs := make(map[string]struct{}, len(stored))
	for _, ev := range stored {
		storedIDs[ev.ExternalID] = struct{}{}
	}

	for _, ev := range windowed {
		if _, ok := storedIDs[ev.ExternalID]; !ok {
			return true
		}
	}

	windowedIDs := make(map[string]struct{}, len(windowed))
	for _, ev := range windowed {
		windowedIDs[ev.ExternalID] = struct{}{}
	}

	for _, ev := range stored {
		if _, ok := windowedIDs[ev.ExternalID]; !ok {
			return true
		}
	}

	return false
}

// triggerRecompute refreshes daily aggregates over the affected date
// range. An empty windowed set is a no-op; a recompute failure is logged
// and leaves aggregates transiently stale, never rolling back the
// completed reconciliation.
func (s *SyncService) triggerRecompute(ctx context.Context, userID int64, windowed []domain.Event) {
	start, end, ok := recomputeWindow(windowed, s.now())
	if !ok {
		return
	}

	if err := s.recomputer.Recompute(ctx, userID, start, end); err != nil {
		s.logger.Error("aggregate recompute failed",
			"user_id", userID,
			"start", start,
			"end", end,
			"error", err,
		)
	}
}

func (s *SyncService) publish(ctx context.Context, userID int64, outcome *domain.SyncOutcome) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, userID, outcome); err != nil {
		s.logger.Error("publish change notification failed",
			"user_id", userID,
			"feed_id", outcome.FeedIntegrationID,
			"error", err,
		)
	}
}
