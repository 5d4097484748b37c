package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"calsync/internal/domain"
)

// FeedStore reads feed integrations and writes back only last_sync_at.
type FeedStore struct {
	db *sqlx.DB
}

func NewFeedStore(db *sqlx.DB) *FeedStore {
	return &FeedStore{db: db}
}

func (s *FeedStore) ListActiveByUser(ctx context.Context, userID int64) ([]domain.FeedIntegration, error) {
	query := `
		SELECT id, user_id, name, url_cipher, active, last_sync_at, created_at, updated_at
		FROM feed_integrations
		WHERE user_id = $1 AND active
		ORDER BY id`

	var feeds []domain.FeedIntegration
	if err := s.db.SelectContext(ctx, &feeds, query, userID); err != nil {
		return nil, err
	}
	return feeds, nil
}

func (s *FeedStore) ListSyncUsers(ctx context.Context) ([]int64, error) {
	var userIDs []int64
	err := s.db.SelectContext(ctx, &userIDs,
		"SELECT DISTINCT user_id FROM feed_integrations WHERE active ORDER BY user_id")
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

func (s *FeedStore) UpdateLastSync(ctx context.Context, feedIntegrationID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE feed_integrations SET last_sync_at = $2, updated_at = NOW() WHERE id = $1",
		feedIntegrationID, at,
	)
	return err
}
