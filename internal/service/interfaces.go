package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"calsync/internal/domain"
)

type EventStore interface {
	ListByFeed(ctx context.Context, feedIntegrationID int64) ([]domain.Event, error)
	DeleteByFeed(ctx context.Context, feedIntegrationID int64) error
	BulkInsert(ctx context.Context, events []domain.Event) error
}

type FeedStore interface {
	ListActiveByUser(ctx context.Context, userID int64) ([]domain.FeedIntegration, error)
	ListSyncUsers(ctx context.Context) ([]int64, error)
	UpdateLastSync(ctx context.Context, feedIntegrationID int64, at time.Time) error
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Decrypter interface {
	Decrypt(blob string) (string, error)
}

type Recomputer interface {
	Recompute(ctx context.Context, userID int64, start, end time.Time) error
}

type Publisher interface {
	Publish(ctx context.Context, userID int64, outcome *domain.SyncOutcome) error
	Close() error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
