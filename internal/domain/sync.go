package domain

import "time"

// SyncOutcome reports what a single feed's reconciliation did.
type SyncOutcome struct {
	FeedIntegrationID int64
	Changed           bool
	SyncedCount       int
}

// SyncSummary holds statistics about one user's full sync cycle.
type SyncSummary struct {
	UserID    int64
	Feeds     int
	Synced    int
	Unchanged int
	Failed    int
	Duration  time.Duration
}
