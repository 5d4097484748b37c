package domain

import "time"

// FeedIntegration is a user's configured external calendar source.
// The feed URL is stored encrypted; the syncer decrypts it just before
// fetching and never writes it back.
type FeedIntegration struct {
	ID         int64      `db:"id"`
	UserID     int64      `db:"user_id"`
	Name       string     `db:"name"`
	URLCipher  string     `db:"url_cipher"`
	Active     bool       `db:"active"`
	LastSyncAt *time.Time `db:"last_sync_at"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}
