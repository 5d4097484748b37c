package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"calsync/internal/domain"
)

const eventColumns = `id, feed_integration_id, user_id, external_id, title, classification,
	start_time, end_time, description, location, attendee_count, created_at, updated_at`

// EventStore persists classified calendar events. After a sync the
// stored set for a feed exactly equals the latest windowed parse result;
// replacement happens through DeleteByFeed + BulkInsert inside one
// transaction, never a merge.
type EventStore struct {
	db *sqlx.DB
}

func NewEventStore(db *sqlx.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) ListByFeed(ctx context.Context, feedIntegrationID int64) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM calendar_events
		WHERE feed_integration_id = $1
		ORDER BY start_time`

	var events []domain.Event
	if err := sqlx.SelectContext(ctx, executor(ctx, s.db), &events, query, feedIntegrationID); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *EventStore) ListByUserBetween(ctx context.Context, userID int64, start, end time.Time) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM calendar_events
		WHERE user_id = $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time`

	var events []domain.Event
	if err := sqlx.SelectContext(ctx, executor(ctx, s.db), &events, query, userID, start, end); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *EventStore) DeleteByFeed(ctx context.Context, feedIntegrationID int64) error {
	_, err := executor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM calendar_events WHERE feed_integration_id = $1",
		feedIntegrationID,
	)
	return err
}

func (s *EventStore) BulkInsert(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO calendar_events (
		feed_integration_id, user_id, external_id, title, classification,
		start_time, end_time, description, location, attendee_count
	) VALUES `)

	const cols = 10
	args := make([]interface{}, 0, len(events)*cols)

	for i, ev := range events {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := 0; j < cols; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("$")
			sb.WriteString(strconv.Itoa(i*cols + j + 1))
		}
		sb.WriteString(")")

		args = append(args,
			ev.FeedIntegrationID,
			ev.UserID,
			ev.ExternalID,
			ev.Title,
			ev.Classification,
			ev.StartTime,
			ev.EndTime,
			ev.Description,
			ev.Location,
			ev.AttendeeCount,
		)
	}

	_, err := executor(ctx, s.db).ExecContext(ctx, sb.String(), args...)
	return err
}
