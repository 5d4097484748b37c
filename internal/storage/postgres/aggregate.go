package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"calsync/internal/domain"
)

// AggregateStore persists daily busyness aggregates. A recompute
// replaces every row in its date range; rows are never patched in place,
// which keeps the recompute operation idempotent.
type AggregateStore struct {
	db *sqlx.DB
}

func NewAggregateStore(db *sqlx.DB) *AggregateStore {
	return &AggregateStore{db: db}
}

func (s *AggregateStore) DeleteRange(ctx context.Context, userID int64, start, end time.Time) error {
	_, err := executor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM daily_aggregates WHERE user_id = $1 AND day BETWEEN $2 AND $3",
		userID, start, end,
	)
	return err
}

func (s *AggregateStore) InsertBatch(ctx context.Context, aggregates []domain.DailyAggregate) error {
	if len(aggregates) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO daily_aggregates (
		user_id, day, busyness_score, meeting_count, meeting_minutes,
		focus_minutes, after_hours_minutes, back_to_back_count, computed_at
	) VALUES `)

	const cols = 9
	args := make([]interface{}, 0, len(aggregates)*cols)

	for i, agg := range aggregates {
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
			agg.UserID,
			agg.Day,
			agg.BusynessScore,
			agg.MeetingCount,
			agg.MeetingMinutes,
			agg.FocusMinutes,
			agg.AfterHoursMinutes,
			agg.BackToBackCount,
			agg.ComputedAt,
		)
	}

	_, err := executor(ctx, s.db).ExecContext(ctx, sb.String(), args...)
	return err
}

func (s *AggregateStore) ListRange(ctx context.Context, userID int64, start, end time.Time) ([]domain.DailyAggregate, error) {
	query := `
		SELECT id, user_id, day, busyness_score, meeting_count, meeting_minutes,
			focus_minutes, after_hours_minutes, back_to_back_count, computed_at
		FROM daily_aggregates
		WHERE user_id = $1 AND day BETWEEN $2 AND $3
		ORDER BY day`

	var aggregates []domain.DailyAggregate
	if err := s.db.SelectContext(ctx, &aggregates, query, userID, start, end); err != nil {
		return nil, err
	}
	return aggregates, nil
}
