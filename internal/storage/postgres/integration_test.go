//go:build integration

package postgres

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"calsync/internal/domain"
	"calsync/testdata/utils"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_calendar_schema.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM daily_aggregates")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM calendar_events")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM feed_integrations")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) insertFeed(userID int64, active bool) int64 {
	var id int64
	err := s.db.QueryRowContext(s.ctx,
		"INSERT INTO feed_integrations (user_id, name, url_cipher, active) VALUES ($1, 'test', 'blob', $2) RETURNING id",
		userID, active,
	).Scan(&id)
	s.Require().NoError(err)
	return id
}

func (s *PostgresIntegrationSuite) sampleEvents(feedID, userID int64, n int) []domain.Event {
	base := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)
	events := make([]domain.Event, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, domain.Event{
			FeedIntegrationID: feedID,
			UserID:            userID,
			ExternalID:        "evt-" + strconv.Itoa(i),
			Title:             "Standup",
			Classification:    domain.ClassMeeting,
			StartTime:         base.Add(time.Duration(i) * time.Hour),
			EndTime:           base.Add(time.Duration(i)*time.Hour + 30*time.Minute),
			Description:       utils.Ptr("daily"),
			Location:          utils.Ptr("Room 1"),
			AttendeeCount:     4,
		})
	}
	return events
}

func (s *PostgresIntegrationSuite) TestEventStore_BulkInsertAndList() {
	feedID := s.insertFeed(3, true)
	store := NewEventStore(s.db)

	err := store.BulkInsert(s.ctx, s.sampleEvents(feedID, 3, 2))
	s.Require().NoError(err)

	events, err := store.ListByFeed(s.ctx, feedID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal("Standup", events[0].Title)
	s.Equal(domain.ClassMeeting, events[0].Classification)
	s.Require().NotNil(events[0].Description)
	s.Equal("daily", *events[0].Description)
	s.Equal(4, events[0].AttendeeCount)
}

func (s *PostgresIntegrationSuite) TestEventStore_DeleteByFeedIsScoped() {
	feedA := s.insertFeed(3, true)
	feedB := s.insertFeed(3, true)
	store := NewEventStore(s.db)

	s.Require().NoError(store.BulkInsert(s.ctx, s.sampleEvents(feedA, 3, 2)))
	s.Require().NoError(store.BulkInsert(s.ctx, s.sampleEvents(feedB, 3, 1)))

	s.Require().NoError(store.DeleteByFeed(s.ctx, feedA))

	remainingA, err := store.ListByFeed(s.ctx, feedA)
	s.Require().NoError(err)
	s.Empty(remainingA)

	remainingB, err := store.ListByFeed(s.ctx, feedB)
	s.Require().NoError(err)
	s.Len(remainingB, 1)
}

func (s *PostgresIntegrationSuite) TestEventStore_ReplaceRollsBackAsUnit() {
	feedID := s.insertFeed(3, true)
	store := NewEventStore(s.db)
	tm := NewTransactionManager(s.db)

	s.Require().NoError(store.BulkInsert(s.ctx, s.sampleEvents(feedID, 3, 2)))

	// Duplicate external ids violate the unique constraint mid-replace;
	// the delete must roll back with the failed insert.
	bad := s.sampleEvents(feedID, 3, 1)
	bad = append(bad, bad[0])

	err := tm.WithTransaction(s.ctx, func(txCtx context.Context) error {
		if err := store.DeleteByFeed(txCtx, feedID); err != nil {
			return err
		}
		return store.BulkInsert(txCtx, bad)
	})
	s.Require().Error(err)

	events, err := store.ListByFeed(s.ctx, feedID)
	s.Require().NoError(err)
	s.Len(events, 2)
}

func (s *PostgresIntegrationSuite) TestEventStore_ListByUserBetween() {
	feedID := s.insertFeed(3, true)
	store := NewEventStore(s.db)

	s.Require().NoError(store.BulkInsert(s.ctx, s.sampleEvents(feedID, 3, 3)))

	start := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	events, err := store.ListByUserBetween(s.ctx, 3, start, end)
	s.Require().NoError(err)
	s.Len(events, 3)

	events, err = store.ListByUserBetween(s.ctx, 3, start.AddDate(0, 0, 5), end.AddDate(0, 0, 5))
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *PostgresIntegrationSuite) TestFeedStore_ListActiveByUser() {
	active := s.insertFeed(3, true)
	s.insertFeed(3, false)
	s.insertFeed(4, true)

	store := NewFeedStore(s.db)

	feeds, err := store.ListActiveByUser(s.ctx, 3)
	s.Require().NoError(err)
	s.Require().Len(feeds, 1)
	s.Equal(active, feeds[0].ID)
	s.Equal("blob", feeds[0].URLCipher)
	s.Nil(feeds[0].LastSyncAt)
}

func (s *PostgresIntegrationSuite) TestFeedStore_ListSyncUsers() {
	s.insertFeed(3, true)
	s.insertFeed(3, true)
	s.insertFeed(4, true)
	s.insertFeed(5, false)

	store := NewFeedStore(s.db)

	users, err := store.ListSyncUsers(s.ctx)
	s.Require().NoError(err)
	s.Equal([]int64{3, 4}, users)
}

func (s *PostgresIntegrationSuite) TestFeedStore_UpdateLastSync() {
	feedID := s.insertFeed(3, true)
	store := NewFeedStore(s.db)

	at := time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(store.UpdateLastSync(s.ctx, feedID, at))

	feeds, err := store.ListActiveByUser(s.ctx, 3)
	s.Require().NoError(err)
	s.Require().Len(feeds, 1)
	s.Require().NotNil(feeds[0].LastSyncAt)
	s.WithinDuration(at, *feeds[0].LastSyncAt, time.Second)
}

func (s *PostgresIntegrationSuite) TestAggregateStore_ReplaceRange() {
	store := NewAggregateStore(s.db)
	day := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)

	rows := []domain.DailyAggregate{
		{UserID: 3, Day: day, BusynessScore: 40, MeetingCount: 3, MeetingMinutes: 180, ComputedAt: time.Now().UTC()},
		{UserID: 3, Day: day.AddDate(0, 0, 1), BusynessScore: 10, MeetingCount: 1, MeetingMinutes: 30, ComputedAt: time.Now().UTC()},
	}

	s.Require().NoError(store.InsertBatch(s.ctx, rows))

	s.Require().NoError(store.DeleteRange(s.ctx, 3, day, day.AddDate(0, 0, 1)))
	rows[0].BusynessScore = 55
	s.Require().NoError(store.InsertBatch(s.ctx, rows))

	got, err := store.ListRange(s.ctx, 3, day, day.AddDate(0, 0, 1))
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(55, got[0].BusynessScore)
	s.Equal(10, got[1].BusynessScore)
}
