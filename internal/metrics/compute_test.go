package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"calsync/internal/domain"
)

var day = time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

func ev(class domain.Classification, start, end time.Time) domain.Event {
	return domain.Event{Classification: class, StartTime: start, EndTime: end}
}

func TestComputeDay_TypicalWorkday(t *testing.T) {
	events := []domain.Event{
		ev(domain.ClassMeeting, at(9, 0), at(10, 0)),
		ev(domain.ClassMeeting, at(10, 5), at(11, 0)),
		ev(domain.ClassFocus, at(13, 0), at(15, 0)),
		ev(domain.ClassMeeting, at(19, 0), at(20, 0)),
	}

	agg := computeDay(42, day, events, at(23, 0))

	assert.Equal(t, int64(42), agg.UserID)
	assert.Equal(t, 3, agg.MeetingCount)
	assert.Equal(t, 175, agg.MeetingMinutes)
	assert.Equal(t, 120, agg.FocusMinutes)
	assert.Equal(t, 60, agg.AfterHoursMinutes)
	assert.Equal(t, 1, agg.BackToBackCount)
	// 175/480*60 + 5 back-to-back + 60/12 after-hours, rounded.
	assert.Equal(t, 32, agg.BusynessScore)
}

func TestComputeDay_EmptyDay(t *testing.T) {
	agg := computeDay(42, day, nil, at(23, 0))

	assert.Equal(t, 0, agg.MeetingCount)
	assert.Equal(t, 0, agg.BusynessScore)
	assert.Equal(t, day, agg.Day)
}

func TestComputeDay_EarlyMorningCountsAsAfterHours(t *testing.T) {
	events := []domain.Event{
		ev(domain.ClassMeeting, at(7, 0), at(9, 0)),
	}

	agg := computeDay(42, day, events, at(23, 0))

	assert.Equal(t, 120, agg.MeetingMinutes)
	assert.Equal(t, 60, agg.AfterHoursMinutes)
}

func TestComputeDay_ClampsToDayBounds(t *testing.T) {
	events := []domain.Event{
		ev(domain.ClassMeeting, day.Add(-1*time.Hour), at(1, 0)),
		ev(domain.ClassMeeting, at(23, 0), day.AddDate(0, 0, 1).Add(2*time.Hour)),
	}

	agg := computeDay(42, day, events, at(23, 0))

	assert.Equal(t, 2, agg.MeetingCount)
	assert.Equal(t, 120, agg.MeetingMinutes)
	assert.Equal(t, 120, agg.AfterHoursMinutes)
}

func TestComputeDay_IgnoresOtherDays(t *testing.T) {
	events := []domain.Event{
		ev(domain.ClassMeeting, at(9, 0).AddDate(0, 0, 3), at(10, 0).AddDate(0, 0, 3)),
	}

	agg := computeDay(42, day, events, at(23, 0))

	assert.Equal(t, 0, agg.MeetingCount)
	assert.Equal(t, 0, agg.BusynessScore)
}

func TestComputeDay_Deterministic(t *testing.T) {
	events := []domain.Event{
		ev(domain.ClassMeeting, at(9, 0), at(10, 0)),
		ev(domain.ClassBreak, at(12, 0), at(13, 0)),
	}

	first := computeDay(42, day, events, at(23, 0))
	second := computeDay(42, day, events, at(23, 0))

	assert.Equal(t, first, second)
}

func TestBusynessScore_Caps(t *testing.T) {
	agg := domain.DailyAggregate{
		MeetingMinutes:    600,
		BackToBackCount:   10,
		AfterHoursMinutes: 600,
	}

	assert.Equal(t, 100, busynessScore(agg))
}
