package service

import (
	"time"

	"calsync/internal/domain"
)

// relevanceWindow bounds which parsed events are compared and stored:
// from the first day of the previous calendar month through the last
// instant of the month two months ahead, inclusive. This caps storage
// growth and keeps far-future recurring-series noise out of the store.
func relevanceWindow(now time.Time) (time.Time, time.Time) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	start := monthStart.AddDate(0, -1, 0)
	end := monthStart.AddDate(0, 3, 0).Add(-time.Nanosecond)
	return start, end
}

func inWindow(ev domain.Event, start, end time.Time) bool {
	return !ev.StartTime.Before(start) && !ev.StartTime.After(end)
}

// recomputeWindow derives the date range whose daily aggregates a
// changed sync invalidates: from max(30 days ago, earliest event start,
// capped at today) through min(latest event end, today), at day
// granularity. ok is false when the range is empty.
func recomputeWindow(events []domain.Event, now time.Time) (time.Time, time.Time, bool) {
	if len(events) == 0 {
		return time.Time{}, time.Time{}, false
	}

	earliest := events[0].StartTime
	latest := events[0].EndTime
	for _, ev := range events[1:] {
		if ev.StartTime.Before(earliest) {
			earliest = ev.StartTime
		}
		if ev.EndTime.After(latest) {
			latest = ev.EndTime
		}
	}

	today := midnight(now)

	start := midnight(earliest)
	if start.After(today) {
		start = today
	}
	if floor := today.AddDate(0, 0, -30); start.Before(floor) {
		start = floor
	}

	end := midnight(latest)
	if end.After(today) {
		end = today
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
