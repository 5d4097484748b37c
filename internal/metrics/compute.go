// Package metrics derives per-day schedule-load aggregates from stored
// calendar events.
package metrics

import (
	"math"
	"sort"
	"time"

	"calsync/internal/domain"
)

const (
	workdayStartHour = 8
	workdayEndHour   = 18

	// Gap below which two consecutive events count as back-to-back.
	backToBackGap = 15 * time.Minute
)

// computeDay builds the aggregate for one calendar day from the events
// overlapping it. Deterministic: the same events always produce the same
// row, which is what makes recomputation idempotent.
func computeDay(userID int64, day time.Time, events []domain.Event, computedAt time.Time) domain.DailyAggregate {
	dayEnd := day.AddDate(0, 0, 1)

	agg := domain.DailyAggregate{
		UserID:     userID,
		Day:        day,
		ComputedAt: computedAt,
	}

	var overlapping []domain.Event
	for _, ev := range events {
		if ev.StartTime.Before(dayEnd) && ev.EndTime.After(day) {
			overlapping = append(overlapping, ev)
		}
	}
	if len(overlapping) == 0 {
		return agg
	}

	sort.Slice(overlapping, func(i, j int) bool {
		return overlapping[i].StartTime.Before(overlapping[j].StartTime)
	})

	workStart := day.Add(workdayStartHour * time.Hour)
	workEnd := day.Add(workdayEndHour * time.Hour)

	for _, ev := range overlapping {
		start := maxTime(ev.StartTime, day)
		end := minTime(ev.EndTime, dayEnd)
		minutes := int(end.Sub(start).Minutes())

		switch ev.Classification {
		case domain.ClassMeeting:
			agg.MeetingCount++
			agg.MeetingMinutes += minutes
		case domain.ClassFocus:
			agg.FocusMinutes += minutes
		}

		agg.AfterHoursMinutes += overlapMinutes(start, end, day, workStart)
		agg.AfterHoursMinutes += overlapMinutes(start, end, workEnd, dayEnd)
	}

	for i := 1; i < len(overlapping); i++ {
		gap := overlapping[i].StartTime.Sub(overlapping[i-1].EndTime)
		if gap >= 0 && gap < backToBackGap {
			agg.BackToBackCount++
		}
	}

	agg.BusynessScore = busynessScore(agg)
	return agg
}

// busynessScore folds the day's counters into one 0-100 load figure:
// eight hours of meetings alone saturates the meeting share of 60
// points, back-to-back pairs and after-hours minutes add up to 20 points
// each.
func busynessScore(agg domain.DailyAggregate) int {
	score := float64(agg.MeetingMinutes) * 60.0 / 480.0
	score += math.Min(float64(agg.BackToBackCount)*5.0, 20.0)
	score += math.Min(float64(agg.AfterHoursMinutes)/12.0, 20.0)

	if score > 100 {
		score = 100
	}
	return int(math.Round(score))
}

func overlapMinutes(start, end, lo, hi time.Time) int {
	s := maxTime(start, lo)
	e := minTime(end, hi)
	if !s.Before(e) {
		return 0
	}
	return int(e.Sub(s).Minutes())
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
