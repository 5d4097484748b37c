package domain

import "time"

// Classification is the semantic category assigned to a calendar event
// from its title and description.
type Classification string

const (
	ClassMeeting  Classification = "meeting"
	ClassFocus    Classification = "focus"
	ClassBreak    Classification = "break"
	ClassPersonal Classification = "personal"
	ClassTravel   Classification = "travel"
	ClassBuffer   Classification = "buffer"
)

// RawEvent is a single VEVENT as produced by the ICS parser. It carries
// no ownership or classification; those are attached further down the
// pipeline. Instances are built fresh on every parse pass and discarded
// after reconciliation.
type RawEvent struct {
	ExternalID    string // feed UID, or synthesized when the feed omits one
	Title         string
	StartTime     time.Time
	EndTime       time.Time
	Description   *string
	Location      *string
	AttendeeCount int
}

// Event is a classified calendar event in the shape the store persists:
// a RawEvent plus classification and ownership.
type Event struct {
	ID                int64          `db:"id"`
	FeedIntegrationID int64          `db:"feed_integration_id"`
	UserID            int64          `db:"user_id"`
	ExternalID        string         `db:"external_id"`
	Title             string         `db:"title"`
	Classification    Classification `db:"classification"`
	StartTime         time.Time      `db:"start_time"`
	EndTime           time.Time      `db:"end_time"`
	Description       *string        `db:"description"`
	Location          *string        `db:"location"`
	AttendeeCount     int            `db:"attendee_count"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

// DailyAggregate is one user's derived schedule-load metrics for a single
// day. Rows are wholly recomputed for an affected window, never patched.
type DailyAggregate struct {
	ID                int64     `db:"id"`
	UserID            int64     `db:"user_id"`
	Day               time.Time `db:"day"`
	BusynessScore     int       `db:"busyness_score"`
	MeetingCount      int       `db:"meeting_count"`
	MeetingMinutes    int       `db:"meeting_minutes"`
	FocusMinutes      int       `db:"focus_minutes"`
	AfterHoursMinutes int       `db:"after_hours_minutes"`
	BackToBackCount   int       `db:"back_to_back_count"`
	ComputedAt        time.Time `db:"computed_at"`
}
