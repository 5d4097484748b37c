package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(lines ...string) string {
	return strings.Join(lines, "\r\n")
}

func TestParse_SingleEvent(t *testing.T) {
	raw := feed(
		"BEGIN:VCALENDAR",
		"BEGIN:VEVENT",
		"UID:evt-1",
		"SUMMARY:Team standup",
		"DESCRIPTION:Daily sync",
		"LOCATION:Room 4",
		"DTSTART:20240131T143000Z",
		"DTEND:20240131T150000Z",
		"END:VEVENT",
		"END:VCALENDAR",
	)

	events := Parse(raw)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "evt-1", ev.ExternalID)
	assert.Equal(t, "Team standup", ev.Title)
	require.NotNil(t, ev.Description)
	assert.Equal(t, "Daily sync", *ev.Description)
	require.NotNil(t, ev.Location)
	assert.Equal(t, "Room 4", *ev.Location)
	assert.Equal(t, time.Date(2024, 1, 31, 14, 30, 0, 0, time.UTC), ev.StartTime)
	assert.Equal(t, time.Date(2024, 1, 31, 15, 0, 0, 0, time.UTC), ev.EndTime)
}

func TestParse_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{
			name: "no summary",
			lines: []string{
				"BEGIN:VEVENT",
				"UID:evt-1",
				"DTSTART:20240131T143000Z",
				"DTEND:20240131T150000Z",
				"END:VEVENT",
			},
		},
		{
			name: "no start",
			lines: []string{
				"BEGIN:VEVENT",
				"SUMMARY:Planning",
				"DTEND:20240131T150000Z",
				"END:VEVENT",
			},
		},
		{
			name: "no end",
			lines: []string{
				"BEGIN:VEVENT",
				"SUMMARY:Planning",
				"DTSTART:20240131T143000Z",
				"END:VEVENT",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Parse(feed(tt.lines...)))
		})
	}
}

func TestParse_LineFolding(t *testing.T) {
	folded := feed(
		"BEGIN:VEVENT",
		"UID:evt-1",
		"SUMMARY:Quarterly planning ",
		" workshop",
		"DTSTART:20240131T143000Z",
		"DTEND:20240131T150000Z",
		"END:VEVENT",
	)
	unfolded := feed(
		"BEGIN:VEVENT",
		"UID:evt-1",
		"SUMMARY:Quarterly planning workshop",
		"DTSTART:20240131T143000Z",
		"DTEND:20240131T150000Z",
		"END:VEVENT",
	)

	a := Parse(folded)
	b := Parse(unfolded)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, b[0].Title, a[0].Title)
	assert.Equal(t, "Quarterly planning workshop", a[0].Title)
}

func TestParse_TabContinuation(t *testing.T) {
	raw := feed(
		"BEGIN:VEVENT",
		"UID:evt-1",
		"SUMMARY:Board",
		"\treview",
		"DTSTART:20240131T143000Z",
		"DTEND:20240131T150000Z",
		"END:VEVENT",
	)

	events := Parse(raw)
	require.Len(t, events, 1)
	assert.Equal(t, "Boardreview", events[0].Title)
}

func TestParse_Unescaping(t *testing.T) {
	raw := feed(
		"BEGIN:VEVENT",
		"UID:evt-1",
		`SUMMARY:A\, B\; C\\D\nE`,
		"DTSTART:20240131T143000Z",
		"DTEND:20240131T150000Z",
		"END:VEVENT",
	)

	events := Parse(raw)
	require.Len(t, events, 1)
	assert.Equal(t, "A, B; C\\D\nE", events[0].Title)
}

func TestParse_DateForms(t *testing.T) {
	raw := feed(
		"BEGIN:VEVENT",
		"UID:evt-1",
		"SUMMARY:Offsite",
		"DTSTART:20240131",
		"DTEND:20240201",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:evt-2",
		"SUMMARY:Call",
		"DTSTART;TZID=Europe/Berlin:20240131T143000",
		"DTEND;TZID=Europe/Berlin:20240131T150000",
		"END:VEVENT",
	)

	events := Parse(raw)
	require.Len(t, events, 2)

	// Date-only form anchors at local midnight.
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.Local), events[0].StartTime)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.Local), events[0].EndTime)

	// Parameterized DTSTART still parses; literal fields are read as UTC.
	assert.Equal(t, time.Date(2024, 1, 31, 14, 30, 0, 0, time.UTC), events[1].StartTime)
}

func TestParse_SynthesizedUIDs(t *testing.T) {
	raw := feed(
		"BEGIN:VEVENT",
		"SUMMARY:One",
		"DTSTART:20240131T100000Z",
		"DTEND:20240131T110000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"SUMMARY:Two",
		"DTSTART:20240131T120000Z",
		"DTEND:20240131T130000Z",
		"END:VEVENT",
	)

	events := Parse(raw)
	require.Len(t, events, 2)
	assert.NotEmpty(t, events[0].ExternalID)
	assert.NotEmpty(t, events[1].ExternalID)
	assert.NotEqual(t, events[0].ExternalID, events[1].ExternalID)
}

func TestParse_UnterminatedBlock(t *testing.T) {
	raw := feed(
		"BEGIN:VEVENT",
		"UID:evt-1",
		"SUMMARY:Complete",
		"DTSTART:20240131T100000Z",
		"DTEND:20240131T110000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:evt-2",
		"SUMMARY:Truncated",
		"DTSTART:20240131T120000Z",
	)

	events := Parse(raw)
	require.Len(t, events, 1)
	assert.Equal(t, "evt-1", events[0].ExternalID)
}

func TestParse_UnknownPropertiesIgnored(t *testing.T) {
	raw := feed(
		"BEGIN:VEVENT",
		"UID:evt-1",
		"SUMMARY:Sprint review",
		"SEQUENCE:3",
		"X-MICROSOFT-CDO-BUSYSTATUS:BUSY",
		"ATTENDEE;CN=Alice:mailto:alice@example.com",
		"ATTENDEE;CN=Bob:mailto:bob@example.com",
		"DTSTART:20240131T143000Z",
		"DTEND:20240131T150000Z",
		"END:VEVENT",
	)

	events := Parse(raw)
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].AttendeeCount)
}

func TestParse_EmptyFeed(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
}
