// Package ics implements the subset of the iCalendar grammar the syncer
// consumes: VEVENT blocks with UID, SUMMARY, DESCRIPTION, LOCATION,
// DTSTART and DTEND, including line folding, backslash escaping and the
// basic and date-only date-time forms.
package ics

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"calsync/internal/domain"
)

const (
	beginEvent = "BEGIN:VEVENT"
	endEvent   = "END:VEVENT"

	layoutDateTime = "20060102T150405"
	layoutDate     = "20060102"
)

// Parse turns raw calendar-feed text into the events it could extract.
// It is pure and never fails: malformed fragments are skipped, an empty
// feed yields an empty slice. An event is emitted only when it has a
// non-empty summary and both a start and an end.
func Parse(raw string) []domain.RawEvent {
	lines := unfold(raw)

	var events []domain.RawEvent
	for i := 0; i < len(lines); i++ {
		if lines[i] != beginEvent {
			continue
		}

		end := -1
		for j := i + 1; j < len(lines); j++ {
			if lines[j] == endEvent {
				end = j
				break
			}
		}
		if end == -1 {
			// BEGIN without a matching END before end-of-input:
			// the fragment yields nothing.
			break
		}

		if ev, ok := parseEvent(lines[i+1 : end]); ok {
			events = append(events, ev)
		}
		i = end
	}

	return events
}

// unfold normalizes line endings and re-joins soft-wrapped continuation
// lines. A physical line starting with a space or tab continues the
// previous logical line, with exactly one leading whitespace character
// removed.
func unfold(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	physical := strings.Split(raw, "\n")

	var logical []string
	for _, line := range physical {
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') && len(logical) > 0 {
			logical[len(logical)-1] += line[1:]
			continue
		}
		logical = append(logical, line)
	}
	return logical
}

func parseEvent(lines []string) (domain.RawEvent, bool) {
	var ev domain.RawEvent
	var haveStart, haveEnd bool

	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		switch {
		case name == "UID":
			ev.ExternalID = value
		case name == "SUMMARY":
			ev.Title = unescape(value)
		case name == "DESCRIPTION":
			desc := unescape(value)
			ev.Description = &desc
		case name == "LOCATION":
			loc := unescape(value)
			ev.Location = &loc
		case strings.HasPrefix(name, "DTSTART"):
			if t, ok := parseDateTime(value); ok {
				ev.StartTime = t
				haveStart = true
			}
		case strings.HasPrefix(name, "DTEND"):
			if t, ok := parseDateTime(value); ok {
				ev.EndTime = t
				haveEnd = true
			}
		case strings.HasPrefix(name, "ATTENDEE"):
			ev.AttendeeCount++
		}
	}

	if ev.Title == "" || !haveStart || !haveEnd {
		return domain.RawEvent{}, false
	}

	if ev.ExternalID == "" {
		// Uniqueness across the parse result is the contract,
		// reproducibility is not.
		ev.ExternalID = "synthetic-" + uuid.NewString()
	}

	return ev, true
}

// parseDateTime decodes the two supported value forms. The basic form
// YYYYMMDDTHHMMSS[Z] is read as literal UTC calendar fields whether or
// not the Z is present; the date-only form YYYYMMDD is an all-day event
// anchored at local midnight.
func parseDateTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)

	if strings.Contains(value, "T") {
		t, err := time.ParseInLocation(layoutDateTime, strings.TrimSuffix(value, "Z"), time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}

	t, err := time.ParseInLocation(layoutDate, value, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// unescape reverses iCalendar text escaping.
func unescape(value string) string {
	var sb strings.Builder
	sb.Grow(len(value))

	for i := 0; i < len(value); i++ {
		c := value[i]
		if c != '\\' || i == len(value)-1 {
			sb.WriteByte(c)
			continue
		}

		i++
		switch value[i] {
		case 'n', 'N':
			sb.WriteByte('\n')
		case ',', ';', '\\':
			sb.WriteByte(value[i])
		default:
			sb.WriteByte('\\')
			sb.WriteByte(value[i])
		}
	}

	return sb.String()
}
