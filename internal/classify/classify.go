// Package classify maps event text to a semantic category.
package classify

import (
	"strings"

	"calsync/internal/domain"
)

// keywordGroup order is significant: the first group with a matching
// keyword wins, so "Lunch break meeting" is a meeting, not a break.
var keywordGroups = []struct {
	class    domain.Classification
	keywords []string
}{
	{domain.ClassMeeting, []string{"meeting", "call", "conference", "standup", "sync", "review"}},
	{domain.ClassFocus, []string{"focus", "deep work", "coding", "workshop", "block"}},
	{domain.ClassBreak, []string{"break", "lunch", "coffee", "recharge"}},
	{domain.ClassTravel, []string{"travel", "flight", "drive"}},
	{domain.ClassPersonal, []string{"personal", "doctor", "appointment", "dentist", "workout", "dinner"}},
	{domain.ClassBuffer, []string{"buffer"}},
}

// Classify assigns a category from title and description. It is total:
// text matching no keyword group defaults to meeting.
func Classify(title string, description *string) domain.Classification {
	text := title
	if description != nil {
		text += " " + *description
	}
	text = strings.ToLower(text)

	for _, group := range keywordGroups {
		for _, kw := range group.keywords {
			if strings.Contains(text, kw) {
				return group.class
			}
		}
	}

	return domain.ClassMeeting
}
