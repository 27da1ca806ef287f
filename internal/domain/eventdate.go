package domain

import (
	"strings"
	"time"
)

// eventDateLayouts are tried in order by ParseEventDate.
var eventDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"Jan 2, 2006 3:04 PM",
	"January 2, 2006 3:04 PM",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseEventDate parses the free-form event date residents and moderators
// enter, including the "Jan 2, 2006 • 6:00 PM" display form. Dates without a
// zone are read in loc. ok is false when no layout matches.
func ParseEventDate(raw string, loc *time.Location) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, "•", " ")), " ")

	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range eventDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
