package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/heartmarshall/cypress-connect/internal/domain"
)

// When selects events relative to the current time.
type When string

const (
	WhenUpcoming When = "upcoming"
	WhenArchived When = "archived"
	WhenAll      When = "all"
)

// ParseWhen parses a When. An empty string selects upcoming events.
func ParseWhen(s string) (When, bool) {
	switch w := When(strings.ToLower(strings.TrimSpace(s))); w {
	case "":
		return WhenUpcoming, true
	case WhenUpcoming, WhenArchived, WhenAll:
		return w, true
	}
	return "", false
}

// SplitEvents partitions events into upcoming and archived. An event is
// archived once its date is before now; events without a readable date stay
// upcoming. Both lists are ordered by date, undated events last.
func SplitEvents(events []domain.LiveItem, now time.Time) (upcoming, archived []domain.LiveItem) {
	type dated struct {
		item domain.LiveItem
		at   time.Time
		ok   bool
	}

	var up, past []dated
	for _, ev := range events {
		at, ok := domain.ParseEventDate(domain.EventDateOf(ev.Content), now.Location())
		d := dated{item: ev, at: at, ok: ok}
		if ok && at.Before(now) {
			past = append(past, d)
		} else {
			up = append(up, d)
		}
	}

	byDate := func(list []dated) []domain.LiveItem {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].ok != list[j].ok {
				return list[i].ok
			}
			return list[i].at.Before(list[j].at)
		})
		out := make([]domain.LiveItem, len(list))
		for i, d := range list {
			out[i] = d.item
		}
		return out
	}
	return byDate(up), byDate(past)
}

// SelectEvents returns the events chosen by when.
func SelectEvents(events []domain.LiveItem, when When, now time.Time) []domain.LiveItem {
	if when == WhenAll {
		return events
	}
	upcoming, archived := SplitEvents(events, now)
	if when == WhenArchived {
		return archived
	}
	return upcoming
}
