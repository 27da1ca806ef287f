// Package catalog answers read-only catalog queries over live items: the
// search/category filter, the featured list, the upcoming/archived event
// split, and aggregate counts.
package catalog

import (
	"sort"
	"strings"

	"github.com/heartmarshall/cypress-connect/internal/domain"
)

// Filter narrows a set of live items.
type Filter struct {
	Search   string
	Category string
}

// Normalize returns the filter in canonical form. Filters that select the
// same items normalize to the same value.
func (f Filter) Normalize() Filter {
	out := Filter{Search: domain.NormalizeText(f.Search), Category: strings.TrimSpace(f.Category)}
	if strings.EqualFold(out.Category, domain.CategoryAll) {
		out.Category = ""
	}
	return out
}

// Match reports whether item passes the filter. f must be normalized.
func (f Filter) Match(item domain.LiveItem) bool {
	if f.Category != "" && item.Category() != f.Category {
		return false
	}
	if f.Search == "" {
		return true
	}
	return strings.Contains(domain.NormalizeText(item.Name()), f.Search) ||
		strings.Contains(domain.NormalizeText(item.Category()), f.Search)
}

// Apply returns the items matching f, sorted by name (case-insensitive) and
// then by id. It never modifies items.
func Apply(items map[string]domain.LiveItem, f Filter) []domain.LiveItem {
	f = f.Normalize()

	out := make([]domain.LiveItem, 0, len(items))
	for _, item := range items {
		if f.Match(item) {
			out = append(out, item)
		}
	}
	SortByName(out)
	return out
}

// SortByName orders items by lowercase name, breaking ties by id.
func SortByName(items []domain.LiveItem) {
	sort.Slice(items, func(i, j int) bool {
		a, b := strings.ToLower(items[i].Name()), strings.ToLower(items[j].Name())
		if a != b {
			return a < b
		}
		return items[i].ID < items[j].ID
	})
}
