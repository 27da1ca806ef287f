package aggregator

import (
	"github.com/heartmarshall/cypress-connect/internal/docstore"
	"github.com/heartmarshall/cypress-connect/internal/domain"
)

// Source names one subscribed collection view.
type Source string

const (
	SourcePendingResources Source = "pending_resources"
	SourcePendingEvents    Source = "pending_events"
	SourceResources        Source = "resources"
	SourceEvents           Source = "events"
	SourceStarred          Source = "starred"
	SourceRoster           Source = "roster"
)

// Spec binds a Source to a collection query.
type Spec struct {
	Source     Source
	Collection string
	Filter     *docstore.Filter
}

var pendingFilter = docstore.Eq(docstore.FieldStatus, string(domain.StatusPending))

// ModeratorSpecs returns the six sources behind a moderator's dashboard.
func ModeratorSpecs(moderatorID string) []Spec {
	return []Spec{
		{SourcePendingResources, domain.CollectionResourceSuggestions, pendingFilter},
		{SourcePendingEvents, domain.CollectionEventSuggestions, pendingFilter},
		{SourceResources, domain.CollectionResources, nil},
		{SourceEvents, domain.CollectionEvents, nil},
		{SourceStarred, domain.CollectionStarred, docstore.Eq(docstore.FieldModeratorID, moderatorID)},
		{SourceRoster, domain.CollectionUsers, nil},
	}
}

// CatalogSpecs returns the sources behind the public catalog: live items,
// every star record (for the featured list) and the roster (for stats).
func CatalogSpecs() []Spec {
	return []Spec{
		{SourcePendingResources, domain.CollectionResourceSuggestions, pendingFilter},
		{SourcePendingEvents, domain.CollectionEventSuggestions, pendingFilter},
		{SourceResources, domain.CollectionResources, nil},
		{SourceEvents, domain.CollectionEvents, nil},
		{SourceStarred, domain.CollectionStarred, nil},
		{SourceRoster, domain.CollectionUsers, nil},
	}
}

// Snapshot is an immutable merged view. Maps are replaced, never mutated,
// so a Snapshot may be shared freely across goroutines.
type Snapshot struct {
	// Version increases with every applied event.
	Version uint64

	PendingResources map[string]domain.Suggestion
	PendingEvents    map[string]domain.Suggestion
	Resources        map[string]domain.LiveItem
	Events           map[string]domain.LiveItem
	Starred          map[string]domain.StarRecord
	Roster           map[string]domain.RosterEntry

	// Versions counts applied events per source.
	Versions map[Source]uint64
	// Errors holds the last error of each currently failing source. The data
	// of a failing source is its last good emission. An entry is cleared when
	// the resubscribed source emits again.
	Errors map[Source]error
	// Ready is true once every source has emitted or failed.
	Ready bool
}

// Pending returns the pending suggestions of kind.
func (s Snapshot) Pending(kind domain.ItemKind) map[string]domain.Suggestion {
	if kind == domain.ItemKindEvent {
		return s.PendingEvents
	}
	return s.PendingResources
}

// Live returns the live items of kind.
func (s Snapshot) Live(kind domain.ItemKind) map[string]domain.LiveItem {
	if kind == domain.ItemKindEvent {
		return s.Events
	}
	return s.Resources
}

// LiveVersion returns the per-source version of the live items of kind.
func (s Snapshot) LiveVersion(kind domain.ItemKind) uint64 {
	if kind == domain.ItemKindEvent {
		return s.Versions[SourceEvents]
	}
	return s.Versions[SourceResources]
}

// StarredResourceIDs returns the set of resource ids that have a star record.
func (s Snapshot) StarredResourceIDs() map[string]bool {
	out := make(map[string]bool, len(s.Starred))
	for _, rec := range s.Starred {
		out[rec.ResourceID] = true
	}
	return out
}

func emptySnapshot() Snapshot {
	return Snapshot{
		PendingResources: map[string]domain.Suggestion{},
		PendingEvents:    map[string]domain.Suggestion{},
		Resources:        map[string]domain.LiveItem{},
		Events:           map[string]domain.LiveItem{},
		Starred:          map[string]domain.StarRecord{},
		Roster:           map[string]domain.RosterEntry{},
		Versions:         map[Source]uint64{},
		Errors:           map[Source]error{},
	}
}
