package domain

// ItemKind distinguishes community resources from events.
type ItemKind string

const (
	ItemKindResource ItemKind = "resource"
	ItemKindEvent    ItemKind = "event"
)

func (k ItemKind) String() string { return string(k) }

func (k ItemKind) IsValid() bool {
	switch k {
	case ItemKindResource, ItemKindEvent:
		return true
	}
	return false
}

// SuggestionCollection returns the collection holding suggestions of this kind.
func (k ItemKind) SuggestionCollection() string {
	if k == ItemKindEvent {
		return CollectionEventSuggestions
	}
	return CollectionResourceSuggestions
}

// LiveCollection returns the collection holding published items of this kind.
func (k ItemKind) LiveCollection() string {
	if k == ItemKindEvent {
		return CollectionEvents
	}
	return CollectionResources
}

// ParseItemKind accepts both the singular kind and the plural path segment
// ("resources", "events") used by the HTTP API.
func ParseItemKind(s string) (ItemKind, bool) {
	switch s {
	case "resource", "resources":
		return ItemKindResource, true
	case "event", "events":
		return ItemKindEvent, true
	}
	return "", false
}

// SuggestionStatus is the moderation state of a suggestion or live item.
type SuggestionStatus string

const (
	StatusPending  SuggestionStatus = "pending"
	StatusApproved SuggestionStatus = "approved"
)

func (s SuggestionStatus) String() string { return string(s) }

func (s SuggestionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved:
		return true
	}
	return false
}

// UserRole is the role recorded on a roster entry.
type UserRole string

const (
	UserRoleResident UserRole = "resident"
	UserRoleLeader   UserRole = "leader"
)

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleResident, UserRoleLeader:
		return true
	}
	return false
}

// IsLeader reports whether the role may moderate.
func (r UserRole) IsLeader() bool { return r == UserRoleLeader }

// Persisted collection names.
const (
	CollectionResourceSuggestions = "resourceSuggestions"
	CollectionEventSuggestions    = "eventSuggestions"
	CollectionResources           = "resources"
	CollectionEvents              = "events"
	CollectionStarred             = "starred"
	CollectionUsers               = "users"
)

// CategoryAll matches every category in catalog filters.
const CategoryAll = "All"

// ResourceCategories lists the categories offered for resources.
var ResourceCategories = []string{"Food", "Health", "Education", "Financial Aid", "Housing", "Other"}

// EventCategories lists the categories offered for events.
var EventCategories = []string{"Recreational", "Volunteering", "Town Hall", "Workshop", "Festival", "Other"}

// Categories returns the category list for a kind.
func Categories(k ItemKind) []string {
	if k == ItemKindEvent {
		return EventCategories
	}
	return ResourceCategories
}
