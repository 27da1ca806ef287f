package domain

import "time"

// Fields is the descriptive shape shared by every resource and event.
type Fields struct {
	Name        string
	Category    string
	Description string
	URL         *string
	Phone       *string
	ImageURL    *string
	Location    *string
}

// Content is the closed set of item payloads: Resource or Event.
type Content interface {
	Kind() ItemKind
	Base() Fields
	sealed()
}

// Resource is the payload of a community resource.
type Resource struct {
	Fields
}

func (Resource) Kind() ItemKind { return ItemKindResource }
func (r Resource) Base() Fields { return r.Fields }
func (Resource) sealed()        {}

// Event is the payload of a community event.
type Event struct {
	Fields
	// EventDate is kept as entered; see ParseEventDate.
	EventDate string
}

func (Event) Kind() ItemKind { return ItemKindEvent }
func (e Event) Base() Fields { return e.Fields }
func (Event) sealed()        {}

// NewContent builds the payload variant for kind.
func NewContent(kind ItemKind, f Fields, eventDate string) Content {
	if kind == ItemKindEvent {
		return Event{Fields: f, EventDate: eventDate}
	}
	return Resource{Fields: f}
}

// EventDateOf returns the event date of c, or "" for resources.
func EventDateOf(c Content) string {
	if e, ok := c.(Event); ok {
		return e.EventDate
	}
	return ""
}

// Suggestion is a resident-submitted item awaiting moderation.
type Suggestion struct {
	ID               string
	Content          Content
	Status           SuggestionStatus
	SuggestedBy      string
	SuggestedByEmail string
	SubmittedAt      time.Time
}

// Kind returns the suggestion's item kind.
func (s Suggestion) Kind() ItemKind { return s.Content.Kind() }

// IsPending reports whether the suggestion still awaits a decision.
func (s Suggestion) IsPending() bool { return s.Status == StatusPending }

// LiveItem is a published catalog item.
type LiveItem struct {
	ID              string
	Content         Content
	Status          SuggestionStatus
	ApprovedBy      string
	ApprovedByEmail string
	PublishedAt     time.Time

	// SourceSuggestionID links a promoted item to its suggestion.
	// Nil for manually published items.
	SourceSuggestionID *string
}

// Kind returns the live item's kind.
func (i LiveItem) Kind() ItemKind { return i.Content.Kind() }

// Name is a shortcut for the item's display name.
func (i LiveItem) Name() string { return i.Content.Base().Name }

// Category is a shortcut for the item's category.
func (i LiveItem) Category() string { return i.Content.Base().Category }

// StarRecord is a moderator's bookmark of a resource. Snapshot is copied at
// star time and never updated.
type StarRecord struct {
	ID          string
	ModeratorID string
	ResourceID  string
	Snapshot    Fields
	StarredAt   time.Time
}

// StarID returns the deterministic key of the star record for a
// (moderator, resource) pair.
func StarID(moderatorID, resourceID string) string {
	return moderatorID + "_" + resourceID
}
