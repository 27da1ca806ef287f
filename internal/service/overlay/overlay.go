// Package overlay holds locally seeded suggestions and the items promoted
// from them. Nothing in the overlay is ever written to the document store.
package overlay

import (
	"maps"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/heartmarshall/cypress-connect/internal/domain"
)

// LocalPrefix marks ids that live only in the overlay.
const LocalPrefix = "local-"

// IsLocal reports whether id belongs to the overlay.
func IsLocal(id string) bool { return strings.HasPrefix(id, LocalPrefix) }

// Store is the in-memory overlay. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	pending   map[string]domain.Suggestion
	live      map[string]domain.LiveItem
	seq       int
	gen       uint64
	listeners map[chan struct{}]struct{}
}

// New creates an overlay holding seeds. Seeds without a local id get one.
func New(seeds ...domain.Suggestion) *Store {
	s := &Store{
		pending:   make(map[string]domain.Suggestion),
		live:      make(map[string]domain.LiveItem),
		listeners: make(map[chan struct{}]struct{}),
	}
	for _, sug := range seeds {
		s.add(sug)
	}
	return s
}

// Add inserts a local suggestion and returns it with its assigned id.
func (s *Store) Add(sug domain.Suggestion) domain.Suggestion {
	s.mu.Lock()
	sug = s.add(sug)
	s.mu.Unlock()

	s.notify()
	return sug
}

func (s *Store) add(sug domain.Suggestion) domain.Suggestion {
	if !IsLocal(sug.ID) {
		s.seq++
		sug.ID = LocalPrefix + strconv.Itoa(s.seq)
	}
	if sug.Status == "" {
		sug.Status = domain.StatusPending
	}
	s.pending[sug.ID] = sug
	s.gen++
	return sug
}

// Generation increases with every mutation of the overlay.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Suggestion returns a local pending suggestion.
func (s *Store) Suggestion(id string) (domain.Suggestion, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sug, ok := s.pending[id]
	return sug, ok
}

// LiveItem returns a locally promoted item.
func (s *Store) LiveItem(id string) (domain.LiveItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.live[id]
	return item, ok
}

// Promote moves a local suggestion into the local live set. ok is false if
// the suggestion is no longer pending in the overlay.
func (s *Store) Promote(id string, mod domain.Moderator, at time.Time) (domain.LiveItem, bool) {
	s.mu.Lock()
	sug, ok := s.pending[id]
	if !ok {
		s.mu.Unlock()
		return domain.LiveItem{}, false
	}
	delete(s.pending, id)

	source := sug.ID
	item := domain.LiveItem{
		ID:                 LocalPrefix + "live-" + strings.TrimPrefix(sug.ID, LocalPrefix),
		Content:            sug.Content,
		Status:             domain.StatusApproved,
		ApprovedBy:         mod.UID,
		ApprovedByEmail:    mod.Email,
		PublishedAt:        at,
		SourceSuggestionID: &source,
	}
	s.live[item.ID] = item
	s.gen++
	s.mu.Unlock()

	s.notify()
	return item, true
}

// RemoveSuggestion drops a local suggestion. It reports whether it existed.
func (s *Store) RemoveSuggestion(id string) bool {
	return s.remove(func() bool {
		_, ok := s.pending[id]
		delete(s.pending, id)
		return ok
	})
}

// RemoveLive drops a locally promoted item. It reports whether it existed.
func (s *Store) RemoveLive(id string) bool {
	return s.remove(func() bool {
		_, ok := s.live[id]
		delete(s.live, id)
		return ok
	})
}

func (s *Store) remove(fn func() bool) bool {
	s.mu.Lock()
	ok := fn()
	if ok {
		s.gen++
	}
	s.mu.Unlock()

	if ok {
		s.notify()
	}
	return ok
}

// MergePending returns remote plus the local pending suggestions of kind.
// remote is not modified.
func (s *Store) MergePending(kind domain.ItemKind, remote map[string]domain.Suggestion) map[string]domain.Suggestion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := maps.Clone(remote)
	if out == nil {
		out = make(map[string]domain.Suggestion)
	}
	for id, sug := range s.pending {
		if sug.Kind() == kind {
			out[id] = sug
		}
	}
	return out
}

// MergeLive returns remote plus the locally promoted items of kind.
// remote is not modified.
func (s *Store) MergeLive(kind domain.ItemKind, remote map[string]domain.LiveItem) map[string]domain.LiveItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := maps.Clone(remote)
	if out == nil {
		out = make(map[string]domain.LiveItem)
	}
	for id, item := range s.live {
		if item.Kind() == kind {
			out[id] = item
		}
	}
	return out
}

// Changes returns a channel signalled after every mutation, and a function
// that unregisters it.
func (s *Store) Changes() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	s.listeners[ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		delete(s.listeners, ch)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
