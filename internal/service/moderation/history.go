package moderation

import (
	"sync"
	"time"

	"github.com/heartmarshall/cypress-connect/internal/domain"
)

// HistoryEntry records one approval or rejection.
type HistoryEntry struct {
	Action       Action
	Kind         domain.ItemKind
	SuggestionID string
	LiveItemID   string
	Name         string
	ModeratorID  string
	At           time.Time
}

// History keeps the most recent approvals and rejections, newest first.
// It is process-local and lost on restart.
type History struct {
	mu        sync.RWMutex
	limit     int
	approved  []HistoryEntry
	rejected  []HistoryEntry
	listeners map[chan struct{}]struct{}
}

// NewHistory creates a History holding at most limit entries per list.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit, listeners: make(map[chan struct{}]struct{})}
}

func (h *History) record(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e.Action == ActionReject {
		h.rejected = prepend(h.rejected, e, h.limit)
	} else {
		h.approved = prepend(h.approved, e, h.limit)
	}
	for ch := range h.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Changes returns a channel signalled after every recorded entry, and a
// function that unregisters it.
func (h *History) Changes() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	h.listeners[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.listeners, ch)
		h.mu.Unlock()
	}
}

// Approved returns recent approvals, newest first.
func (h *History) Approved() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]HistoryEntry(nil), h.approved...)
}

// Rejected returns recent rejections, newest first.
func (h *History) Rejected() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]HistoryEntry(nil), h.rejected...)
}

func prepend(list []HistoryEntry, e HistoryEntry, limit int) []HistoryEntry {
	out := make([]HistoryEntry, 0, min(len(list)+1, limit))
	out = append(out, e)
	for _, old := range list {
		if len(out) == limit {
			break
		}
		out = append(out, old)
	}
	return out
}
