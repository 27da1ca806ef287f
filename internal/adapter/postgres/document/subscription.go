package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/heartmarshall/cypress-connect/internal/docstore"
)

// Subscribe registers a live query. The current matching set is delivered
// as the first event; every change to collection delivers a fresh set.
func (s *Store) Subscribe(ctx context.Context, collection string, filter *docstore.Filter) (docstore.Subscription, error) {
	sub := &subscription{
		store:      s,
		collection: collection,
		filter:     filter,
		out:        make(chan docstore.Event, 1),
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	docs, err := s.List(ctx, collection, filter)
	if err != nil {
		s.forget(sub)
		return nil, fmt.Errorf("subscribe %s: %w", collection, err)
	}
	sub.deliverLocked(docstore.Event{Docs: docs})
	return sub, nil
}

// Subscribers returns the number of open subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Store) watching(collection string) []*subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*subscription
	for sub := range s.subs {
		if collection == "" || sub.collection == collection {
			out = append(out, sub)
		}
	}
	return out
}

func (s *Store) forget(sub *subscription) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}

func (s *Store) refresh(ctx context.Context, collection string) {
	for _, sub := range s.watching(collection) {
		sub.refresh(ctx)
	}
}

// failAll ends every subscription with err.
func (s *Store) failAll(err error) {
	for _, sub := range s.watching("") {
		sub.fail(err)
	}
}

// ---------------------------------------------------------------------------
// subscription
// ---------------------------------------------------------------------------

type subscription struct {
	store      *Store
	collection string
	filter     *docstore.Filter

	// mu serializes query-and-deliver so an older result never replaces a
	// newer one.
	mu     sync.Mutex
	out    chan docstore.Event
	closed bool
}

func (s *subscription) Events() <-chan docstore.Event { return s.out }

func (s *subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *subscription) refresh(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	docs, err := s.store.List(ctx, s.collection, s.filter)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		s.store.log.Warn("live query failed",
			slog.String("collection", s.collection),
			slog.String("error", err.Error()),
		)
		s.deliverLocked(docstore.Event{Err: err})
		s.closeLocked()
		return
	}
	s.deliverLocked(docstore.Event{Docs: docs})
}

func (s *subscription) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliverLocked(docstore.Event{Err: err})
	s.closeLocked()
}

func (s *subscription) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	s.store.forget(s)
	close(s.out)
}

// deliverLocked keeps only the newest event buffered. A pending terminal
// event is never replaced.
func (s *subscription) deliverLocked(ev docstore.Event) {
	if s.closed {
		return
	}
	select {
	case s.out <- ev:
		return
	default:
	}
	select {
	case old := <-s.out:
		if old.Err != nil {
			s.out <- old
			return
		}
	default:
	}
	s.out <- ev
}
