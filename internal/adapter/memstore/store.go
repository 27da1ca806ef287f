// Package memstore is an in-process docstore.Store with live subscriptions.
// It backs tests and the "memory" driver for local development.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/cypress-connect/internal/docstore"
	"github.com/heartmarshall/cypress-connect/internal/domain"
)

// Store keeps collections in memory. All methods are safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]docstore.Document
	subs        map[*subscription]struct{}
	now         func() time.Time

	// Hooks let tests inject failures and observe writes.
	failures map[string]error
	writes   int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]docstore.Document),
		subs:        make(map[*subscription]struct{}),
		failures:    make(map[string]error),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the clock used for server timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// FailNext makes the next call of op ("create", "update", "delete", "get")
// on collection return err.
func (s *Store) FailNext(op, collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op+":"+collection] = err
}

// Writes returns the number of successful writes since creation.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Subscribers returns the number of open subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Len returns the number of documents in a collection.
func (s *Store) Len(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[collection])
}

// takeFailure must be called with mu held.
func (s *Store) takeFailure(op, collection string) error {
	key := op + ":" + collection
	if err, ok := s.failures[key]; ok {
		delete(s.failures, key)
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

func (s *Store) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.CreateWithID(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) CreateWithID(ctx context.Context, collection, id string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure("create", collection); err != nil {
		return err
	}

	coll := s.collection(collection)
	if _, exists := coll[id]; exists {
		return fmt.Errorf("%s %s: %w", collection, id, domain.ErrAlreadyExists)
	}

	now := s.now()
	coll[id] = docstore.Document{
		ID:        id,
		Data:      docstore.ResolveTimestamps(data, now),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.committed(collection)
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure("update", collection); err != nil {
		return err
	}

	coll := s.collection(collection)
	doc, ok := coll[id]
	if !ok {
		return fmt.Errorf("%s %s: %w", collection, id, domain.ErrNotFound)
	}

	now := s.now()
	merged := maps.Clone(doc.Data)
	maps.Copy(merged, docstore.ResolveTimestamps(patch, now))
	doc.Data = merged
	doc.UpdatedAt = now
	coll[id] = doc
	s.committed(collection)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure("delete", collection); err != nil {
		return err
	}

	coll := s.collection(collection)
	if _, ok := coll[id]; !ok {
		return nil
	}
	delete(coll, id)
	s.committed(collection)
	return nil
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure("get", collection); err != nil {
		return docstore.Document{}, err
	}

	doc, ok := s.collections[collection][id]
	if !ok {
		return docstore.Document{}, fmt.Errorf("%s %s: %w", collection, id, domain.ErrNotFound)
	}
	return copyDoc(doc), nil
}

// Subscribe registers a live query. The current matching set is delivered
// as the first event.
func (s *Store) Subscribe(ctx context.Context, collection string, filter *docstore.Filter) (docstore.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &subscription{
		store:      s,
		collection: collection,
		filter:     filter,
		out:        make(chan docstore.Event, 1),
	}
	s.subs[sub] = struct{}{}
	sub.deliver(docstore.Event{Docs: s.matching(collection, filter)})
	return sub, nil
}

// Break terminates every subscription on collection with err, simulating a
// listener failure.
func (s *Store) Break(collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subs {
		if sub.collection == collection {
			sub.deliver(docstore.Event{Err: err})
			sub.closeLocked()
		}
	}
}

func (s *Store) collection(name string) map[string]docstore.Document {
	coll, ok := s.collections[name]
	if !ok {
		coll = make(map[string]docstore.Document)
		s.collections[name] = coll
	}
	return coll
}

// committed notifies subscribers of collection. Must be called with mu held.
func (s *Store) committed(collection string) {
	s.writes++
	for sub := range s.subs {
		if sub.collection == collection {
			sub.deliver(docstore.Event{Docs: s.matching(collection, sub.filter)})
		}
	}
}

func (s *Store) matching(collection string, filter *docstore.Filter) map[string]docstore.Document {
	out := make(map[string]docstore.Document)
	for id, doc := range s.collections[collection] {
		if filter.Match(doc.Data) {
			out[id] = copyDoc(doc)
		}
	}
	return out
}

func copyDoc(doc docstore.Document) docstore.Document {
	doc.Data = maps.Clone(doc.Data)
	return doc
}

// ---------------------------------------------------------------------------
// subscription
// ---------------------------------------------------------------------------

type subscription struct {
	store      *Store
	collection string
	filter     *docstore.Filter
	out        chan docstore.Event
	closed     bool
}

func (s *subscription) Events() <-chan docstore.Event { return s.out }

func (s *subscription) Close() {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.closeLocked()
}

func (s *subscription) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	delete(s.store.subs, s)
	close(s.out)
}

// deliver keeps only the newest event buffered: every event is a full
// replacement, so an unread older one is safe to drop. A pending terminal
// event is never replaced.
func (s *subscription) deliver(ev docstore.Event) {
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
