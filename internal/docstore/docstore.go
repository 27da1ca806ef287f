// Package docstore defines the document store contract the moderation
// pipeline is written against, plus the codec that turns loosely typed
// documents into domain values.
package docstore

import (
	"context"
	"reflect"
	"time"
)

// Document is a single stored record. Data holds JSON-compatible values.
type Document struct {
	ID        string
	Data      map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Op is a filter comparison operator.
type Op string

// OpEqual is the only operator the pipeline needs.
const OpEqual Op = "=="

// Filter restricts a subscription to documents whose Field compares to Value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Eq builds an equality filter.
func Eq(field string, value any) *Filter {
	return &Filter{Field: field, Op: OpEqual, Value: value}
}

// Match reports whether data satisfies the filter. A nil filter matches all.
func (f *Filter) Match(data map[string]any) bool {
	if f == nil {
		return true
	}
	v, ok := data[f.Field]
	if !ok {
		return false
	}
	return reflect.DeepEqual(v, f.Value)
}

// Event is one emission of a subscription. Docs is a full replacement of
// the matching set keyed by id. An event with Err set is terminal.
type Event struct {
	Docs map[string]Document
	Err  error
}

// Subscription is a live query. The first event arrives right after
// Subscribe returns; the channel is closed after a terminal event or Close.
type Subscription interface {
	Events() <-chan Event
	Close()
}

// Store is the document store the pipeline reads and writes. There are no
// multi-document transactions: every write touches exactly one document.
type Store interface {
	Subscribe(ctx context.Context, collection string, filter *Filter) (Subscription, error)
	// Create stores data under a store-assigned id and returns it.
	Create(ctx context.Context, collection string, data map[string]any) (string, error)
	// CreateWithID fails with domain.ErrAlreadyExists if id is taken.
	CreateWithID(ctx context.Context, collection, id string, data map[string]any) error
	// Update merges patch into an existing document. Missing documents
	// yield domain.ErrNotFound.
	Update(ctx context.Context, collection, id string, patch map[string]any) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// Get returns domain.ErrNotFound if the document does not exist.
	Get(ctx context.Context, collection, id string) (Document, error)
}

type serverTimestamp struct{}

// ServerTimestamp is a placeholder value the store replaces with its own
// clock at write time.
var ServerTimestamp any = serverTimestamp{}

// ResolveTimestamps returns a copy of data with every ServerTimestamp
// replaced by now.
func ResolveTimestamps(data map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}
