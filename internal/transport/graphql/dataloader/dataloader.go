// Package dataloader batches the lookups GraphQL resolvers make while
// rendering one response. Loaders cache for their whole lifetime, so a new
// set is created per response; a subscription builds one for every view.
package dataloader

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/heartmarshall/cypress-connect/internal/domain"
)

const (
	maxBatch = 100
	wait     = 2 * time.Millisecond
)

type resourceSource interface {
	ResourcesByID(ids []string) map[string]domain.LiveItem
}

// Loaders holds the per-response loaders.
type Loaders struct {
	// ResourceByID resolves live resources. A removed resource resolves to
	// nil without an error.
	ResourceByID *dataloader.Loader[string, *domain.LiveItem]
}

// NewLoaders creates a fresh set of loaders backed by resources.
func NewLoaders(resources resourceSource) *Loaders {
	return &Loaders{
		ResourceByID: dataloader.NewBatchedLoader(
			newResourceBatchFn(resources),
			dataloader.WithWait[string, *domain.LiveItem](wait),
			dataloader.WithBatchCapacity[string, *domain.LiveItem](maxBatch),
		),
	}
}

func newResourceBatchFn(resources resourceSource) dataloader.BatchFunc[string, *domain.LiveItem] {
	return func(_ context.Context, ids []string) []*dataloader.Result[*domain.LiveItem] {
		found := resources.ResourcesByID(ids)
		results := make([]*dataloader.Result[*domain.LiveItem], len(ids))
		for i, id := range ids {
			r := &dataloader.Result[*domain.LiveItem]{}
			if item, ok := found[id]; ok {
				r.Data = &item
			}
			results[i] = r
		}
		return results
	}
}

type contextKey string

const loadersKey contextKey = "dataloaders"

// WithLoaders stores Loaders in the context.
func WithLoaders(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, l)
}

// FromContext retrieves Loaders from the context.
// Panics if loaders are not present.
func FromContext(ctx context.Context) *Loaders {
	l, ok := ctx.Value(loadersKey).(*Loaders)
	if !ok || l == nil {
		panic("dataloader: loaders not found in context")
	}
	return l
}
