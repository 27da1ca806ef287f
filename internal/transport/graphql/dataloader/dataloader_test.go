package dataloader

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/cypress-connect/internal/domain"
)

type countingSource struct {
	mu      sync.Mutex
	items   map[string]domain.LiveItem
	batches [][]string
}

func (s *countingSource) ResourcesByID(ids []string) map[string]domain.LiveItem {
	s.mu.Lock()
	s.batches = append(s.batches, append([]string(nil), ids...))
	s.mu.Unlock()

	out := make(map[string]domain.LiveItem, len(ids))
	for _, id := range ids {
		if item, ok := s.items[id]; ok {
			out[id] = item
		}
	}
	return out
}

func resource(id, name string) domain.LiveItem {
	return domain.LiveItem{
		ID:      id,
		Content: domain.Resource{Fields: domain.Fields{Name: name, Category: "Food"}},
		Status:  domain.StatusApproved,
	}
}

func TestResourceByID_ConcurrentLoads(t *testing.T) {
	t.Parallel()

	src := &countingSource{items: map[string]domain.LiveItem{
		"R1": resource("R1", "City Food Bank"),
		"R2": resource("R2", "Central Library"),
	}}
	loaders := NewLoaders(src)
	ctx := context.Background()

	ids := []string{"R1", "R2", "R9"}
	got := make([]*domain.LiveItem, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item, err := loaders.ResourceByID.Load(ctx, id)()
			assert.NoError(t, err)
			got[i] = item
		}()
	}
	wg.Wait()

	require.NotNil(t, got[0])
	require.NotNil(t, got[1])
	assert.Equal(t, "City Food Bank", got[0].Name())
	assert.Equal(t, "Central Library", got[1].Name())
	assert.Nil(t, got[2], "a removed resource resolves to nil")
}

func TestResourceByID_LoadMany(t *testing.T) {
	t.Parallel()

	src := &countingSource{items: map[string]domain.LiveItem{"R1": resource("R1", "City Food Bank")}}
	loaders := NewLoaders(src)

	items, errs := loaders.ResourceByID.LoadMany(context.Background(), []string{"R1", "R1", "R2"})()
	assert.Empty(t, errs)
	require.Len(t, items, 3)
	assert.Equal(t, "R1", items[0].ID)
	assert.Equal(t, "R1", items[1].ID)
	assert.Nil(t, items[2])

	src.mu.Lock()
	defer src.mu.Unlock()
	require.Len(t, src.batches, 1, "keys loaded together should share one batch")
	assert.ElementsMatch(t, []string{"R1", "R2"}, src.batches[0])
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	loaders := NewLoaders(&countingSource{})
	ctx := WithLoaders(context.Background(), loaders)
	assert.Same(t, loaders, FromContext(ctx))

	assert.Panics(t, func() { FromContext(context.Background()) })
}
