package catalog

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/heartmarshall/cypress-connect/internal/domain"
	"github.com/heartmarshall/cypress-connect/internal/service/aggregator"
	"github.com/heartmarshall/cypress-connect/internal/service/overlay"
)

// DefaultCacheSize is the number of memoized query results kept.
const DefaultCacheSize = 256

// eventWindow is the granularity of the upcoming/archived split. Within one
// window the same event query returns the same slice.
const eventWindow = time.Minute

type snapshotSource interface {
	Latest() aggregator.Snapshot
	Ready() <-chan struct{}
}

// Version identifies the contents of an ItemSet.
type Version struct {
	Store   uint64
	Overlay uint64
}

// ItemSet is a versioned set of live items of one kind. Two sets with the
// same kind and version hold the same items.
type ItemSet struct {
	Kind    domain.ItemKind
	Version Version
	Items   map[string]domain.LiveItem
}

type queryKey struct {
	kind    domain.ItemKind
	version Version
	filter  Filter

	// Set only for event selections.
	when   When
	window int64
}

// Service serves catalog queries from a live aggregated snapshot merged with
// the local overlay.
type Service struct {
	log     *slog.Logger
	source  snapshotSource
	overlay *overlay.Store
	cache   *lru.Cache[queryKey, []domain.LiveItem]
	now     func() time.Time
}

// NewService creates a catalog service. A cacheSize of zero or less uses
// DefaultCacheSize.
func NewService(log *slog.Logger, source snapshotSource, local *overlay.Store, cacheSize int) (*Service, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[queryKey, []domain.LiveItem](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("catalog: create cache: %w", err)
	}
	if local == nil {
		local = overlay.New()
	}
	return &Service{
		log:     log.With("service", "catalog"),
		source:  source,
		overlay: local,
		cache:   cache,
		now:     time.Now,
	}, nil
}

// Query applies f to set. Results are memoized on the set's kind and version
// and the normalized filter, so repeated identical queries return the same
// slice. Callers must not modify the result.
func (s *Service) Query(set ItemSet, f Filter) []domain.LiveItem {
	key := queryKey{kind: set.Kind, version: set.Version, filter: f.Normalize()}
	if items, ok := s.cache.Get(key); ok {
		return items
	}
	items := Apply(set.Items, key.filter)
	s.cache.Add(key, items)
	return items
}

// WaitReady blocks until every catalog source has emitted or failed.
func (s *Service) WaitReady(ctx context.Context) error {
	select {
	case <-s.source.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsReady reports whether every catalog source has emitted or failed.
func (s *Service) IsReady() bool {
	select {
	case <-s.source.Ready():
		return true
	default:
		return false
	}
}

// Snapshot returns the latest snapshot with the overlay merged in.
func (s *Service) Snapshot() aggregator.Snapshot {
	return Merge(s.source.Latest(), s.overlay)
}

// Resources returns live resources matching f.
func (s *Service) Resources(f Filter) []domain.LiveItem {
	return s.Query(s.itemSet(domain.ItemKindResource), f)
}

// Events returns live events matching f, narrowed by when.
func (s *Service) Events(f Filter, when When) []domain.LiveItem {
	if when == "" {
		when = WhenUpcoming
	}
	set := s.itemSet(domain.ItemKindEvent)
	now := s.now().Truncate(eventWindow)

	key := queryKey{
		kind:    set.Kind,
		version: set.Version,
		filter:  f.Normalize(),
		when:    when,
		window:  now.Unix(),
	}
	if items, ok := s.cache.Get(key); ok {
		return items
	}
	items := SelectEvents(s.Query(set, f), when, now)
	s.cache.Add(key, items)
	return items
}

// Featured returns the starred resources.
func (s *Service) Featured() []domain.LiveItem {
	snap := s.Snapshot()
	return Featured(snap.Starred, snap.Resources)
}

// Stars returns every star record ordered by id.
func (s *Service) Stars() []domain.StarRecord {
	snap := s.source.Latest()
	out := make([]domain.StarRecord, 0, len(snap.Starred))
	for _, rec := range snap.Starred {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b domain.StarRecord) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// ResourcesByID looks up live resources, overlay included. Missing ids are
// absent from the result.
func (s *Service) ResourcesByID(ids []string) map[string]domain.LiveItem {
	set := s.itemSet(domain.ItemKindResource)
	out := make(map[string]domain.LiveItem, len(ids))
	for _, id := range ids {
		if item, ok := set.Items[id]; ok {
			out[id] = item
		}
	}
	return out
}

// Stats returns the aggregate counts.
func (s *Service) Stats() Counts {
	return CountsOf(s.Snapshot())
}

// Errors returns the errors of sources that are currently failing.
func (s *Service) Errors() map[aggregator.Source]error {
	return s.source.Latest().Errors
}

func (s *Service) itemSet(kind domain.ItemKind) ItemSet {
	// The generation is read before merging; a concurrent overlay change then
	// lands under a newer key instead of being cached under a stale one.
	gen := s.overlay.Generation()
	snap := s.source.Latest()
	return ItemSet{
		Kind:    kind,
		Version: Version{Store: snap.LiveVersion(kind), Overlay: gen},
		Items:   s.overlay.MergeLive(kind, snap.Live(kind)),
	}
}
