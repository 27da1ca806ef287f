package catalog

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/heartmarshall/cypress-connect/internal/adapter/memstore"
	"github.com/heartmarshall/cypress-connect/internal/docstore"
	"github.com/heartmarshall/cypress-connect/internal/domain"
	"github.com/heartmarshall/cypress-connect/internal/service/aggregator"
	"github.com/heartmarshall/cypress-connect/internal/service/overlay"
)

func res(id, name, category string) domain.LiveItem {
	return domain.LiveItem{
		ID:      id,
		Content: domain.Resource{Fields: domain.Fields{Name: name, Category: category}},
		Status:  domain.StatusApproved,
	}
}

func event(id, name, date string) domain.LiveItem {
	return domain.LiveItem{
		ID:      id,
		Content: domain.Event{Fields: domain.Fields{Name: name, Category: "Festival"}, EventDate: date},
		Status:  domain.StatusApproved,
	}
}

func byID(items ...domain.LiveItem) map[string]domain.LiveItem {
	out := make(map[string]domain.LiveItem, len(items))
	for _, it := range items {
		out[it.ID] = it
	}
	return out
}

func ids(items []domain.LiveItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func equalIDs(t *testing.T, got []domain.LiveItem, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("ids = %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("ids = %v, want %v", g, want)
		}
	}
}

// ---------------------------------------------------------------------------
// Apply
// ---------------------------------------------------------------------------

var fiveItems = byID(
	res("1", "City Food Bank", "Food"),
	res("2", "Cypress Food Pantry", "Food"),
	res("3", "Blood Bank", "Health"),
	res("4", "FOOD BANK annex", "Food"),
	res("5", "Central Library", "Education"),
)

func TestApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"category and search", Filter{Category: "Food", Search: "bank"}, []string{"1", "4"}},
		{"search is case-insensitive", Filter{Search: "BANK"}, []string{"3", "1", "4"}},
		{"category only", Filter{Category: "Food"}, []string{"1", "2", "4"}},
		{"all category matches any", Filter{Category: "All"}, []string{"3", "5", "1", "2", "4"}},
		{"empty filter", Filter{}, []string{"3", "5", "1", "2", "4"}},
		{"search matches category", Filter{Search: "educ"}, []string{"5"}},
		{"no match", Filter{Search: "shelter"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			equalIDs(t, Apply(fiveItems, tt.filter), tt.want...)
		})
	}
}

func TestApply_TiesBrokenByID(t *testing.T) {
	t.Parallel()

	got := Apply(byID(res("b", "Same", "Food"), res("a", "same", "Food")), Filter{})
	equalIDs(t, got, "a", "b")
}

func TestFilter_Normalize(t *testing.T) {
	t.Parallel()

	a := Filter{Search: "  Food   BANK ", Category: "all"}.Normalize()
	b := Filter{Search: "food bank"}.Normalize()
	if a != b {
		t.Errorf("%+v != %+v", a, b)
	}
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

func TestSplitEvents(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	events := []domain.LiveItem{
		event("past", "Old Fair", "2026-04-01"),
		event("soon", "Spring Fair", "May 3, 2026 • 6:00 PM"),
		event("later", "Summer Fest", "2026-07-04T10:00"),
		event("undated", "Cleanup Day", ""),
		event("older", "Winter Fair", "January 5, 2026"),
	}

	upcoming, archived := SplitEvents(events, now)
	equalIDs(t, upcoming, "soon", "later", "undated")
	equalIDs(t, archived, "older", "past")
}

func TestParseWhen(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]When{"": WhenUpcoming, "Archived": WhenArchived, "all": WhenAll} {
		if got, ok := ParseWhen(in); !ok || got != want {
			t.Errorf("ParseWhen(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseWhen("tomorrow"); ok {
		t.Error("unknown value should not parse")
	}
}

// ---------------------------------------------------------------------------
// Featured and counts
// ---------------------------------------------------------------------------

func TestFeatured_SkipsOrphansAndDuplicates(t *testing.T) {
	t.Parallel()

	resources := byID(res("R1", "City Food Bank", "Food"), res("R2", "Central Library", "Education"))
	stars := map[string]domain.StarRecord{
		"M1_R1":   {ID: "M1_R1", ModeratorID: "M1", ResourceID: "R1"},
		"M2_R1":   {ID: "M2_R1", ModeratorID: "M2", ResourceID: "R1"},
		"M1_R2":   {ID: "M1_R2", ModeratorID: "M1", ResourceID: "R2"},
		"M1_GONE": {ID: "M1_GONE", ModeratorID: "M1", ResourceID: "GONE"},
	}

	equalIDs(t, Featured(stars, resources), "R2", "R1")
}

func TestCountsOf(t *testing.T) {
	t.Parallel()

	snap := aggregator.Snapshot{
		PendingResources: map[string]domain.Suggestion{"a": {}, "b": {}},
		PendingEvents:    map[string]domain.Suggestion{"c": {}},
		Resources:        byID(res("R1", "A", "Food")),
		Roster:           map[string]domain.RosterEntry{"M1": {}, "U1": {}, "U2": {}},
	}
	want := Counts{Pending: 3, Resources: 1, Events: 0, Residents: 2}
	if got := CountsOf(snap); got != want {
		t.Errorf("counts = %+v, want %+v", got, want)
	}

	if got := CountsOf(aggregator.Snapshot{}); got.Residents != 0 {
		t.Errorf("residents on empty roster = %d, want 0", got.Residents)
	}
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

type fakeSource struct {
	snap  aggregator.Snapshot
	ready chan struct{}
}

func (f *fakeSource) Latest() aggregator.Snapshot { return f.snap }
func (f *fakeSource) Ready() <-chan struct{}      { return f.ready }

func newTestService(t *testing.T, src *fakeSource, local *overlay.Store) *Service {
	t.Helper()
	svc, err := NewService(slog.Default(), src, local, 8)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestService_QueryMemoizes(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, &fakeSource{}, nil)

	set := ItemSet{Kind: domain.ItemKindResource, Version: Version{Store: 1}, Items: fiveItems}
	a := svc.Query(set, Filter{Search: "bank"})
	b := svc.Query(set, Filter{Search: " BANK ", Category: "All"})
	if len(a) == 0 || &a[0] != &b[0] {
		t.Fatal("identical normalized queries should return the identical slice")
	}

	set.Version.Store = 2
	c := svc.Query(set, Filter{Search: "bank"})
	if &a[0] == &c[0] {
		t.Error("a new version must not reuse the memoized result")
	}
}

func TestService_MergesOverlay(t *testing.T) {
	t.Parallel()

	src := &fakeSource{snap: aggregator.Snapshot{
		Resources: byID(res("R1", "City Food Bank", "Food")),
		Versions:  map[aggregator.Source]uint64{aggregator.SourceResources: 1},
	}}
	local := overlay.New()
	svc := newTestService(t, src, local)

	equalIDs(t, svc.Resources(Filter{}), "R1")

	sug := local.Add(domain.Suggestion{Content: domain.Resource{Fields: domain.Fields{Name: "Hope Health Clinic", Category: "Health"}}})
	item, ok := local.Promote(sug.ID, domain.Moderator{UID: "M1"}, time.Now())
	if !ok {
		t.Fatal("promote failed")
	}

	equalIDs(t, svc.Resources(Filter{}), "R1", item.ID)
	if got := svc.Stats().Resources; got != 2 {
		t.Errorf("resources count = %d, want 2", got)
	}
}

func TestService_EventsAndReady(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		snap: aggregator.Snapshot{
			Events:   byID(event("E1", "Old Fair", "2020-01-01"), event("E2", "Future Fair", "2999-01-01")),
			Versions: map[aggregator.Source]uint64{aggregator.SourceEvents: 3},
		},
		ready: make(chan struct{}),
	}
	svc := newTestService(t, src, nil)

	if svc.IsReady() {
		t.Error("should not be ready before sources emit")
	}
	close(src.ready)
	if !svc.IsReady() {
		t.Error("should be ready")
	}

	equalIDs(t, svc.Events(Filter{}, WhenUpcoming), "E2")
	equalIDs(t, svc.Events(Filter{}, WhenArchived), "E1")
	if got := svc.Events(Filter{}, WhenAll); len(got) != 2 {
		t.Errorf("all events = %v", ids(got))
	}
}

func TestService_EventsMemoized(t *testing.T) {
	t.Parallel()

	src := &fakeSource{snap: aggregator.Snapshot{
		Events: byID(
			event("E1", "Old Fair", "2020-01-01"),
			event("E2", "Future Fair", "2999-01-01"),
			event("E3", "Winter Market", "2999-12-01"),
		),
		Versions: map[aggregator.Source]uint64{aggregator.SourceEvents: 1},
	}}
	svc := newTestService(t, src, nil)
	now := time.Date(2026, 10, 18, 12, 0, 30, 0, time.UTC)
	svc.now = func() time.Time { return now }

	a := svc.Events(Filter{}, WhenUpcoming)
	b := svc.Events(Filter{Category: "All"}, "")
	equalIDs(t, a, "E2", "E3")
	if &a[0] != &b[0] {
		t.Fatal("repeated upcoming queries should return the identical slice")
	}

	now = now.Add(10 * time.Second)
	if c := svc.Events(Filter{}, WhenUpcoming); &a[0] != &c[0] {
		t.Error("queries within one window should share the result")
	}

	archived := svc.Events(Filter{}, WhenArchived)
	equalIDs(t, archived, "E1")
	if again := svc.Events(Filter{}, WhenArchived); &archived[0] != &again[0] {
		t.Error("repeated archived queries should return the identical slice")
	}

	now = now.Add(eventWindow)
	if d := svc.Events(Filter{}, WhenUpcoming); &a[0] == &d[0] {
		t.Error("a new window must recompute the split")
	}
}

func TestService_RecoversAfterSourceFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memstore.New()

	agg, err := aggregator.Open(ctx, store, slog.Default(), aggregator.CatalogSpecs()...)
	if err != nil {
		t.Fatalf("open aggregator: %v", err)
	}
	t.Cleanup(agg.Close)

	svc, err := NewService(slog.Default(), agg, nil, 8)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := svc.WaitReady(waitCtx); err != nil {
		t.Fatalf("catalog never became ready: %v", err)
	}

	store.Break(domain.CollectionResources, errors.New("connection reset"))
	item := res("R1", "City Food Bank", "Food")
	if err := store.CreateWithID(ctx, domain.CollectionResources, item.ID, docstore.EncodeLiveItem(item)); err != nil {
		t.Fatalf("create: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if got := svc.Resources(Filter{}); len(got) == 1 && len(svc.Errors()) == 0 {
			equalIDs(t, got, "R1")
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("catalog did not recover: resources=%v errors=%v", ids(svc.Resources(Filter{})), svc.Errors())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestService_StarsAndResourcesByID(t *testing.T) {
	t.Parallel()

	src := &fakeSource{snap: aggregator.Snapshot{
		Resources: byID(res("R1", "City Food Bank", "Food"), res("R2", "Central Library", "Education")),
		Starred: map[string]domain.StarRecord{
			"M2_R1": {ID: "M2_R1", ModeratorID: "M2", ResourceID: "R1"},
			"M1_R9": {ID: "M1_R9", ModeratorID: "M1", ResourceID: "R9"},
		},
		Versions: map[aggregator.Source]uint64{aggregator.SourceResources: 1},
	}}
	svc := newTestService(t, src, nil)

	stars := svc.Stars()
	if len(stars) != 2 || stars[0].ID != "M1_R9" || stars[1].ID != "M2_R1" {
		t.Errorf("stars = %+v", stars)
	}

	found := svc.ResourcesByID([]string{"R1", "R9"})
	if len(found) != 1 || found["R1"].Name() != "City Food Bank" {
		t.Errorf("resources by id = %+v", found)
	}
}
