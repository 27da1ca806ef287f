// Package dashboard builds the live moderator view: pending suggestions,
// live items, the moderator's stars, counts, and recent history. A Dashboard
// owns its subscriptions and tears them all down on Close.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/heartmarshall/cypress-connect/internal/docstore"
	"github.com/heartmarshall/cypress-connect/internal/domain"
	"github.com/heartmarshall/cypress-connect/internal/service/aggregator"
	"github.com/heartmarshall/cypress-connect/internal/service/catalog"
	"github.com/heartmarshall/cypress-connect/internal/service/moderation"
	"github.com/heartmarshall/cypress-connect/internal/service/overlay"
)

type historySource interface {
	Approved() []moderation.HistoryEntry
	Rejected() []moderation.HistoryEntry
	Changes() (<-chan struct{}, func())
}

// Deps are the collaborators of a Dashboard.
type Deps struct {
	Store   docstore.Store
	Overlay *overlay.Store
	History historySource
}

// View is one immutable rendering of the dashboard.
type View struct {
	Version   uint64
	Moderator domain.Moderator

	PendingResources []domain.Suggestion
	PendingEvents    []domain.Suggestion
	Resources        []domain.LiveItem
	Events           []domain.LiveItem
	Starred          []domain.StarRecord
	StarredIDs       map[string]bool

	Counts           catalog.Counts
	RecentlyApproved []moderation.HistoryEntry
	RecentlyRejected []moderation.HistoryEntry

	// Errors maps failed sources to their error text.
	Errors map[aggregator.Source]string
	Ready  bool
}

// Dashboard is an open moderator view.
type Dashboard struct {
	log       *slog.Logger
	agg       *aggregator.Aggregator
	overlay   *overlay.Store
	history   historySource
	moderator domain.Moderator

	updates chan View

	mu      sync.RWMutex
	latest  View
	version uint64

	stopOverlay func()
	stopHistory func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// Open subscribes to the moderator's sources and starts building views.
// Only leaders may open a dashboard.
func Open(ctx context.Context, log *slog.Logger, deps Deps, mod domain.Moderator) (*Dashboard, error) {
	if mod.UID == "" {
		return nil, fmt.Errorf("open dashboard: %w", domain.ErrUnauthorized)
	}
	if !mod.IsLeader() {
		return nil, fmt.Errorf("open dashboard: %w", domain.ErrForbidden)
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("open dashboard: %w", domain.NewValidationError("store", "required"))
	}

	local := deps.Overlay
	if local == nil {
		local = overlay.New()
	}
	var history historySource = deps.History
	if history == nil {
		history = moderation.NewHistory(0)
	}

	agg, err := aggregator.Open(ctx, deps.Store, log, aggregator.ModeratorSpecs(mod.UID)...)
	if err != nil {
		return nil, fmt.Errorf("open dashboard: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	overlayChanges, stopOverlay := local.Changes()
	historyChanges, stopHistory := history.Changes()

	d := &Dashboard{
		log:         log.With("service", "dashboard", slog.String("moderator_id", mod.UID)),
		agg:         agg,
		overlay:     local,
		history:     history,
		moderator:   mod,
		updates:     make(chan View, 1),
		stopOverlay: stopOverlay,
		stopHistory: stopHistory,
		cancel:      cancel,
	}
	d.rebuild(agg.Latest())

	d.wg.Add(1)
	go d.run(runCtx, overlayChanges, historyChanges)

	d.log.InfoContext(ctx, "dashboard opened")
	return d, nil
}

// Opener opens dashboards over one set of dependencies.
type Opener struct {
	log  *slog.Logger
	deps Deps
}

// NewOpener creates an Opener.
func NewOpener(log *slog.Logger, deps Deps) *Opener {
	return &Opener{log: log, deps: deps}
}

// Open opens a dashboard for mod. The caller must Close it.
func (o *Opener) Open(ctx context.Context, mod domain.Moderator) (*Dashboard, error) {
	return Open(ctx, o.log, o.deps, mod)
}

// Updates delivers views. Only the newest unread view is kept. The channel
// is closed by Close.
func (d *Dashboard) Updates() <-chan View { return d.updates }

// Latest returns the most recent view.
func (d *Dashboard) Latest() View {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.latest
}

// WaitReady blocks until every source has emitted or failed, then returns
// the view built from that state.
func (d *Dashboard) WaitReady(ctx context.Context) (View, error) {
	select {
	case <-d.agg.Ready():
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	return d.rebuild(d.agg.Latest()), nil
}

// Close cancels every subscription and stops producing views. Writes
// already issued through the moderation engine are unaffected. Safe to
// call more than once.
func (d *Dashboard) Close() {
	d.closeOnce.Do(func() {
		d.cancel()
		d.stopOverlay()
		d.stopHistory()
		d.agg.Close()
		d.wg.Wait()
		close(d.updates)
		d.log.Info("dashboard closed")
	})
}

func (d *Dashboard) run(ctx context.Context, overlayChanges, historyChanges <-chan struct{}) {
	defer d.wg.Done()

	snaps := d.agg.Updates()
	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			d.publish(d.rebuild(snap))
		case <-overlayChanges:
			d.publish(d.rebuild(d.agg.Latest()))
		case <-historyChanges:
			d.publish(d.rebuild(d.agg.Latest()))
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dashboard) publish(v View) {
	select {
	case <-d.updates:
	default:
	}
	d.updates <- v
}

func (d *Dashboard) rebuild(snap aggregator.Snapshot) View {
	merged := catalog.Merge(snap, d.overlay)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.version++
	v := build(merged, d.moderator)
	v.Version = d.version
	v.RecentlyApproved = d.history.Approved()
	v.RecentlyRejected = d.history.Rejected()
	d.latest = v
	return v
}

func build(snap aggregator.Snapshot, mod domain.Moderator) View {
	v := View{
		Moderator:        mod,
		PendingResources: sortedSuggestions(snap.PendingResources),
		PendingEvents:    sortedSuggestions(snap.PendingEvents),
		Resources:        catalog.Apply(snap.Resources, catalog.Filter{}),
		Events:           catalog.Apply(snap.Events, catalog.Filter{}),
		Starred:          sortedStars(snap.Starred),
		StarredIDs:       snap.StarredResourceIDs(),
		Counts:           catalog.CountsOf(snap),
		Errors:           make(map[aggregator.Source]string, len(snap.Errors)),
		Ready:            snap.Ready,
	}
	for src, err := range snap.Errors {
		v.Errors[src] = err.Error()
	}
	return v
}

// sortedSuggestions orders suggestions oldest first.
func sortedSuggestions(m map[string]domain.Suggestion) []domain.Suggestion {
	out := make([]domain.Suggestion, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sortedStars(m map[string]domain.StarRecord) []domain.StarRecord {
	out := make([]domain.StarRecord, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Snapshot.Name), strings.ToLower(out[j].Snapshot.Name)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out
}
