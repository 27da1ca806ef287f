// Package aggregator merges several live document subscriptions into one
// typed, versioned snapshot.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/heartmarshall/cypress-connect/internal/docstore"
	"github.com/heartmarshall/cypress-connect/internal/domain"
)

// Resubscription delays after a source fails. The delay resets once the
// source emits again.
const (
	retryInitialInterval = 100 * time.Millisecond
	retryMaxInterval     = 30 * time.Second
)

type update struct {
	spec  Spec
	event docstore.Event
}

// Aggregator owns one subscription per Spec. A single merge goroutine
// applies events, so snapshot construction never interleaves. A failed
// source is resubscribed with backoff until Close.
type Aggregator struct {
	log   *slog.Logger
	store docstore.Store
	specs []Spec

	in      chan update
	updates chan Snapshot
	ready   chan struct{}

	mu       sync.RWMutex
	latest   Snapshot
	reported map[Source]bool

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Open subscribes to every source and starts merging. A source whose
// Subscribe call fails is recorded as failed and retried; the others still
// run.
func Open(ctx context.Context, store docstore.Store, log *slog.Logger, specs ...Spec) (*Aggregator, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("open aggregator: %w", domain.NewValidationError("specs", "at least one required"))
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a := &Aggregator{
		log:      log.With("service", "aggregator"),
		store:    store,
		specs:    specs,
		in:       make(chan update),
		updates:  make(chan Snapshot, 1),
		ready:    make(chan struct{}),
		latest:   emptySnapshot(),
		reported: make(map[Source]bool, len(specs)),
		cancel:   cancel,
	}

	a.wg.Add(1)
	go a.merge(runCtx)

	for _, spec := range specs {
		sub, err := store.Subscribe(ctx, spec.Collection, spec.Filter)
		if err != nil {
			a.log.WarnContext(ctx, "subscribe failed",
				slog.String("source", string(spec.Source)),
				slog.String("error", err.Error()),
			)
			err = fmt.Errorf("subscribe %s: %w", spec.Collection, err)
		}

		a.wg.Add(1)
		go a.follow(runCtx, spec, sub, err)
	}

	return a, nil
}

// Updates delivers snapshots. Only the newest unread snapshot is kept.
// The channel is closed by Close.
func (a *Aggregator) Updates() <-chan Snapshot { return a.updates }

// Ready is closed once every source has emitted or failed.
func (a *Aggregator) Ready() <-chan struct{} { return a.ready }

// Latest returns the most recent snapshot.
func (a *Aggregator) Latest() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest
}

// Close cancels every subscription together and waits for the merge loop
// to exit. Safe to call more than once.
func (a *Aggregator) Close() {
	a.closeOnce.Do(func() {
		a.cancel()
		a.wg.Wait()
		close(a.updates)
	})
}

// follow forwards one source's events, resubscribing after every failure.
// sub is nil when the initial subscribe failed with err.
func (a *Aggregator) follow(ctx context.Context, spec Spec, sub docstore.Subscription, err error) {
	defer a.wg.Done()

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = retryInitialInterval
	retry.MaxInterval = retryMaxInterval
	retry.MaxElapsedTime = 0
	retry.Reset()

	for {
		if err != nil {
			if !a.send(ctx, update{spec: spec, event: docstore.Event{Err: err}}) {
				return
			}
		} else if !a.drain(ctx, spec, sub, retry) {
			return
		}

		wait := retry.NextBackOff()
		a.log.Info("resubscribing",
			slog.String("source", string(spec.Source)),
			slog.Duration("after", wait),
		)
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}

		sub, err = a.store.Subscribe(ctx, spec.Collection, spec.Filter)
		if err != nil {
			err = fmt.Errorf("subscribe %s: %w", spec.Collection, err)
		}
	}
}

// drain forwards sub's events until the subscription ends. It returns false
// once ctx is done.
func (a *Aggregator) drain(ctx context.Context, spec Spec, sub docstore.Subscription, retry backoff.BackOff) bool {
	defer sub.Close()

	events := sub.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return ctx.Err() == nil
			}
			if ev.Err == nil {
				retry.Reset()
			}
			if !a.send(ctx, update{spec: spec, event: ev}) {
				return false
			}
			if ev.Err != nil {
				return true
			}
		case <-ctx.Done():
			return false
		}
	}
}

func (a *Aggregator) send(ctx context.Context, u update) bool {
	select {
	case a.in <- u:
		return true
	case <-ctx.Done():
		return false
	}
}

func (a *Aggregator) merge(ctx context.Context) {
	defer a.wg.Done()

	for {
		select {
		case u := <-a.in:
			a.apply(u)
		case <-ctx.Done():
			return
		}
	}
}

// apply is only called from the merge goroutine.
func (a *Aggregator) apply(u update) {
	a.mu.RLock()
	next := a.latest
	a.mu.RUnlock()

	src := u.spec.Source
	next.Version++
	next.Versions = maps.Clone(next.Versions)
	next.Versions[src]++

	if u.event.Err != nil {
		next.Errors = maps.Clone(next.Errors)
		next.Errors[src] = u.event.Err
		a.log.Error("subscription failed",
			slog.String("source", string(src)),
			slog.String("error", u.event.Err.Error()),
		)
	} else {
		if _, failing := next.Errors[src]; failing {
			next.Errors = maps.Clone(next.Errors)
			delete(next.Errors, src)
			a.log.Info("subscription recovered", slog.String("source", string(src)))
		}
		a.replace(&next, src, u.event.Docs)
	}

	a.reported[src] = true
	next.Ready = len(a.reported) == len(a.specs)

	a.mu.Lock()
	a.latest = next
	a.mu.Unlock()

	if next.Ready {
		select {
		case <-a.ready:
		default:
			close(a.ready)
		}
	}
	a.publish(next)
}

// publish is latest-wins: an unread older snapshot is dropped.
func (a *Aggregator) publish(s Snapshot) {
	select {
	case a.updates <- s:
		return
	default:
	}
	select {
	case <-a.updates:
	default:
	}
	a.updates <- s
}

func (a *Aggregator) replace(s *Snapshot, src Source, docs map[string]docstore.Document) {
	switch src {
	case SourcePendingResources:
		s.PendingResources = decodeAll(a.log, src, docs, func(d docstore.Document) (domain.Suggestion, error) {
			return docstore.DecodeSuggestion(domain.ItemKindResource, d)
		})
	case SourcePendingEvents:
		s.PendingEvents = decodeAll(a.log, src, docs, func(d docstore.Document) (domain.Suggestion, error) {
			return docstore.DecodeSuggestion(domain.ItemKindEvent, d)
		})
	case SourceResources:
		s.Resources = decodeAll(a.log, src, docs, func(d docstore.Document) (domain.LiveItem, error) {
			return docstore.DecodeLiveItem(domain.ItemKindResource, d)
		})
	case SourceEvents:
		s.Events = decodeAll(a.log, src, docs, func(d docstore.Document) (domain.LiveItem, error) {
			return docstore.DecodeLiveItem(domain.ItemKindEvent, d)
		})
	case SourceStarred:
		s.Starred = decodeAll(a.log, src, docs, docstore.DecodeStar)
	case SourceRoster:
		s.Roster = decodeAll(a.log, src, docs, docstore.DecodeRosterEntry)
	}
}

// decodeAll converts raw documents, skipping and logging malformed ones.
func decodeAll[T any](log *slog.Logger, src Source, docs map[string]docstore.Document, decode func(docstore.Document) (T, error)) map[string]T {
	out := make(map[string]T, len(docs))
	for id, doc := range docs {
		v, err := decode(doc)
		if err != nil {
			log.Warn("skipping malformed document",
				slog.String("source", string(src)),
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		out[id] = v
	}
	return out
}
