// Package document implements the document store on a single PostgreSQL
// table of JSONB documents. Live queries are re-run whenever the change bus
// reports a write to their collection.
package document

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/cypress-connect/internal/adapter/postgres"
	"github.com/heartmarshall/cypress-connect/internal/docstore"
	"github.com/heartmarshall/cypress-connect/internal/domain"
)

const table = "documents"

var (
	builder    = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	docColumns = []string{"id", "data", "created_at", "updated_at"}
)

type changeBus interface {
	Publish(ctx context.Context, collection string) error
	Listen(ctx context.Context) (<-chan string, error)
}

// Store is a docstore.Store backed by PostgreSQL.
type Store struct {
	log *slog.Logger
	db  postgres.Querier
	bus changeBus
	now func() time.Time

	mu   sync.Mutex
	subs map[*subscription]struct{}
}

var _ docstore.Store = (*Store)(nil)

// New creates a store. With a nil bus, subscribers only see writes made
// through this Store.
func New(log *slog.Logger, db postgres.Querier, bus changeBus) *Store {
	return &Store{
		log:  log.With("component", "document_store"),
		db:   db,
		bus:  bus,
		now:  func() time.Time { return time.Now().UTC() },
		subs: make(map[*subscription]struct{}),
	}
}

// Run follows the change bus and refreshes live queries until ctx is done.
// It returns an error if the bus cannot be followed.
func (s *Store) Run(ctx context.Context) error {
	if s.bus == nil {
		<-ctx.Done()
		return nil
	}

	changes, err := s.bus.Listen(ctx)
	if err != nil {
		return fmt.Errorf("document store: listen: %w", err)
	}

	for {
		select {
		case coll, ok := <-changes:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				s.failAll(fmt.Errorf("change bus closed: %w", domain.ErrUnavailable))
				return fmt.Errorf("document store: change bus closed")
			}
			s.refresh(ctx, coll)
		case <-ctx.Done():
			return nil
		}
	}
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
	now := s.now()
	payload, err := json.Marshal(docstore.ResolveTimestamps(data, now))
	if err != nil {
		return fmt.Errorf("%s %s: encode: %w", collection, id, err)
	}

	query, args, err := builder.
		Insert(table).
		Columns("collection", "id", "data", "created_at", "updated_at").
		Values(collection, id, string(payload), now, now).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s %s: build insert: %w", collection, id, err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, collection, id)
	}
	s.changed(ctx, collection)
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	now := s.now()
	payload, err := json.Marshal(docstore.ResolveTimestamps(patch, now))
	if err != nil {
		return fmt.Errorf("%s %s: encode: %w", collection, id, err)
	}

	query, args, err := builder.
		Update(table).
		Set("data", sq.Expr("data || ?::jsonb", string(payload))).
		Set("updated_at", now).
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s %s: build update: %w", collection, id, err)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return postgres.MapError(err, collection, id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", collection, id, domain.ErrNotFound)
	}
	s.changed(ctx, collection)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	query, args, err := builder.
		Delete(table).
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s %s: build delete: %w", collection, id, err)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return postgres.MapError(err, collection, id)
	}
	if tag.RowsAffected() > 0 {
		s.changed(ctx, collection)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	query, args, err := builder.
		Select(docColumns...).
		From(table).
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return docstore.Document{}, fmt.Errorf("%s %s: build select: %w", collection, id, err)
	}

	doc, err := scanDocument(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return docstore.Document{}, postgres.MapError(err, collection, id)
	}
	return doc, nil
}

// List returns the documents of collection matching filter.
func (s *Store) List(ctx context.Context, collection string, filter *docstore.Filter) (map[string]docstore.Document, error) {
	q := builder.
		Select(docColumns...).
		From(table).
		Where(sq.Eq{"collection": collection})

	if filter != nil {
		cond, err := json.Marshal(map[string]any{filter.Field: filter.Value})
		if err != nil {
			return nil, fmt.Errorf("%s: encode filter: %w", collection, err)
		}
		q = q.Where(sq.Expr("data @> ?::jsonb", string(cond)))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build select: %w", collection, err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, collection, "*")
	}
	defer rows.Close()

	out := make(map[string]docstore.Document)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, postgres.MapError(err, collection, "*")
		}
		out[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, collection, "*")
	}
	return out, nil
}

func scanDocument(row pgx.Row) (docstore.Document, error) {
	var (
		doc docstore.Document
		raw []byte
	)
	if err := row.Scan(&doc.ID, &raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return docstore.Document{}, err
	}
	if err := json.Unmarshal(raw, &doc.Data); err != nil {
		return docstore.Document{}, fmt.Errorf("decode %s: %w", doc.ID, err)
	}
	if doc.Data == nil {
		doc.Data = map[string]any{}
	}
	return doc, nil
}

// changed reports a committed write. Failing to announce it is logged, not
// returned: the write itself succeeded.
func (s *Store) changed(ctx context.Context, collection string) {
	if s.bus == nil {
		s.refresh(ctx, collection)
		return
	}
	if err := s.bus.Publish(ctx, collection); err != nil {
		s.log.WarnContext(ctx, "publish change failed",
			slog.String("collection", collection),
			slog.String("error", err.Error()),
		)
		s.refresh(ctx, collection)
	}
}
