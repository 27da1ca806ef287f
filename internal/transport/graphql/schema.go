package graphql

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/heartmarshall/cypress-connect/internal/service/dashboard"
	"github.com/heartmarshall/cypress-connect/internal/transport/graphql/dataloader"
)

//go:embed schema.graphqls
var schemaSource string

var null = json.RawMessage("null")

// Schema executes operations against schema.graphqls with Resolver.
//
// The embedded interface is nil; Complexity is only called by the
// complexity limit extension, which the server does not install.
type Schema struct {
	graphql.ExecutableSchema

	schema   *ast.Schema
	resolver *Resolver
}

// NewSchema parses the schema and binds it to r.
func NewSchema(r *Resolver) (*Schema, error) {
	s, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphqls", Input: schemaSource})
	if err != nil {
		return nil, fmt.Errorf("load graphql schema: %w", err)
	}
	return &Schema{schema: s, resolver: r}, nil
}

// Schema returns the parsed schema.
func (s *Schema) Schema() *ast.Schema { return s.schema }

// Exec returns the response stream of the operation in ctx. Queries and
// mutations answer once; a subscription answers once per dashboard view.
func (s *Schema) Exec(ctx context.Context) graphql.ResponseHandler {
	opCtx := graphql.GetOperationContext(ctx)
	sel := opCtx.Operation.SelectionSet

	switch opCtx.Operation.Operation {
	case ast.Query:
		return s.once(s.schema.Query.Name, s.resolver.query(), sel)
	case ast.Mutation:
		return s.once(s.schema.Mutation.Name, s.resolver.mutation(), sel)
	case ast.Subscription:
		return s.subscribe(ctx, sel)
	default:
		return graphql.OneShot(graphql.ErrorResponse(ctx, "unsupported GraphQL operation"))
	}
}

func (s *Schema) once(typeName string, root object, sel ast.SelectionSet) graphql.ResponseHandler {
	first := true
	return func(ctx context.Context) *graphql.Response {
		if !first {
			return nil
		}
		first = false
		return s.respond(ctx, typeName, root, sel)
	}
}

// subscribe opens the caller's dashboard and streams every new view.
func (s *Schema) subscribe(ctx context.Context, sel ast.SelectionSet) graphql.ResponseHandler {
	d, err := s.resolver.dashboards.Open(ctx, moderatorFrom(ctx))
	if err != nil {
		failed := false
		return func(ctx context.Context) *graphql.Response {
			if failed {
				return nil
			}
			failed = true
			graphql.AddError(ctx, gqlerror.WrapPath(ast.Path{ast.PathName("dashboard")}, err))
			return &graphql.Response{Data: null}
		}
	}
	context.AfterFunc(ctx, d.Close)

	typeName := s.schema.Subscription.Name
	updates := d.Updates()
	first := true
	var sent uint64

	return func(ctx context.Context) *graphql.Response {
		var v dashboard.View
		if first {
			first = false
			ready, err := d.WaitReady(ctx)
			if err != nil {
				return nil
			}
			v = ready
		} else {
			next, ok := nextView(ctx, updates, sent)
			if !ok {
				return nil
			}
			v = next
		}
		sent = v.Version
		root := object{"dashboard": toDashboard(v)}
		return s.respond(ctx, typeName, root, sel)
	}
}

// nextView waits for a view newer than sent. It returns false once the
// dashboard is closed or ctx is done.
func nextView(ctx context.Context, updates <-chan dashboard.View, sent uint64) (dashboard.View, bool) {
	for {
		select {
		case v, ok := <-updates:
			if !ok {
				return dashboard.View{}, false
			}
			if v.Version > sent {
				return v, true
			}
		case <-ctx.Done():
			return dashboard.View{}, false
		}
	}
}

// respond resolves one response with a fresh set of loaders.
func (s *Schema) respond(ctx context.Context, typeName string, root object, sel ast.SelectionSet) *graphql.Response {
	ctx = dataloader.WithLoaders(ctx, dataloader.NewLoaders(s.resolver.catalog))
	raw, ok := s.completeObject(ctx, nil, typeName, root, sel)
	if !ok {
		raw = null
	}
	return &graphql.Response{Data: raw}
}

// completeObject writes the selected fields of obj in selection order. It
// returns false when a non-null field resolved to null, making obj null.
func (s *Schema) completeObject(ctx context.Context, path ast.Path, typeName string, obj object, sel ast.SelectionSet) (json.RawMessage, bool) {
	opCtx := graphql.GetOperationContext(ctx)
	fields := graphql.CollectFields(opCtx, sel, []string{typeName})

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(f.Alias)
		buf.Write(key)
		buf.WriteByte(':')

		if f.Name == "__typename" {
			name, _ := json.Marshal(typeName)
			buf.Write(name)
			continue
		}

		fieldPath := append(slices.Clone(path), ast.PathName(f.Alias))
		v, err := s.resolveField(ctx, obj[f.Name], f.ArgumentMap(opCtx.Variables))
		if err != nil {
			graphql.AddError(ctx, gqlerror.WrapPath(fieldPath, err))
			if f.Definition.Type.NonNull {
				return nil, false
			}
			buf.Write(null)
			continue
		}

		raw, ok := s.complete(ctx, fieldPath, f.Definition.Type, f.Selections, v)
		if !ok {
			return nil, false
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), true
}

func (s *Schema) resolveField(ctx context.Context, v any, args map[string]any) (out any, err error) {
	fn, ok := v.(resolver)
	if !ok {
		return v, nil
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, graphql.GetOperationContext(ctx).Recover(ctx, r)
		}
	}()
	return fn(ctx, args)
}

// complete serializes v as typ. A null in a non-null position is reported
// and returned as false so the nearest nullable parent becomes null.
func (s *Schema) complete(ctx context.Context, path ast.Path, typ *ast.Type, sel ast.SelectionSet, v any) (json.RawMessage, bool) {
	if isNull(v) {
		if typ.NonNull {
			graphql.AddError(ctx, gqlerror.ErrorPathf(path, "the requested element is null which the schema does not allow"))
			return nil, false
		}
		return null, true
	}

	var raw json.RawMessage
	var ok bool
	switch {
	case typ.Elem != nil:
		raw, ok = s.completeList(ctx, path, typ.Elem, sel, v)
	case s.schema.Types[typ.NamedType].Kind == ast.Object:
		obj, isObj := v.(object)
		if !isObj {
			graphql.AddError(ctx, gqlerror.WrapPath(path, fmt.Errorf("%s: unexpected value %T", typ.NamedType, v)))
			break
		}
		raw, ok = s.completeObject(ctx, path, typ.NamedType, obj, sel)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			graphql.AddError(ctx, gqlerror.WrapPath(path, fmt.Errorf("%s: %w", typ.NamedType, err)))
			break
		}
		raw, ok = b, true
	}

	if !ok && !typ.NonNull {
		return null, true
	}
	return raw, ok
}

// completeList resolves object elements concurrently so their loader
// lookups land in one batch.
func (s *Schema) completeList(ctx context.Context, path ast.Path, elem *ast.Type, sel ast.SelectionSet, v any) (json.RawMessage, bool) {
	items, isList := v.([]any)
	if !isList {
		graphql.AddError(ctx, gqlerror.WrapPath(path, fmt.Errorf("expected a list, got %T", v)))
		return nil, false
	}

	raws := make([]json.RawMessage, len(items))
	oks := make([]bool, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		itemPath := append(slices.Clone(path), ast.PathIndex(i))
		if _, isObj := item.(object); !isObj {
			raws[i], oks[i] = s.complete(ctx, itemPath, elem, sel, item)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			raws[i], oks[i] = s.complete(ctx, itemPath, elem, sel, item)
		}()
	}
	wg.Wait()

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, raw := range raws {
		if !oks[i] {
			return nil, false
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(raw)
	}
	buf.WriteByte(']')
	return buf.Bytes(), true
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
