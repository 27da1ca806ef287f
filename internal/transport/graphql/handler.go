package graphql

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/lru"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/vektah/gqlparser/v2/ast"
)

const queryCacheSize = 256

// NewServer builds the gqlgen server. Subscriptions are served as
// server-sent events, so the SSE transport must come before POST.
func NewServer(schema *Schema, logger *slog.Logger) *handler.Server {
	srv := handler.New(schema)
	srv.AddTransport(transport.SSE{})
	srv.AddTransport(transport.Options{})
	srv.AddTransport(transport.GET{})
	srv.AddTransport(transport.POST{})
	srv.SetQueryCache(lru.New[*ast.QueryDocument](queryCacheSize))
	srv.SetErrorPresenter(NewErrorPresenter(logger))
	srv.SetRecoverFunc(NewRecoverFunc(logger))
	return srv
}

// NewHandler returns the /query handler for r.
func NewHandler(r *Resolver, logger *slog.Logger) (http.Handler, error) {
	schema, err := NewSchema(r)
	if err != nil {
		return nil, err
	}
	srv := NewServer(schema, logger)

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if strings.Contains(req.Header.Get("Accept"), "text/event-stream") {
			// Event streams outlive the server's write timeout.
			_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
		}
		srv.ServeHTTP(w, req)
	}), nil
}
