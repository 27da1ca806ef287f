package rest

import (
	"net/http"

	"github.com/heartmarshall/cypress-connect/internal/transport/middleware"
)

// Handlers groups every REST handler served by the router.
type Handlers struct {
	Health      *HealthHandler
	Catalog     *CatalogHandler
	Suggestions *SuggestionHandler
	Moderation  *ModerationHandler

	// GraphQL serves /query when set.
	GraphQL http.Handler
}

// NewRouter registers all routes. submitLimit wraps the submission
// endpoint; nil disables limiting.
func NewRouter(h Handlers, submitLimit middleware.Middleware) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /live", h.Health.Live)
	mux.HandleFunc("GET /ready", h.Health.Ready)
	mux.HandleFunc("GET /health", h.Health.Health)

	mux.HandleFunc("GET /catalog/resources", h.Catalog.Resources)
	mux.HandleFunc("GET /catalog/events", h.Catalog.Events)
	mux.HandleFunc("GET /catalog/featured", h.Catalog.Featured)
	mux.HandleFunc("GET /catalog/categories", h.Catalog.Categories)
	mux.HandleFunc("GET /catalog/stats", h.Catalog.Stats)

	mux.Handle("POST /suggestions", middleware.Chain(submitLimit)(http.HandlerFunc(h.Suggestions.Submit)))

	m := h.Moderation
	mux.HandleFunc("GET /moderation/dashboard", m.Dashboard)
	mux.HandleFunc("GET /moderation/stream", m.Stream)
	mux.HandleFunc("GET /moderation/history", m.History)
	mux.HandleFunc("POST /moderation/suggestions/{kind}/{id}/approve", m.Approve)
	mux.HandleFunc("POST /moderation/suggestions/{kind}/{id}/reject", m.Reject)
	mux.HandleFunc("POST /moderation/items/{kind}", m.Publish)
	mux.HandleFunc("DELETE /moderation/items/{kind}/{id}", m.Remove)
	mux.HandleFunc("POST /moderation/items/resources/{id}/star", m.Star)
	mux.HandleFunc("DELETE /moderation/stars/{resourceId}", m.Unstar)

	if h.GraphQL != nil {
		mux.Handle("GET /query", h.GraphQL)
		mux.Handle("POST /query", h.GraphQL)
		mux.Handle("OPTIONS /query", h.GraphQL)
	}

	return mux
}
