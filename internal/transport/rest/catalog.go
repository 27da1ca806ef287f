package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/heartmarshall/cypress-connect/internal/domain"
	"github.com/heartmarshall/cypress-connect/internal/service/catalog"
)

const catalogWait = 5 * time.Second

type catalogService interface {
	WaitReady(ctx context.Context) error
	Resources(f catalog.Filter) []domain.LiveItem
	Events(f catalog.Filter, when catalog.When) []domain.LiveItem
	Featured() []domain.LiveItem
	Stats() catalog.Counts
}

// CatalogHandler serves the public catalog.
type CatalogHandler struct {
	svc catalogService
	log *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(svc catalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{svc: svc, log: logger.With("handler", "catalog")}
}

type categoriesResponse struct {
	All       string   `json:"all"`
	Resources []string `json:"resources"`
	Events    []string `json:"events"`
}

// Resources handles GET /catalog/resources?search=&category=.
func (h *CatalogHandler) Resources(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	items := h.svc.Resources(filterFrom(r))
	writeJSON(w, http.StatusOK, listResponse[liveItemResponse]{Items: toLiveItems(items, nil), Count: len(items)})
}

// Events handles GET /catalog/events?search=&category=&when=.
func (h *CatalogHandler) Events(w http.ResponseWriter, r *http.Request) {
	when, ok := catalog.ParseWhen(r.URL.Query().Get("when"))
	if !ok {
		writeDomainError(w, r, h.log, domain.NewValidationError("when", "must be upcoming, archived or all"))
		return
	}
	if !h.ready(w, r) {
		return
	}
	items := h.svc.Events(filterFrom(r), when)
	writeJSON(w, http.StatusOK, listResponse[liveItemResponse]{Items: toLiveItems(items, nil), Count: len(items)})
}

// Featured handles GET /catalog/featured.
func (h *CatalogHandler) Featured(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	items := h.svc.Featured()
	writeJSON(w, http.StatusOK, listResponse[liveItemResponse]{Items: toLiveItems(items, nil), Count: len(items)})
}

// Stats handles GET /catalog/stats.
func (h *CatalogHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Stats())
}

// Categories handles GET /catalog/categories.
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, categoriesResponse{
		All:       domain.CategoryAll,
		Resources: domain.ResourceCategories,
		Events:    domain.EventCategories,
	})
}

// ready waits briefly for the first catalog load.
func (h *CatalogHandler) ready(w http.ResponseWriter, r *http.Request) bool {
	ctx, cancel := context.WithTimeout(r.Context(), catalogWait)
	defer cancel()

	if err := h.svc.WaitReady(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			w.Header().Set("Retry-After", "5")
			writeError(w, http.StatusServiceUnavailable, "catalog is loading")
		}
		return false
	}
	return true
}

func filterFrom(r *http.Request) catalog.Filter {
	q := r.URL.Query()
	return catalog.Filter{Search: q.Get("search"), Category: q.Get("category")}
}
