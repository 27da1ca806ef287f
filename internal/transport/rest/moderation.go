package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/heartmarshall/cypress-connect/internal/domain"
	"github.com/heartmarshall/cypress-connect/internal/service/dashboard"
	"github.com/heartmarshall/cypress-connect/internal/service/moderation"
)

const (
	dashboardWait   = 10 * time.Second
	streamHeartbeat = 15 * time.Second
)

type moderationEngine interface {
	Suggestion(ctx context.Context, kind domain.ItemKind, id string) (domain.Suggestion, error)
	LiveItem(ctx context.Context, kind domain.ItemKind, id string) (domain.LiveItem, error)
	Approve(ctx context.Context, mod domain.Moderator, sug domain.Suggestion, target domain.ItemKind) (moderation.Result, error)
	Reject(ctx context.Context, mod domain.Moderator, sug domain.Suggestion) (moderation.Result, error)
	Remove(ctx context.Context, mod domain.Moderator, item domain.LiveItem) (moderation.Result, error)
	ToggleStar(ctx context.Context, mod domain.Moderator, item domain.LiveItem) (moderation.Result, error)
	RemoveStar(ctx context.Context, mod domain.Moderator, resourceID string) (moderation.Result, error)
	ManualPublish(ctx context.Context, mod domain.Moderator, input moderation.PublishInput) (moderation.Result, error)
	History() *moderation.History
}

type dashboardOpener interface {
	Open(ctx context.Context, mod domain.Moderator) (*dashboard.Dashboard, error)
}

// ModerationHandler serves the leader dashboard and moderation actions.
type ModerationHandler struct {
	engine     moderationEngine
	dashboards dashboardOpener
	log        *slog.Logger
}

// NewModerationHandler creates a ModerationHandler.
func NewModerationHandler(engine moderationEngine, dashboards dashboardOpener, logger *slog.Logger) *ModerationHandler {
	return &ModerationHandler{engine: engine, dashboards: dashboards, log: logger.With("handler", "moderation")}
}

type historyListResponse struct {
	Approved []historyResponse `json:"approved"`
	Rejected []historyResponse `json:"rejected"`
}

// ---------------------------------------------------------------------------
// Views
// ---------------------------------------------------------------------------

// Dashboard handles GET /moderation/dashboard with a one-shot view.
func (h *ModerationHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboards.Open(r.Context(), moderatorFrom(r))
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(r.Context(), dashboardWait)
	defer cancel()

	v, err := d.WaitReady(ctx)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		writeDomainError(w, r, h.log, fmt.Errorf("dashboard: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, toDashboard(v))
}

// Stream handles GET /moderation/stream. It sends a "dashboard" event for
// every new view until the client disconnects.
func (h *ModerationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboards.Open(r.Context(), moderatorFrom(r))
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	defer d.Close()

	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	v, err := d.WaitReady(ctx)
	if err != nil {
		return
	}

	sent := v.Version
	if err := writeEvent(w, rc, "dashboard", toDashboard(v)); err != nil {
		return
	}

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	updates := d.Updates()
	for {
		select {
		case v, ok := <-updates:
			if !ok {
				return
			}
			if v.Version <= sent {
				continue
			}
			sent = v.Version
			if err := writeEvent(w, rc, "dashboard", toDashboard(v)); err != nil {
				h.log.DebugContext(ctx, "stream write failed", slog.String("error", err.Error()))
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return rc.Flush()
}

// History handles GET /moderation/history.
func (h *ModerationHandler) History(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireLeader(w, r); !ok {
		return
	}
	hist := h.engine.History()
	writeJSON(w, http.StatusOK, historyListResponse{
		Approved: toHistory(hist.Approved()),
		Rejected: toHistory(hist.Rejected()),
	})
}

// ---------------------------------------------------------------------------
// Actions
// ---------------------------------------------------------------------------

// Approve handles POST /moderation/suggestions/{kind}/{id}/approve.
func (h *ModerationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	mod, kind, sug, ok := h.suggestionFromPath(w, r)
	if !ok {
		return
	}
	res, err := h.engine.Approve(r.Context(), mod, sug, kind)
	h.writeResult(w, r, res, err, http.StatusOK)
}

// Reject handles POST /moderation/suggestions/{kind}/{id}/reject.
func (h *ModerationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	mod, _, sug, ok := h.suggestionFromPath(w, r)
	if !ok {
		return
	}
	res, err := h.engine.Reject(r.Context(), mod, sug)
	h.writeResult(w, r, res, err, http.StatusOK)
}

// Publish handles POST /moderation/items/{kind}.
func (h *ModerationHandler) Publish(w http.ResponseWriter, r *http.Request) {
	mod, ok := h.requireLeader(w, r)
	if !ok {
		return
	}
	kind, ok := h.kindFromPath(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input := moderation.PublishInput{
		Kind:        kind,
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		EventDate:   req.EventDate,
		URL:         req.URL,
		Phone:       req.Phone,
		ImageURL:    req.ImageURL,
	}
	if req.Location != nil {
		input.Location = *req.Location
	}

	res, err := h.engine.ManualPublish(r.Context(), mod, input)
	h.writeResult(w, r, res, err, http.StatusCreated)
}

// Remove handles DELETE /moderation/items/{kind}/{id}.
func (h *ModerationHandler) Remove(w http.ResponseWriter, r *http.Request) {
	mod, ok := h.requireLeader(w, r)
	if !ok {
		return
	}
	kind, ok := h.kindFromPath(w, r)
	if !ok {
		return
	}

	item, err := h.engine.LiveItem(r.Context(), kind, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	res, err := h.engine.Remove(r.Context(), mod, item)
	h.writeResult(w, r, res, err, http.StatusOK)
}

// Star handles POST /moderation/items/resources/{id}/star. It toggles the
// caller's star on the resource.
func (h *ModerationHandler) Star(w http.ResponseWriter, r *http.Request) {
	mod, ok := h.requireLeader(w, r)
	if !ok {
		return
	}

	item, err := h.engine.LiveItem(r.Context(), domain.ItemKindResource, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	res, err := h.engine.ToggleStar(r.Context(), mod, item)
	h.writeResult(w, r, res, err, http.StatusOK)
}

// Unstar handles DELETE /moderation/stars/{resourceId}. The resource may
// already be gone.
func (h *ModerationHandler) Unstar(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.RemoveStar(r.Context(), moderatorFrom(r), r.PathValue("resourceId"))
	h.writeResult(w, r, res, err, http.StatusOK)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// writeResult writes a moderation outcome. Preconditions that did not hold
// are reported as 200 with the result message; created is used only for
// applied results.
func (h *ModerationHandler) writeResult(w http.ResponseWriter, r *http.Request, res moderation.Result, err error, created int) {
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	status := http.StatusOK
	if res.Outcome == moderation.OutcomeApplied {
		status = created
	}
	writeJSON(w, status, toResult(res))
}

func (h *ModerationHandler) requireLeader(w http.ResponseWriter, r *http.Request) (domain.Moderator, bool) {
	mod := moderatorFrom(r)
	switch {
	case mod.UID == "":
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return mod, false
	case !mod.IsLeader():
		writeError(w, http.StatusForbidden, "forbidden")
		return mod, false
	}
	return mod, true
}

func (h *ModerationHandler) kindFromPath(w http.ResponseWriter, r *http.Request) (domain.ItemKind, bool) {
	kind, ok := domain.ParseItemKind(r.PathValue("kind"))
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
	}
	return kind, ok
}

func (h *ModerationHandler) suggestionFromPath(w http.ResponseWriter, r *http.Request) (domain.Moderator, domain.ItemKind, domain.Suggestion, bool) {
	mod, ok := h.requireLeader(w, r)
	if !ok {
		return mod, "", domain.Suggestion{}, false
	}
	kind, ok := h.kindFromPath(w, r)
	if !ok {
		return mod, "", domain.Suggestion{}, false
	}

	sug, err := h.engine.Suggestion(r.Context(), kind, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return mod, "", domain.Suggestion{}, false
	}
	return mod, kind, sug, true
}
