package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/heartmarshall/cypress-connect/internal/domain"
	"github.com/heartmarshall/cypress-connect/internal/service/suggestion"
)

type suggestionService interface {
	Submit(ctx context.Context, submitter domain.Moderator, input suggestion.SubmitInput) (domain.Suggestion, error)
}

// SuggestionHandler accepts resident submissions.
type SuggestionHandler struct {
	svc suggestionService
	log *slog.Logger
}

// NewSuggestionHandler creates a SuggestionHandler.
func NewSuggestionHandler(svc suggestionService, logger *slog.Logger) *SuggestionHandler {
	return &SuggestionHandler{svc: svc, log: logger.With("handler", "suggestion")}
}

// Submit handles POST /suggestions.
func (h *SuggestionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req suggestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	kind, ok := domain.ParseItemKind(req.Kind)
	if !ok {
		writeDomainError(w, r, h.log, domain.NewValidationError("kind", "must be resource or event"))
		return
	}

	sug, err := h.svc.Submit(r.Context(), moderatorFrom(r), suggestion.SubmitInput{
		Kind:        kind,
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Location:    req.Location,
		EventDate:   req.EventDate,
		URL:         req.URL,
		Phone:       req.Phone,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSuggestion(sug))
}
