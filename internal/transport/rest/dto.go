package rest

import (
	"time"

	"github.com/heartmarshall/cypress-connect/internal/domain"
	"github.com/heartmarshall/cypress-connect/internal/service/catalog"
	"github.com/heartmarshall/cypress-connect/internal/service/dashboard"
	"github.com/heartmarshall/cypress-connect/internal/service/moderation"
)

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

type itemRequest struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Location    *string `json:"location"`
	EventDate   string  `json:"eventDate"`
	URL         *string `json:"url"`
	Phone       *string `json:"phone"`
	ImageURL    *string `json:"imageUrl"`
}

type suggestionRequest struct {
	Kind string `json:"kind"`
	itemRequest
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

type fieldsResponse struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	URL         *string `json:"url,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	Location    *string `json:"location,omitempty"`
	EventDate   string  `json:"eventDate,omitempty"`
}

type suggestionResponse struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	fieldsResponse
	Status      string     `json:"status"`
	SuggestedBy string     `json:"suggestedBy"`
	UserEmail   string     `json:"userEmail,omitempty"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

type liveItemResponse struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	fieldsResponse
	Status             string     `json:"status"`
	ApprovedBy         string     `json:"approvedBy,omitempty"`
	ApprovedByEmail    string     `json:"approvedByEmail,omitempty"`
	PublishedAt        *time.Time `json:"publishedAt,omitempty"`
	SourceSuggestionID *string    `json:"sourceSuggestionId,omitempty"`
	Starred            bool       `json:"starred,omitempty"`
}

type starResponse struct {
	ID          string `json:"id"`
	ModeratorID string `json:"moderatorId"`
	ResourceID  string `json:"resourceId"`
	fieldsResponse
	StarredAt *time.Time `json:"starredAt,omitempty"`
}

type historyResponse struct {
	Action       string    `json:"action"`
	Kind         string    `json:"kind"`
	SuggestionID string    `json:"suggestionId"`
	LiveItemID   string    `json:"liveItemId,omitempty"`
	Name         string    `json:"name"`
	ModeratorID  string    `json:"moderatorId"`
	At           time.Time `json:"at"`
}

type resultResponse struct {
	Action       string `json:"action"`
	Outcome      string `json:"outcome"`
	Message      string `json:"message"`
	SuggestionID string `json:"suggestionId,omitempty"`
	LiveItemID   string `json:"liveItemId,omitempty"`
	StarID       string `json:"starId,omitempty"`
	Starred      *bool  `json:"starred,omitempty"`
}

type moderatorResponse struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

type dashboardResponse struct {
	Version          uint64               `json:"version"`
	Moderator        moderatorResponse    `json:"moderator"`
	PendingResources []suggestionResponse `json:"pendingResources"`
	PendingEvents    []suggestionResponse `json:"pendingEvents"`
	Resources        []liveItemResponse   `json:"resources"`
	Events           []liveItemResponse   `json:"events"`
	Starred          []starResponse       `json:"starred"`
	Counts           catalog.Counts       `json:"counts"`
	RecentlyApproved []historyResponse    `json:"recentlyApproved"`
	RecentlyRejected []historyResponse    `json:"recentlyRejected"`
	Errors           map[string]string    `json:"errors,omitempty"`
	Ready            bool                 `json:"ready"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// ---------------------------------------------------------------------------
// Mapping
// ---------------------------------------------------------------------------

func toFields(c domain.Content) fieldsResponse {
	f := c.Base()
	return fieldsResponse{
		Name:        f.Name,
		Category:    f.Category,
		Description: f.Description,
		URL:         f.URL,
		Phone:       f.Phone,
		ImageURL:    f.ImageURL,
		Location:    f.Location,
		EventDate:   domain.EventDateOf(c),
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func toSuggestion(s domain.Suggestion) suggestionResponse {
	return suggestionResponse{
		ID:             s.ID,
		Kind:           s.Kind().String(),
		fieldsResponse: toFields(s.Content),
		Status:         s.Status.String(),
		SuggestedBy:    s.SuggestedBy,
		UserEmail:      s.SuggestedByEmail,
		SubmittedAt:    timePtr(s.SubmittedAt),
	}
}

func toSuggestions(in []domain.Suggestion) []suggestionResponse {
	out := make([]suggestionResponse, 0, len(in))
	for _, s := range in {
		out = append(out, toSuggestion(s))
	}
	return out
}

func toLiveItem(item domain.LiveItem) liveItemResponse {
	return liveItemResponse{
		ID:                 item.ID,
		Kind:               item.Kind().String(),
		fieldsResponse:     toFields(item.Content),
		Status:             item.Status.String(),
		ApprovedBy:         item.ApprovedBy,
		ApprovedByEmail:    item.ApprovedByEmail,
		PublishedAt:        timePtr(item.PublishedAt),
		SourceSuggestionID: item.SourceSuggestionID,
	}
}

// toLiveItems maps items; starred, when non-nil, marks starred resources.
func toLiveItems(in []domain.LiveItem, starred map[string]bool) []liveItemResponse {
	out := make([]liveItemResponse, 0, len(in))
	for _, item := range in {
		resp := toLiveItem(item)
		resp.Starred = starred[item.ID]
		out = append(out, resp)
	}
	return out
}

func toStars(in []domain.StarRecord) []starResponse {
	out := make([]starResponse, 0, len(in))
	for _, rec := range in {
		out = append(out, starResponse{
			ID:             rec.ID,
			ModeratorID:    rec.ModeratorID,
			ResourceID:     rec.ResourceID,
			fieldsResponse: toFields(domain.Resource{Fields: rec.Snapshot}),
			StarredAt:      timePtr(rec.StarredAt),
		})
	}
	return out
}

func toHistory(in []moderation.HistoryEntry) []historyResponse {
	out := make([]historyResponse, 0, len(in))
	for _, e := range in {
		out = append(out, historyResponse{
			Action:       string(e.Action),
			Kind:         e.Kind.String(),
			SuggestionID: e.SuggestionID,
			LiveItemID:   e.LiveItemID,
			Name:         e.Name,
			ModeratorID:  e.ModeratorID,
			At:           e.At,
		})
	}
	return out
}

func toResult(res moderation.Result) resultResponse {
	resp := resultResponse{
		Action:       string(res.Action),
		Outcome:      string(res.Outcome),
		Message:      res.Message,
		SuggestionID: res.SuggestionID,
		LiveItemID:   res.LiveItemID,
		StarID:       res.StarID,
	}
	if res.Action == moderation.ActionStar || res.Action == moderation.ActionUnstar {
		starred := res.Starred
		resp.Starred = &starred
	}
	return resp
}

func toDashboard(v dashboard.View) dashboardResponse {
	resp := dashboardResponse{
		Version: v.Version,
		Moderator: moderatorResponse{
			UID:   v.Moderator.UID,
			Email: v.Moderator.Email,
			Role:  v.Moderator.Role.String(),
		},
		PendingResources: toSuggestions(v.PendingResources),
		PendingEvents:    toSuggestions(v.PendingEvents),
		Resources:        toLiveItems(v.Resources, v.StarredIDs),
		Events:           toLiveItems(v.Events, nil),
		Starred:          toStars(v.Starred),
		Counts:           v.Counts,
		RecentlyApproved: toHistory(v.RecentlyApproved),
		RecentlyRejected: toHistory(v.RecentlyRejected),
		Ready:            v.Ready,
	}
	if len(v.Errors) > 0 {
		resp.Errors = make(map[string]string, len(v.Errors))
		for src, msg := range v.Errors {
			resp.Errors[string(src)] = msg
		}
	}
	return resp
}
