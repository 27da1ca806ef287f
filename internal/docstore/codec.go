package docstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/heartmarshall/cypress-connect/internal/domain"
)

// Document field names.
const (
	FieldName               = "name"
	FieldCategory           = "category"
	FieldDescription        = "description"
	FieldURL                = "url"
	FieldPhone              = "phone"
	FieldImageURL           = "imageUrl"
	FieldLocation           = "location"
	FieldEventDate          = "eventDate"
	FieldStatus             = "status"
	FieldSuggestedBy        = "suggestedBy"
	FieldUserEmail          = "userEmail"
	FieldSubmittedAt        = "submittedAt"
	FieldApprovedBy         = "approvedBy"
	FieldApprovedByEmail    = "approvedByEmail"
	FieldPublishedAt        = "publishedAt"
	FieldSourceSuggestionID = "sourceSuggestionId"
	FieldModeratorID        = "moderatorId"
	FieldResourceID         = "resourceId"
	FieldStarredAt          = "starredAt"
	FieldEmail              = "email"
	FieldRole               = "role"
)

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// DecodeSuggestion validates doc as a suggestion of the given kind.
func DecodeSuggestion(kind domain.ItemKind, doc Document) (domain.Suggestion, error) {
	r := reader{data: doc.Data}

	content := r.content(kind)
	status := domain.SuggestionStatus(r.str(FieldStatus, true))
	if status != "" && !status.IsValid() {
		r.fail(FieldStatus, "unknown status")
	}
	s := domain.Suggestion{
		ID:               doc.ID,
		Content:          content,
		Status:           status,
		SuggestedBy:      r.str(FieldSuggestedBy, false),
		SuggestedByEmail: r.str(FieldUserEmail, false),
		SubmittedAt:      r.time(FieldSubmittedAt),
	}
	if err := r.err(); err != nil {
		return domain.Suggestion{}, fmt.Errorf("decode suggestion %s: %w", doc.ID, err)
	}
	return s, nil
}

// DecodeLiveItem validates doc as a live item of the given kind.
func DecodeLiveItem(kind domain.ItemKind, doc Document) (domain.LiveItem, error) {
	r := reader{data: doc.Data}

	content := r.content(kind)
	status := domain.SuggestionStatus(r.str(FieldStatus, false))
	if status == "" {
		status = domain.StatusApproved
	}
	if status != domain.StatusApproved {
		r.fail(FieldStatus, "live items must be approved")
	}
	item := domain.LiveItem{
		ID:                 doc.ID,
		Content:            content,
		Status:             status,
		ApprovedBy:         r.str(FieldApprovedBy, false),
		ApprovedByEmail:    r.str(FieldApprovedByEmail, false),
		PublishedAt:        r.time(FieldPublishedAt),
		SourceSuggestionID: r.optStr(FieldSourceSuggestionID),
	}
	if err := r.err(); err != nil {
		return domain.LiveItem{}, fmt.Errorf("decode live item %s: %w", doc.ID, err)
	}
	return item, nil
}

// DecodeStar validates doc as a star record.
func DecodeStar(doc Document) (domain.StarRecord, error) {
	r := reader{data: doc.Data}

	rec := domain.StarRecord{
		ID:          doc.ID,
		ModeratorID: r.str(FieldModeratorID, true),
		ResourceID:  r.str(FieldResourceID, true),
		Snapshot:    r.fields(false),
		StarredAt:   r.time(FieldStarredAt),
	}
	if err := r.err(); err != nil {
		return domain.StarRecord{}, fmt.Errorf("decode star %s: %w", doc.ID, err)
	}
	return rec, nil
}

// DecodeRosterEntry validates doc as a roster entry. Unknown or missing
// roles read as resident.
func DecodeRosterEntry(doc Document) (domain.RosterEntry, error) {
	r := reader{data: doc.Data}

	role := domain.UserRole(strings.ToLower(r.str(FieldRole, false)))
	if !role.IsValid() {
		role = domain.UserRoleResident
	}
	entry := domain.RosterEntry{
		UID:   doc.ID,
		Email: r.str(FieldEmail, false),
		Role:  role,
	}
	if err := r.err(); err != nil {
		return domain.RosterEntry{}, fmt.Errorf("decode roster entry %s: %w", doc.ID, err)
	}
	return entry, nil
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// EncodeContent flattens an item payload into document fields.
func EncodeContent(c domain.Content) map[string]any {
	f := c.Base()
	data := map[string]any{
		FieldName:        f.Name,
		FieldCategory:    f.Category,
		FieldDescription: f.Description,
	}
	putOpt(data, FieldURL, f.URL)
	putOpt(data, FieldPhone, f.Phone)
	putOpt(data, FieldImageURL, f.ImageURL)
	putOpt(data, FieldLocation, f.Location)
	if ev, ok := c.(domain.Event); ok {
		data[FieldEventDate] = ev.EventDate
	}
	return data
}

// EncodeSuggestion builds a suggestion document. A zero SubmittedAt is
// written as ServerTimestamp.
func EncodeSuggestion(s domain.Suggestion) map[string]any {
	data := EncodeContent(s.Content)
	data[FieldStatus] = string(s.Status)
	data[FieldSuggestedBy] = s.SuggestedBy
	if s.SuggestedByEmail != "" {
		data[FieldUserEmail] = s.SuggestedByEmail
	}
	data[FieldSubmittedAt] = timeOrServer(s.SubmittedAt)
	return data
}

// EncodeLiveItem builds a live item document. A zero PublishedAt is written
// as ServerTimestamp.
func EncodeLiveItem(item domain.LiveItem) map[string]any {
	data := EncodeContent(item.Content)
	data[FieldStatus] = string(domain.StatusApproved)
	data[FieldApprovedBy] = item.ApprovedBy
	if item.ApprovedByEmail != "" {
		data[FieldApprovedByEmail] = item.ApprovedByEmail
	}
	data[FieldPublishedAt] = timeOrServer(item.PublishedAt)
	if item.SourceSuggestionID != nil {
		data[FieldSourceSuggestionID] = *item.SourceSuggestionID
	}
	return data
}

// EncodeStar builds a star record document carrying the resource snapshot.
func EncodeStar(rec domain.StarRecord) map[string]any {
	data := EncodeContent(domain.Resource{Fields: rec.Snapshot})
	data[FieldModeratorID] = rec.ModeratorID
	data[FieldResourceID] = rec.ResourceID
	data[FieldStarredAt] = timeOrServer(rec.StarredAt)
	return data
}

// EncodeRosterEntry builds a roster document.
func EncodeRosterEntry(e domain.RosterEntry) map[string]any {
	return map[string]any{
		FieldEmail: e.Email,
		FieldRole:  string(e.Role),
	}
}

func putOpt(data map[string]any, key string, v *string) {
	if v != nil && *v != "" {
		data[key] = *v
	}
}

func timeOrServer(t time.Time) any {
	if t.IsZero() {
		return ServerTimestamp
	}
	return t.UTC()
}

// ---------------------------------------------------------------------------
// reader
// ---------------------------------------------------------------------------

// reader collects field errors while pulling typed values out of a document.
type reader struct {
	data map[string]any
	errs []domain.FieldError
}

func (r *reader) fail(field, msg string) {
	r.errs = append(r.errs, domain.FieldError{Field: field, Message: msg})
}

func (r *reader) err() error {
	if len(r.errs) == 0 {
		return nil
	}
	return domain.NewValidationErrors(r.errs)
}

func (r *reader) str(key string, required bool) string {
	v, ok := r.data[key]
	if !ok || v == nil {
		if required {
			r.fail(key, "required")
		}
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.fail(key, "must be a string")
		return ""
	}
	if required && strings.TrimSpace(s) == "" {
		r.fail(key, "required")
	}
	return s
}

func (r *reader) optStr(key string) *string {
	s := r.str(key, false)
	if s == "" {
		return nil
	}
	return &s
}

func (r *reader) fields(required bool) domain.Fields {
	return domain.Fields{
		Name:        r.str(FieldName, true),
		Category:    r.str(FieldCategory, required),
		Description: r.str(FieldDescription, false),
		URL:         r.optStr(FieldURL),
		Phone:       r.optStr(FieldPhone),
		ImageURL:    r.optStr(FieldImageURL),
		Location:    r.optStr(FieldLocation),
	}
}

func (r *reader) content(kind domain.ItemKind) domain.Content {
	if !kind.IsValid() {
		r.fail("kind", "unknown item kind")
		return nil
	}
	f := r.fields(true)
	return domain.NewContent(kind, f, r.str(FieldEventDate, false))
}

// time accepts time.Time, RFC 3339 strings and {"seconds": n} exports.
// Missing values read as the zero time.
func (r *reader) time(key string) time.Time {
	v, ok := r.data[key]
	if !ok || v == nil {
		return time.Time{}
	}
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			r.fail(key, "invalid timestamp")
			return time.Time{}
		}
		return parsed.UTC()
	case map[string]any:
		if secs, ok := t["seconds"].(float64); ok {
			return time.Unix(int64(secs), 0).UTC()
		}
	}
	r.fail(key, "invalid timestamp")
	return time.Time{}
}
