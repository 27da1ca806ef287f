package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/heartmarshall/cypress-connect/pkg/ctxutil"
)

// errorBody matches the error shape written by the REST handlers, plus the
// request id so a failed call can be found in the logs.
type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{ //nolint:errcheck
		Error:     message,
		RequestID: ctxutil.RequestIDFromCtx(r.Context()),
	})
}
