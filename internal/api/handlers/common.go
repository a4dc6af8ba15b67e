// Package handlers holds the HTTP handlers for the dashboard-facing API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/reviewpilot/reviewpilot/internal/gbp"
)

// errorResponse is the wire shape of every surfaced failure: a stable
// machine code, the taxonomy's user-facing text, and the retryable flag.
type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeKindError serializes a classified provider failure. The raw
// provider body never leaves the server.
func writeKindError(w http.ResponseWriter, err error) {
	kind := gbp.KindOf(err)
	writeJSON(w, statusForKind(kind), errorResponse{
		Error:     kind.Code(),
		Message:   kind.Message(),
		Retryable: kind.Retryable(),
	})
}

func statusForKind(kind gbp.Kind) int {
	switch kind {
	case gbp.KindResourceNotFound:
		return http.StatusNotFound
	case gbp.KindRateLimited:
		return http.StatusTooManyRequests
	case gbp.KindCredentialRevoked, gbp.KindInsufficientScope, gbp.KindAccessDenied:
		// The dashboard turns these into a "reconnect Google" prompt.
		return http.StatusConflict
	case gbp.KindCredentialExpired, gbp.KindProviderUnavailable, gbp.KindNetworkTimeout:
		return http.StatusBadGateway
	case gbp.KindUserCancelled, gbp.KindInvalidState:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeCodeError serializes a local (non-provider) failure.
func writeCodeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}
