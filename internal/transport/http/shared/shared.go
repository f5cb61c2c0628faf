// Package shared holds the response helpers every handler uses, so error
// envelopes and JSON encoding stay identical across the API.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "certtrack/pkg/domain-errors"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a coded domain error into its HTTP envelope. Uncoded
// errors map to 500 without leaking internals.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code)}

	var de *dErrors.Error
	if errors.As(err, &de) && code != dErrors.CodeInternal {
		resp.Message = de.Message
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}
