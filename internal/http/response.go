package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cadenza/internal/core"
	applog "cadenza/internal/log"
)

// errorBody is the JSON envelope for error responses.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// validationErrors are the domain errors a client can fix by changing
// its input.
var validationErrors = []error{
	core.ErrInvalidFrequency,
	core.ErrInvalidPeriod,
	core.ErrInvalidAnchor,
	core.ErrInvalidAmount,
	core.ErrInvalidDirection,
	core.ErrEmptyName,
	core.ErrEmptyCategory,
	core.ErrNotActive,
}

// writeError maps a domain error to the matching HTTP status.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
		return
	case isValidationError(err):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
		return
	}

	sl := applog.NewStructuredLogger(applog.FromContext(r.Context()))
	sl.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, r.Method+" "+r.URL.Path,
		applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", ""))
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func isValidationError(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
