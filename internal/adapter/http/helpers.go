package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/roundtable-dev/roundtable/internal/domain"
	"github.com/roundtable-dev/roundtable/internal/domain/conductor"
	"github.com/roundtable-dev/roundtable/internal/port/selector"
	"github.com/roundtable-dev/roundtable/internal/port/settings"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// Stable error codes surfaced to UI clients.
const (
	CodeCircuitBreaker      = "CIRCUIT_BREAKER"
	CodeSelectorAgentError  = "SELECTOR_AGENT_ERROR"
	CodeAPIKeyNotConfigured = "API_KEY_NOT_CONFIGURED"
	CodeAPIKeyDecryptFailed = "API_KEY_DECRYPT_FAILED"
	CodeSettingsReadError   = "SETTINGS_READ_ERROR"
)

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	return v, true
}

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeCodedError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

func writeDomainError(w http.ResponseWriter, err error, fallbackMsg string) {
	var modeErr *conductor.InvalidControlModeError
	var personaErr *conductor.SelectedPersonaNotFoundError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, fallbackMsg)
	case errors.Is(err, domain.ErrValidation):
		msg := strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
		writeError(w, http.StatusBadRequest, msg)
	case errors.Is(err, conductor.ErrNotEnabled),
		errors.Is(err, conductor.ErrNoPersonas),
		errors.Is(err, conductor.ErrConductorPersonaMissing):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &modeErr):
		writeError(w, http.StatusBadRequest, modeErr.Error())
	case errors.As(err, &personaErr):
		writeError(w, http.StatusBadGateway, personaErr.Error())
	case errors.Is(err, selector.ErrExecutionFailed),
		errors.Is(err, selector.ErrInvalidResponse):
		writeCodedError(w, http.StatusBadGateway, CodeSelectorAgentError, err.Error())
	case errors.Is(err, settings.ErrAPIKeyMissing):
		writeCodedError(w, http.StatusBadRequest, CodeAPIKeyNotConfigured, err.Error())
	case errors.Is(err, settings.ErrAPIKeyDecrypt):
		writeCodedError(w, http.StatusInternalServerError, CodeAPIKeyDecryptFailed, err.Error())
	case errors.Is(err, settings.ErrRead):
		writeCodedError(w, http.StatusInternalServerError, CodeSettingsReadError, err.Error())
	case strings.Contains(err.Error(), "invalid input syntax"):
		writeError(w, http.StatusBadRequest, "invalid identifier format")
	default:
		slog.Error("unhandled domain error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
