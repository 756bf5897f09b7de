package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/service"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/storage"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/validation"
)

// errorBody is the JSON error envelope. Message is user-facing; raw provider
// errors never appear here, only in logs.
type errorBody struct {
	Error    string           `json:"error"`
	Message  string           `json:"message,omitempty"`
	Provider storage.Provider `json:"provider,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

// writeServiceError maps pipeline errors onto the HTTP taxonomy:
// configuration -> 503 (operator-actionable), validation -> 400,
// authorization -> 403, missing records -> 404, anything else -> 503 with
// fallbackCode and a generic retry-later message.
func writeServiceError(w http.ResponseWriter, err error, fallbackCode string) {
	var cfgErr *storage.ConfigurationError
	if errors.As(err, &cfgErr) {
		// Which fields are missing is operator information; the response
		// only says storage is down and which provider was attempted.
		slog.Error("storage not configured", "missing", cfgErr.Missing)
		writeJSON(w, http.StatusServiceUnavailable, errorBody{
			Error:    "storage_not_configured",
			Message:  "file storage is not configured, contact an administrator",
			Provider: storage.GetDiagnostics().Provider,
		})
		return
	}

	var fileErr *validation.FileError
	if errors.As(err, &fileErr) {
		writeError(w, http.StatusBadRequest, fileErr.Code, fileErr.Message)
		return
	}

	switch {
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "you are not assigned to this skill")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "")
	case errors.Is(err, service.ErrSkillMismatch):
		writeError(w, http.StatusBadRequest, "skill_mismatch", "deliverable does not belong to the given skill")
	case errors.Is(err, service.ErrEvidenceProcessing):
		writeError(w, http.StatusConflict, "evidence_processing", "the document is still being processed")
	case errors.Is(err, service.ErrEvidenceBlocked):
		writeError(w, http.StatusForbidden, "evidence_blocked", "the document has been blocked")
	default:
		slog.Error("evidence operation failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, fallbackCode, "temporary storage error, please try again later")
	}
}
