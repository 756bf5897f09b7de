package handler

import (
	"net/http"

	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/storage"
)

// StorageHealthHandler reports the storage configuration state for
// operators. Read-only: it inspects the environment and mutates nothing.
type StorageHealthHandler struct{}

func NewStorageHealthHandler() *StorageHealthHandler {
	return &StorageHealthHandler{}
}

// Health handles GET /api/storage/health. Presence booleans only, never
// secret values. ?details=1 includes the per-requirement breakdown.
func (h *StorageHealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	d := storage.GetDiagnostics()

	if r.URL.Query().Get("details") == "" {
		d.Requirements = nil
	}

	status := http.StatusOK
	if !d.OK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, d)
}
