package handler

import (
	"net/http"

	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/ctxkeys"
)

// Deliverables handles GET /api/skills/{skillId}/deliverables: the skill's
// deliverable list with current evidence state, for the tracking views.
func (h *EvidenceHandler) Deliverables(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	skillID := r.PathValue("skillId")

	deliverables, err := h.evidenceService.Deliverables(user, skillID)
	if err != nil {
		writeServiceError(w, err, "list_failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deliverables": deliverables})
}
