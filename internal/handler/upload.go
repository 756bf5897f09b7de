package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/config"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/ctxkeys"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/service"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/validation"
)

// Upload handles POST /api/evidence/upload, the legacy single-request path:
// multipart form in, object PUT upstream and metadata committed before the
// response goes out. Small synchronous uploads only; the whole file is held
// in memory for the duration.
func (h *EvidenceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	policy := config.Policy()

	// One extra MiB of headroom for the non-file form fields. MaxBytesReader
	// cuts oversize bodies off at the wire instead of spooling them to disk
	// just to reject them afterwards.
	limit := policy.MaxBytes + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := r.ParseMultipartForm(limit)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeServiceError(w, validation.TooLarge(policy), "upload_failed")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "file field is required")
		return
	}
	defer func() {
		closeErr := file.Close()
		if closeErr != nil {
			slog.Error("failed to close uploaded file", "error", closeErr)
		}
	}()

	deliverableID := firstFormValue(r, deliverableIDKeys)
	skillID := firstFormValue(r, skillIDKeys)
	if deliverableID == "" || skillID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "deliverableId and skillId are required")
		return
	}

	contentType := header.Header.Get("Content-Type")

	doc, warning, err := h.evidenceService.DirectUpload(r.Context(), user, service.DirectUploadInput{
		DeliverableID: deliverableID,
		SkillID:       skillID,
		FileName:      header.Filename,
		ContentType:   contentType,
		Size:          header.Size,
		Body:          file,
	})
	if err != nil {
		writeServiceError(w, err, "upload_failed")
		return
	}

	writeJSON(w, http.StatusOK, commitResponse{Success: true, Evidence: doc, Warning: warning})
}

func firstFormValue(r *http.Request, keys []string) string {
	for _, k := range keys {
		if v := r.FormValue(k); v != "" {
			return v
		}
	}
	return ""
}
