package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/ctxkeys"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/service"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/storage"
)

type EvidenceHandler struct {
	evidenceService *service.EvidenceService
}

func NewEvidenceHandler(evidenceService *service.EvidenceService) *EvidenceHandler {
	return &EvidenceHandler{evidenceService: evidenceService}
}

// Field aliases accepted for backward compatibility with older clients.
// Normalization picks the first present alias per field.
var (
	deliverableIDKeys = []string{"deliverableId", "deliverableID", "deliverable_id"}
	skillIDKeys       = []string{"skillId", "skillID", "skill_id"}
	fileNameKeys      = []string{"filename", "fileName", "name"}
	contentTypeKeys   = []string{"contentType", "mimeType", "type"}
	byteSizeKeys      = []string{"byteSize", "size", "fileSize", "contentLength"}
	checksumKeys      = []string{"checksum", "sha256", "checksumSha256"}
	storageKeyKeys    = []string{"storageKey", "key"}
	replaceIDKeys     = []string{"replaceEvidenceId", "replaceEvidenceID", "replaceId"}
)

// body is a loosely-typed request payload before normalization.
type body map[string]any

func decodeBody(r *http.Request) (body, bool) {
	var b body
	err := json.NewDecoder(r.Body).Decode(&b)
	return b, err == nil && b != nil
}

func (b body) str(keys []string) string {
	for _, k := range keys {
		if v, ok := b[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (b body) num(keys []string) int64 {
	for _, k := range keys {
		switch v := b[k].(type) {
		case float64:
			return int64(v)
		case json.Number:
			n, err := v.Int64()
			if err == nil {
				return n
			}
		}
	}
	return 0
}

// Presign handles POST /api/evidence/presign.
func (h *EvidenceHandler) Presign(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	b, ok := decodeBody(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be a JSON object")
		return
	}

	in := service.PresignInput{
		DeliverableID: b.str(deliverableIDKeys),
		SkillID:       b.str(skillIDKeys),
		FileName:      b.str(fileNameKeys),
		ContentType:   b.str(contentTypeKeys),
		ByteSize:      b.num(byteSizeKeys),
		Checksum:      b.str(checksumKeys),
	}

	if msg := missingField(
		field{"deliverableId", in.DeliverableID},
		field{"skillId", in.SkillID},
		field{"filename", in.FileName},
		field{"contentType", in.ContentType},
	); msg != "" {
		writeError(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}
	if in.ByteSize <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "byteSize is required and must be positive")
		return
	}

	result, err := h.evidenceService.PreparePresign(r.Context(), user, in)
	if err != nil {
		writeServiceError(w, err, "presign_failed")
		return
	}

	writeJSON(w, http.StatusOK, presignResponse{
		UploadURL:        result.Upload.URL,
		Key:              result.Upload.Key,
		ExpiresAt:        result.Upload.ExpiresAt,
		Headers:          result.Upload.Headers,
		Provider:         result.Upload.Provider,
		MaxBytes:         result.MaxBytes,
		AllowedMimeTypes: result.AllowedMimeTypes,
	})
}

type presignResponse struct {
	UploadURL        string            `json:"uploadUrl"`
	Key              string            `json:"key"`
	ExpiresAt        time.Time         `json:"expiresAt"`
	Headers          map[string]string `json:"headers"`
	Provider         storage.Provider  `json:"provider"`
	MaxBytes         int64             `json:"maxBytes"`
	AllowedMimeTypes []string          `json:"allowedMimeTypes"`
}

// Commit handles POST /api/evidence/commit.
func (h *EvidenceHandler) Commit(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	b, ok := decodeBody(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be a JSON object")
		return
	}

	in := service.CommitInput{
		DeliverableID:     b.str(deliverableIDKeys),
		SkillID:           b.str(skillIDKeys),
		StorageKey:        b.str(storageKeyKeys),
		FileName:          b.str(fileNameKeys),
		MimeType:          b.str(contentTypeKeys),
		FileSize:          b.num(byteSizeKeys),
		Checksum:          b.str(checksumKeys),
		ReplaceEvidenceID: b.str(replaceIDKeys),
	}

	if msg := missingField(
		field{"deliverableId", in.DeliverableID},
		field{"skillId", in.SkillID},
		field{"storageKey", in.StorageKey},
		field{"fileName", in.FileName},
		field{"mimeType", in.MimeType},
	); msg != "" {
		writeError(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	doc, warning, err := h.evidenceService.Commit(r.Context(), user, in)
	if err != nil {
		writeServiceError(w, err, "commit_failed")
		return
	}

	writeJSON(w, http.StatusOK, commitResponse{Success: true, Evidence: doc, Warning: warning})
}

type commitResponse struct {
	Success  bool   `json:"success"`
	Evidence any    `json:"evidence,omitempty"`
	Warning  string `json:"warning,omitempty"`
}

// Delete handles DELETE /api/evidence/{id}?skillId=.
func (h *EvidenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	evidenceID := r.PathValue("id")
	skillID := r.URL.Query().Get("skillId")

	if skillID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "skillId query parameter is required")
		return
	}

	warning, err := h.evidenceService.Remove(r.Context(), user, evidenceID, skillID)
	if err != nil {
		writeServiceError(w, err, "delete_failed")
		return
	}

	writeJSON(w, http.StatusOK, commitResponse{Success: true, Warning: warning})
}

// Download handles GET /api/evidence/{id}/download?skillId=.
func (h *EvidenceHandler) Download(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	evidenceID := r.PathValue("id")
	skillID := r.URL.Query().Get("skillId")

	if skillID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "skillId query parameter is required")
		return
	}

	url, expiresAt, err := h.evidenceService.DownloadURL(r.Context(), user, evidenceID, skillID)
	if err != nil {
		writeServiceError(w, err, "download_failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"downloadUrl": url,
		"expiresAt":   expiresAt,
	})
}

type field struct {
	name, value string
}

// missingField reports the first absent field in declaration order, so the
// same incomplete request always yields the same message.
func missingField(fields ...field) string {
	for _, f := range fields {
		if f.value == "" {
			return f.name + " is required"
		}
	}
	return ""
}
