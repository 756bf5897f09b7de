package model

import (
	"time"
)

// Evidence document status. Malware scanning runs outside this service, so
// the status is an explicit tri-state the download endpoint gates on.
const (
	EvidenceStatusProcessing = "processing"
	EvidenceStatusReady      = "ready"
	EvidenceStatusBlocked    = "blocked"
)

// EvidenceDocument is the metadata record for one uploaded file attached to
// a deliverable. StorageKey is always server-generated, never client-supplied.
type EvidenceDocument struct {
	ID            string    `db:"id" json:"id"`
	DeliverableID string    `db:"deliverable_id" json:"deliverableId"`
	FileName      string    `db:"file_name" json:"fileName"`
	StorageKey    string    `db:"storage_key" json:"storageKey"`
	FileSize      int64     `db:"file_size" json:"fileSize"`
	MimeType      string    `db:"mime_type" json:"mimeType"`
	Checksum      string    `db:"checksum" json:"checksum,omitempty"`
	Status        string    `db:"status" json:"status"`
	UploadedBy    string    `db:"uploaded_by" json:"uploadedBy"`
	UploadedAt    time.Time `db:"uploaded_at" json:"uploadedAt"`
	AddedAt       time.Time `db:"added_at" json:"addedAt"`
}

// Downloadable reports whether consumers may fetch the backing object.
func (e *EvidenceDocument) Downloadable() bool {
	return e.Status == EvidenceStatusReady
}
