package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/model"
)

var (
	ErrEvidenceNotFound = errors.New("evidence document not found")
)

type EvidenceRepository interface {
	ByID(id string) (*model.EvidenceDocument, error)
	ByDeliverable(deliverableID string) (*model.EvidenceDocument, error)
	// Replace writes doc as the deliverable's current evidence, removing any
	// previous row in the same transaction.
	Replace(doc *model.EvidenceDocument) error
	Delete(id string) error
	UpdateStatus(id, status string) error
}

type evidenceRepository struct {
	db *sqlx.DB
}

func NewEvidenceRepository(db *sqlx.DB) *evidenceRepository {
	return &evidenceRepository{db: db}
}

func (r *evidenceRepository) ByID(id string) (*model.EvidenceDocument, error) {
	doc := &model.EvidenceDocument{}
	query := `SELECT * FROM evidence_documents WHERE id = $1`

	err := r.db.Get(doc, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrEvidenceNotFound
	}

	return doc, err
}

func (r *evidenceRepository) ByDeliverable(deliverableID string) (*model.EvidenceDocument, error) {
	doc := &model.EvidenceDocument{}
	query := `SELECT * FROM evidence_documents WHERE deliverable_id = $1`

	err := r.db.Get(doc, query, deliverableID)
	if err == sql.ErrNoRows {
		return nil, ErrEvidenceNotFound
	}

	return doc, err
}

func (r *evidenceRepository) Replace(doc *model.EvidenceDocument) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`DELETE FROM evidence_documents WHERE deliverable_id = $1`, doc.DeliverableID)
	if err != nil {
		return fmt.Errorf("failed to remove previous evidence: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO evidence_documents
	        (id, deliverable_id, file_name, storage_key, file_size, mime_type, checksum, status, uploaded_by, uploaded_at, added_at)
	        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		doc.ID,
		doc.DeliverableID,
		doc.FileName,
		doc.StorageKey,
		doc.FileSize,
		doc.MimeType,
		doc.Checksum,
		doc.Status,
		doc.UploadedBy,
		doc.UploadedAt,
		doc.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert evidence: %w", err)
	}

	return tx.Commit()
}

func (r *evidenceRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM evidence_documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrEvidenceNotFound
	}
	return nil
}

func (r *evidenceRepository) UpdateStatus(id, status string) error {
	result, err := r.db.Exec(`UPDATE evidence_documents SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrEvidenceNotFound
	}
	return nil
}
