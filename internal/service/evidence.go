package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/config"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/model"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/repository"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/storage"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/validation"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("not authorized to manage this skill")
	ErrSkillMismatch = errors.New("deliverable does not belong to the given skill")

	// Download gating on the evidence status tri-state.
	ErrEvidenceProcessing = errors.New("evidence document is still processing")
	ErrEvidenceBlocked    = errors.New("evidence document is blocked")
)

const cleanupWarning = "evidence saved, but the previous file could not be removed from storage"

// EvidenceService orchestrates the upload pipeline on the server side:
// authorization, validation, storage key construction, presign issuing and
// the transactional commit/replace/remove of evidence metadata.
type EvidenceService struct {
	deliverableRepo repository.DeliverableRepository
	skillRepo       repository.SkillRepository
	evidenceRepo    repository.EvidenceRepository
	activityRepo    repository.ActivityRepository
	store           storage.ObjectStore
}

func NewEvidenceService(
	deliverableRepo repository.DeliverableRepository,
	skillRepo repository.SkillRepository,
	evidenceRepo repository.EvidenceRepository,
	activityRepo repository.ActivityRepository,
	store storage.ObjectStore,
) *EvidenceService {
	return &EvidenceService{
		deliverableRepo: deliverableRepo,
		skillRepo:       skillRepo,
		evidenceRepo:    evidenceRepo,
		activityRepo:    activityRepo,
		store:           store,
	}
}

type PresignInput struct {
	DeliverableID string
	SkillID       string
	FileName      string
	ContentType   string
	ByteSize      int64
	Checksum      string
}

// PresignResult bundles the upload authorization with the policy limits so
// clients can render them without a second request.
type PresignResult struct {
	Upload           *storage.PresignedUpload
	MaxBytes         int64
	AllowedMimeTypes []string
}

type CommitInput struct {
	DeliverableID     string
	SkillID           string
	StorageKey        string
	FileName          string
	MimeType          string
	FileSize          int64
	Checksum          string
	ReplaceEvidenceID string
}

// authorize loads the deliverable and its skill and verifies user may manage
// it. Run on every operation: presign succeeding never implies commit is
// authorized, the two are separate requests and state may have changed.
func (s *EvidenceService) authorize(user *model.User, skillID, deliverableID string) (*model.Deliverable, *model.Skill, error) {
	deliverable, err := s.deliverableRepo.ByID(deliverableID)
	if err != nil {
		if errors.Is(err, repository.ErrDeliverableNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to load deliverable: %w", err)
	}

	// Reject cross-skill access before touching anything else; a valid
	// deliverable id from another skill must not open that skill's namespace.
	if deliverable.SkillID != skillID {
		return nil, nil, ErrSkillMismatch
	}

	skill, err := s.skillRepo.ByID(deliverable.SkillID)
	if err != nil {
		if errors.Is(err, repository.ErrSkillNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to load skill: %w", err)
	}

	if !skill.ManagedBy(user) {
		return nil, nil, ErrForbidden
	}
	return deliverable, skill, nil
}

// BuildStorageKey constructs the namespaced object key. Timestamp plus random
// suffix prevents collisions; the sanitized name prevents path traversal.
func BuildStorageKey(skillID, deliverableID, fileName string) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("deliverables/%s/%s/%d-%s-%s",
		skillID, deliverableID, time.Now().UnixMilli(), suffix, validation.SanitizeFileName(fileName))
}

// keyPrefix is the namespace a commit for this skill/deliverable must stay in.
func keyPrefix(skillID, deliverableID string) string {
	return fmt.Sprintf("deliverables/%s/%s/", skillID, deliverableID)
}

// PreparePresign validates and authorizes an upload request, then issues a
// presigned PUT. Issuing is idempotent; nothing is persisted here.
func (s *EvidenceService) PreparePresign(ctx context.Context, user *model.User, in PresignInput) (*PresignResult, error) {
	policy := config.Policy()

	// Size ceiling first: cheapest check, fails before any data access.
	if in.ByteSize > policy.MaxBytes {
		return nil, validation.TooLarge(policy)
	}

	deliverable, skill, err := s.authorize(user, in.SkillID, in.DeliverableID)
	if err != nil {
		return nil, err
	}

	err = validation.ValidateEvidenceInput(in.ContentType, in.ByteSize, policy)
	if err != nil {
		return nil, err
	}

	key := BuildStorageKey(skill.ID, deliverable.ID, in.FileName)
	upload, err := s.store.PresignPut(ctx, storage.PutRequest{
		Key:            key,
		ContentType:    in.ContentType,
		ContentLength:  in.ByteSize,
		ChecksumSHA256: in.Checksum,
	})
	if err != nil {
		return nil, err
	}

	return &PresignResult{
		Upload:           upload,
		MaxBytes:         policy.MaxBytes,
		AllowedMimeTypes: policy.AllowedMimeTypes,
	}, nil
}

// Commit durably associates an uploaded object with the deliverable. The
// metadata write happens first; removing a superseded object is best-effort
// afterwards and surfaces only as a warning.
func (s *EvidenceService) Commit(ctx context.Context, user *model.User, in CommitInput) (*model.EvidenceDocument, string, error) {
	deliverable, skill, err := s.authorize(user, in.SkillID, in.DeliverableID)
	if err != nil {
		return nil, "", err
	}

	err = validation.ValidateEvidenceInput(in.MimeType, in.FileSize, config.Policy())
	if err != nil {
		return nil, "", err
	}

	// The key must sit inside this deliverable's namespace. Anything else
	// means the client is trying to claim an object it did not presign.
	if !strings.HasPrefix(in.StorageKey, keyPrefix(skill.ID, deliverable.ID)) {
		return nil, "", &validation.FileError{
			Code:    validation.CodeInvalidRequest,
			Message: "storage key does not belong to this deliverable",
		}
	}

	if in.ReplaceEvidenceID != "" {
		replaced, err := s.evidenceRepo.ByID(in.ReplaceEvidenceID)
		if err != nil {
			if errors.Is(err, repository.ErrEvidenceNotFound) {
				return nil, "", ErrNotFound
			}
			return nil, "", fmt.Errorf("failed to load evidence to replace: %w", err)
		}
		if replaced.DeliverableID != deliverable.ID {
			return nil, "", &validation.FileError{
				Code:    validation.CodeInvalidRequest,
				Message: "replaceEvidenceId belongs to a different deliverable",
			}
		}
	}

	// Whatever currently occupies the slot is superseded by this commit.
	previous, err := s.evidenceRepo.ByDeliverable(deliverable.ID)
	if err != nil && !errors.Is(err, repository.ErrEvidenceNotFound) {
		return nil, "", fmt.Errorf("failed to load current evidence: %w", err)
	}

	now := time.Now()
	doc := &model.EvidenceDocument{
		ID:            uuid.New().String(),
		DeliverableID: deliverable.ID,
		FileName:      validation.SanitizeFileName(in.FileName),
		StorageKey:    in.StorageKey,
		FileSize:      in.FileSize,
		MimeType:      in.MimeType,
		Checksum:      in.Checksum,
		Status:        model.EvidenceStatusProcessing,
		UploadedBy:    user.ID,
		UploadedAt:    now,
		AddedAt:       now,
	}

	err = s.evidenceRepo.Replace(doc)
	if err != nil {
		return nil, "", fmt.Errorf("failed to persist evidence: %w", err)
	}

	warning := ""
	if previous != nil && previous.StorageKey != doc.StorageKey {
		warning = s.cleanupObject(ctx, previous.StorageKey)
	}

	s.recordActivity(user.ID, "evidence.commit", deliverable.ID, doc.FileName)
	return doc, warning, nil
}

// Remove deletes the evidence metadata and, best-effort, the backing object.
func (s *EvidenceService) Remove(ctx context.Context, user *model.User, evidenceID, skillID string) (string, error) {
	doc, err := s.evidenceRepo.ByID(evidenceID)
	if err != nil {
		if errors.Is(err, repository.ErrEvidenceNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to load evidence: %w", err)
	}

	deliverable, _, err := s.authorize(user, skillID, doc.DeliverableID)
	if err != nil {
		return "", err
	}

	err = s.evidenceRepo.Delete(doc.ID)
	if err != nil {
		return "", fmt.Errorf("failed to delete evidence: %w", err)
	}

	warning := s.cleanupObject(ctx, doc.StorageKey)
	s.recordActivity(user.ID, "evidence.remove", deliverable.ID, doc.FileName)
	return warning, nil
}

// DownloadURL issues a presigned GET for the evidence object, gated on the
// document status so unscanned or blocked files are never served.
func (s *EvidenceService) DownloadURL(ctx context.Context, user *model.User, evidenceID, skillID string) (string, time.Time, error) {
	doc, err := s.evidenceRepo.ByID(evidenceID)
	if err != nil {
		if errors.Is(err, repository.ErrEvidenceNotFound) {
			return "", time.Time{}, ErrNotFound
		}
		return "", time.Time{}, fmt.Errorf("failed to load evidence: %w", err)
	}

	_, _, err = s.authorize(user, skillID, doc.DeliverableID)
	if err != nil {
		return "", time.Time{}, err
	}

	switch doc.Status {
	case model.EvidenceStatusBlocked:
		return "", time.Time{}, ErrEvidenceBlocked
	case model.EvidenceStatusProcessing:
		return "", time.Time{}, ErrEvidenceProcessing
	}

	return s.store.PresignGet(ctx, doc.StorageKey)
}

type DirectUploadInput struct {
	DeliverableID string
	SkillID       string
	FileName      string
	ContentType   string
	Size          int64
	Body          io.Reader
}

// DirectUpload is the legacy single-request path: validate, authorize, PUT
// the body upstream, then commit, all in one request/response cycle. Holds
// the whole transfer open; large files belong on the presign path.
func (s *EvidenceService) DirectUpload(ctx context.Context, user *model.User, in DirectUploadInput) (*model.EvidenceDocument, string, error) {
	policy := config.Policy()
	if in.Size > policy.MaxBytes {
		return nil, "", validation.TooLarge(policy)
	}

	deliverable, skill, err := s.authorize(user, in.SkillID, in.DeliverableID)
	if err != nil {
		return nil, "", err
	}

	err = validation.ValidateEvidenceInput(in.ContentType, in.Size, policy)
	if err != nil {
		return nil, "", err
	}

	key := BuildStorageKey(skill.ID, deliverable.ID, in.FileName)
	err = s.store.Put(ctx, key, in.ContentType, in.Body, in.Size)
	if err != nil {
		return nil, "", err
	}

	return s.Commit(ctx, user, CommitInput{
		DeliverableID: deliverable.ID,
		SkillID:       skill.ID,
		StorageKey:    key,
		FileName:      in.FileName,
		MimeType:      in.ContentType,
		FileSize:      in.Size,
	})
}

// MarkScanned is the integration point for the external malware scanner:
// it flips the document out of processing once a verdict arrives.
func (s *EvidenceService) MarkScanned(evidenceID string, clean bool) error {
	status := model.EvidenceStatusReady
	if !clean {
		status = model.EvidenceStatusBlocked
	}

	err := s.evidenceRepo.UpdateStatus(evidenceID, status)
	if errors.Is(err, repository.ErrEvidenceNotFound) {
		return ErrNotFound
	}
	return err
}

// Deliverables lists a skill's deliverables with their current evidence
// attached, for the tracking views.
func (s *EvidenceService) Deliverables(user *model.User, skillID string) ([]*model.Deliverable, error) {
	skill, err := s.skillRepo.ByID(skillID)
	if err != nil {
		if errors.Is(err, repository.ErrSkillNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load skill: %w", err)
	}
	if !skill.ManagedBy(user) {
		return nil, ErrForbidden
	}

	deliverables, err := s.deliverableRepo.BySkill(skill.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliverables: %w", err)
	}

	for _, d := range deliverables {
		doc, err := s.evidenceRepo.ByDeliverable(d.ID)
		if err != nil {
			if errors.Is(err, repository.ErrEvidenceNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to load evidence: %w", err)
		}
		d.Evidence = doc
	}
	return deliverables, nil
}

// cleanupObject deletes a superseded object. Failure is logged and returned
// as a warning; it never fails the parent operation.
func (s *EvidenceService) cleanupObject(ctx context.Context, key string) string {
	err := s.store.Delete(ctx, key)
	if err != nil {
		slog.Warn("failed to delete superseded evidence object", "error", err, "key", key)
		return cleanupWarning
	}
	return ""
}

func (s *EvidenceService) recordActivity(userID, action, deliverableID, detail string) {
	err := s.activityRepo.Record(&repository.ActivityEntry{
		UserID:      userID,
		Action:      action,
		SubjectType: "deliverable",
		SubjectID:   deliverableID,
		Detail:      detail,
	})
	if err != nil {
		slog.Warn("failed to record activity", "error", err, "action", action)
	}
}
