package uploader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/config"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/validation"
)

// Phase is the uploader's position in the presign-put-commit sequence.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePreparing
	PhaseUploading
	PhaseCommitting
)

func (p Phase) String() string {
	switch p {
	case PhasePreparing:
		return "preparing"
	case PhaseUploading:
		return "uploading"
	case PhaseCommitting:
		return "committing"
	default:
		return "idle"
	}
}

// Error wraps a failure with the phase it occurred in and whether retrying
// the same upload can succeed.
type Error struct {
	Phase     Phase
	Err       error
	retryable bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("upload failed while %s: %v", e.Phase, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the same upload may succeed on retry. Policy and
// authorization rejections will not; transfer and server failures may.
func (e *Error) Retryable() bool { return e.retryable }

// ErrUploadInFlight is returned when Upload is called while a previous
// upload on the same Uploader has not finished.
var ErrUploadInFlight = errors.New("an upload is already in progress")

type UploadRequest struct {
	DeliverableID string
	SkillID       string
	FileName      string
	// ContentType is resolved from the file extension when empty.
	ContentType string
	Data        []byte
	// ReplaceEvidenceID marks the prior document this upload supersedes.
	ReplaceEvidenceID string
}

type Result struct {
	Key      string
	Checksum string
	Warning  string
}

// Uploader runs the three-step evidence upload against the server. A single
// Uploader handles one transfer at a time; concurrent Upload calls for the
// same deliverable would race on the replace semantics.
type Uploader struct {
	api        *APIClient
	httpClient *http.Client

	// MaxBytes and AllowedMimeTypes are the client-side policy checked
	// before any network call. They default to the server's default policy;
	// callers can overwrite them from a presign response's limits.
	MaxBytes         int64
	AllowedMimeTypes []string

	OnProgress ProgressFunc
	OnPhase    func(Phase)

	mu    sync.Mutex
	phase Phase
}

func NewUploader(api *APIClient) *Uploader {
	return &Uploader{
		api:              api,
		httpClient:       &http.Client{Timeout: 10 * time.Minute},
		MaxBytes:         config.DefaultMaxUploadBytes,
		AllowedMimeTypes: config.Policy().AllowedMimeTypes,
	}
}

// Phase returns the current phase. Safe to call from progress callbacks.
func (u *Uploader) Phase() Phase {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.phase
}

func (u *Uploader) setPhase(p Phase) {
	u.mu.Lock()
	u.phase = p
	u.mu.Unlock()
	if u.OnPhase != nil {
		u.OnPhase(p)
	}
}

// begin claims the uploader for a transfer, failing if one is in flight.
func (u *Uploader) begin() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.phase != PhaseIdle {
		return ErrUploadInFlight
	}
	u.phase = PhasePreparing
	return nil
}

// Upload performs presign, PUT and commit for one file. The checksum sent at
// presign and commit is the SHA-256 of the content, base64-encoded, so the
// provider can verify the bytes and the server can record what was stored.
func (u *Uploader) Upload(ctx context.Context, req UploadRequest) (*Result, error) {
	err := u.begin()
	if err != nil {
		return nil, err
	}
	defer u.setPhase(PhaseIdle)
	if u.OnPhase != nil {
		u.OnPhase(PhasePreparing)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = validation.MimeFromExtension(req.FileName)
	}

	// Same checks the server runs, against the client-held policy, so a
	// doomed request never burns a presign round trip.
	size := int64(len(req.Data))
	err = validation.ValidateEvidenceInput(contentType, size, config.UploadPolicy{
		MaxBytes:         u.MaxBytes,
		AllowedMimeTypes: u.AllowedMimeTypes,
	})
	if err != nil {
		return nil, &Error{Phase: PhasePreparing, Err: err}
	}

	sum := sha256.Sum256(req.Data)
	checksum := base64.StdEncoding.EncodeToString(sum[:])

	presigned, err := u.api.Presign(ctx, PresignRequest{
		DeliverableID: req.DeliverableID,
		SkillID:       req.SkillID,
		FileName:      req.FileName,
		ContentType:   contentType,
		ByteSize:      size,
		Checksum:      checksum,
	})
	if err != nil {
		return nil, u.classify(PhasePreparing, err)
	}

	u.setPhase(PhaseUploading)
	err = u.put(ctx, presigned, req.Data, size)
	if err != nil {
		return nil, err
	}

	u.setPhase(PhaseCommitting)
	committed, err := u.api.Commit(ctx, CommitRequest{
		DeliverableID:     req.DeliverableID,
		SkillID:           req.SkillID,
		StorageKey:        presigned.Key,
		FileName:          req.FileName,
		MimeType:          contentType,
		FileSize:          size,
		Checksum:          checksum,
		ReplaceEvidenceID: req.ReplaceEvidenceID,
	})
	if err != nil {
		return nil, u.classify(PhaseCommitting, err)
	}

	return &Result{Key: presigned.Key, Checksum: checksum, Warning: committed.Warning}, nil
}

// put sends the file bytes to the presigned URL with exactly the headers the
// server issued. Any extra or missing header breaks the provider's signature
// check.
func (u *Uploader) put(ctx context.Context, presigned *PresignResponse, data []byte, size int64) error {
	body := newProgressReader(bytes.NewReader(data), size, u.OnProgress)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, presigned.UploadURL, body)
	if err != nil {
		return &Error{Phase: PhaseUploading, Err: err}
	}
	httpReq.ContentLength = size
	for k, v := range presigned.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := u.httpClient.Do(httpReq)
	if err != nil {
		// Interrupted transfers are retryable unless the caller canceled.
		retryable := ctx.Err() == nil
		return &Error{Phase: PhaseUploading, Err: err, retryable: retryable}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// A fresh presign gives a new URL, so even expired-signature
		// rejections are worth retrying from the top.
		return &Error{
			Phase:     PhaseUploading,
			Err:       fmt.Errorf("storage provider rejected upload: %s", resp.Status),
			retryable: true,
		}
	}
	return nil
}

// Remove deletes an evidence document through the API.
func (u *Uploader) Remove(ctx context.Context, evidenceID, skillID string) (string, error) {
	resp, err := u.api.Delete(ctx, evidenceID, skillID)
	if err != nil {
		return "", err
	}
	return resp.Warning, nil
}

// classify wraps API failures with the phase and retry classification.
func (u *Uploader) classify(phase Phase, err error) *Error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return &Error{Phase: phase, Err: err, retryable: apiErr.Retryable()}
	}
	// Transport-level failure: retry is safe unless the caller canceled.
	retryable := !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	return &Error{Phase: phase, Err: err, retryable: retryable}
}
