package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/model"
)

// APIClient talks to the evidence endpoints on behalf of a signed-in user.
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server, carrying the decoded
// error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server rejected request (%d %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("server rejected request (%d %s)", e.Status, e.Code)
}

// Retryable reports whether retrying the identical request can succeed.
// Validation and authorization failures cannot; server/storage hiccups can.
func (e *APIError) Retryable() bool {
	return e.Status >= 500
}

type PresignRequest struct {
	DeliverableID string `json:"deliverableId"`
	SkillID       string `json:"skillId"`
	FileName      string `json:"filename"`
	ContentType   string `json:"contentType"`
	ByteSize      int64  `json:"byteSize"`
	Checksum      string `json:"checksum,omitempty"`
}

type PresignResponse struct {
	UploadURL        string            `json:"uploadUrl"`
	Key              string            `json:"key"`
	ExpiresAt        time.Time         `json:"expiresAt"`
	Headers          map[string]string `json:"headers"`
	Provider         string            `json:"provider"`
	MaxBytes         int64             `json:"maxBytes"`
	AllowedMimeTypes []string          `json:"allowedMimeTypes"`
}

type CommitRequest struct {
	DeliverableID     string `json:"deliverableId"`
	SkillID           string `json:"skillId"`
	StorageKey        string `json:"storageKey"`
	FileName          string `json:"fileName"`
	MimeType          string `json:"mimeType"`
	FileSize          int64  `json:"fileSize"`
	Checksum          string `json:"checksum,omitempty"`
	ReplaceEvidenceID string `json:"replaceEvidenceId,omitempty"`
}

type CommitResponse struct {
	Success  bool                    `json:"success"`
	Evidence *model.EvidenceDocument `json:"evidence,omitempty"`
	Warning  string                  `json:"warning,omitempty"`
}

func (c *APIClient) Presign(ctx context.Context, req PresignRequest) (*PresignResponse, error) {
	var resp PresignResponse
	err := c.do(ctx, http.MethodPost, "/api/evidence/presign", req, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) Commit(ctx context.Context, req CommitRequest) (*CommitResponse, error) {
	var resp CommitResponse
	err := c.do(ctx, http.MethodPost, "/api/evidence/commit", req, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) Delete(ctx context.Context, evidenceID, skillID string) (*CommitResponse, error) {
	path := fmt.Sprintf("/api/evidence/%s?skillId=%s", url.PathEscape(evidenceID), url.QueryEscape(skillID))
	var resp CommitResponse
	err := c.do(ctx, http.MethodDelete, path, nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health fetches the storage diagnostics snapshot, decoded loosely so the
// CLI can print whatever the server reports. The endpoint answers 503 with
// the same body when storage is misconfigured; that is still a successful
// diagnosis, so both statuses return the report.
func (c *APIClient) Health(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/storage/health?details=1", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, &APIError{Status: resp.StatusCode}
	}

	var report map[string]any
	err = json.NewDecoder(resp.Body).Decode(&report)
	if err != nil {
		return nil, fmt.Errorf("failed to decode diagnostics: %w", err)
	}
	return report, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&envelope); decodeErr == nil {
			apiErr.Code = envelope.Error
			apiErr.Message = envelope.Message
		}
		return apiErr
	}

	if out != nil {
		err = json.NewDecoder(resp.Body).Decode(out)
		if err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
