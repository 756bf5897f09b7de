package uploader

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "deliverables/skill-1/deliv-1/1700000000000-abcd1234-report.pdf"

// pipelineServer simulates the evidence API plus the storage provider's
// presigned PUT endpoint on a single httptest server.
type pipelineServer struct {
	t   *testing.T
	srv *httptest.Server

	presigns  atomic.Int64
	puts      atomic.Int64
	commits   atomic.Int64
	putBody   []byte
	putHeader http.Header
	committed CommitRequest

	presignStatus int
	putStatus     int
	commitStatus  int
}

func newPipelineServer(t *testing.T) *pipelineServer {
	t.Helper()
	p := &pipelineServer{
		t:             t,
		presignStatus: http.StatusOK,
		putStatus:     http.StatusOK,
		commitStatus:  http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/evidence/presign", p.handlePresign)
	mux.HandleFunc("PUT /object/{key...}", p.handlePut)
	mux.HandleFunc("POST /api/evidence/commit", p.handleCommit)
	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func (p *pipelineServer) handlePresign(w http.ResponseWriter, r *http.Request) {
	p.presigns.Add(1)
	assert.Equal(p.t, "Bearer test-token", r.Header.Get("Authorization"))

	var req PresignRequest
	require.NoError(p.t, json.NewDecoder(r.Body).Decode(&req))
	assert.NotEmpty(p.t, req.Checksum)
	assert.Positive(p.t, req.ByteSize)

	if p.presignStatus != http.StatusOK {
		w.WriteHeader(p.presignStatus)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "presign_failed"})
		return
	}

	_ = json.NewEncoder(w).Encode(PresignResponse{
		UploadURL: p.srv.URL + "/object/" + testKey,
		Key:       testKey,
		ExpiresAt: time.Now().Add(15 * time.Minute),
		Headers: map[string]string{
			"Content-Type":          req.ContentType,
			"x-amz-checksum-sha256": req.Checksum,
		},
		Provider: "minio",
		MaxBytes: 25 << 20,
	})
}

func (p *pipelineServer) handlePut(w http.ResponseWriter, r *http.Request) {
	p.puts.Add(1)
	if p.putStatus != http.StatusOK {
		w.WriteHeader(p.putStatus)
		return
	}
	body, err := io.ReadAll(r.Body)
	require.NoError(p.t, err)
	p.putBody = body
	p.putHeader = r.Header.Clone()
}

func (p *pipelineServer) handleCommit(w http.ResponseWriter, r *http.Request) {
	p.commits.Add(1)
	if p.commitStatus != http.StatusOK {
		w.WriteHeader(p.commitStatus)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "commit_failed"})
		return
	}
	require.NoError(p.t, json.NewDecoder(r.Body).Decode(&p.committed))
	_ = json.NewEncoder(w).Encode(CommitResponse{Success: true})
}

func newTestUploader(p *pipelineServer) *Uploader {
	return NewUploader(NewAPIClient(p.srv.URL, "test-token"))
}

func testRequest(data []byte) UploadRequest {
	return UploadRequest{
		DeliverableID: "deliv-1",
		SkillID:       "skill-1",
		FileName:      "report.pdf",
		Data:          data,
	}
}

func TestUploadEndToEnd(t *testing.T) {
	p := newPipelineServer(t)
	up := newTestUploader(p)

	var phases []Phase
	up.OnPhase = func(ph Phase) { phases = append(phases, ph) }

	var lastSent, lastTotal int64
	up.OnProgress = func(sent, total int64) { lastSent, lastTotal = sent, total }

	data := []byte(strings.Repeat("evidence bytes ", 1000))
	result, err := up.Upload(context.Background(), testRequest(data))
	require.NoError(t, err)

	// One call to each stage, in order, and the uploader is idle again.
	assert.Equal(t, int64(1), p.presigns.Load())
	assert.Equal(t, int64(1), p.puts.Load())
	assert.Equal(t, int64(1), p.commits.Load())
	assert.Equal(t, []Phase{PhasePreparing, PhaseUploading, PhaseCommitting, PhaseIdle}, phases)
	assert.Equal(t, PhaseIdle, up.Phase())

	// The provider received exactly the bytes and the issued headers.
	assert.Equal(t, data, p.putBody)
	assert.Equal(t, "application/pdf", p.putHeader.Get("Content-Type"))

	sum := sha256.Sum256(data)
	wantChecksum := base64.StdEncoding.EncodeToString(sum[:])
	assert.Equal(t, wantChecksum, p.putHeader.Get("x-amz-checksum-sha256"))

	// The commit claims the presigned key with matching metadata.
	assert.Equal(t, testKey, p.committed.StorageKey)
	assert.Equal(t, wantChecksum, p.committed.Checksum)
	assert.Equal(t, int64(len(data)), p.committed.FileSize)
	assert.Equal(t, "application/pdf", p.committed.MimeType)

	assert.Equal(t, testKey, result.Key)
	assert.Equal(t, wantChecksum, result.Checksum)
	assert.Equal(t, int64(len(data)), lastSent)
	assert.Equal(t, int64(len(data)), lastTotal)
}

func TestUploadResolvesMimeFromExtension(t *testing.T) {
	p := newPipelineServer(t)
	up := newTestUploader(p)

	req := testRequest([]byte("png bytes"))
	req.FileName = "photo.PNG"
	req.ContentType = ""

	_, err := up.Upload(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "image/png", p.committed.MimeType)
}

func TestUploadValidatesBeforeNetwork(t *testing.T) {
	p := newPipelineServer(t)
	up := newTestUploader(p)

	t.Run("empty file", func(t *testing.T) {
		_, err := up.Upload(context.Background(), testRequest(nil))
		var upErr *Error
		require.ErrorAs(t, err, &upErr)
		assert.Equal(t, PhasePreparing, upErr.Phase)
		assert.False(t, upErr.Retryable())
	})

	t.Run("oversize file", func(t *testing.T) {
		up.MaxBytes = 10
		defer func() { up.MaxBytes = 25 << 20 }()

		_, err := up.Upload(context.Background(), testRequest([]byte("more than ten bytes")))
		var upErr *Error
		require.ErrorAs(t, err, &upErr)
		assert.False(t, upErr.Retryable())
	})

	t.Run("unsupported declared type", func(t *testing.T) {
		req := testRequest([]byte("data"))
		req.ContentType = "application/zip"

		_, err := up.Upload(context.Background(), req)
		var upErr *Error
		require.ErrorAs(t, err, &upErr)
		assert.Equal(t, PhasePreparing, upErr.Phase)
		assert.False(t, upErr.Retryable())
	})

	t.Run("unknown extension resolves to a disallowed type", func(t *testing.T) {
		req := testRequest([]byte("data"))
		req.FileName = "archive.zip"
		req.ContentType = ""

		_, err := up.Upload(context.Background(), req)
		var upErr *Error
		require.ErrorAs(t, err, &upErr)
		assert.False(t, upErr.Retryable())
	})

	assert.Zero(t, p.presigns.Load(), "local validation must not reach the server")
}

func TestUploadErrorClassification(t *testing.T) {
	cases := []struct {
		name      string
		configure func(*pipelineServer)
		phase     Phase
		retryable bool
	}{
		{
			name:      "presign forbidden",
			configure: func(p *pipelineServer) { p.presignStatus = http.StatusForbidden },
			phase:     PhasePreparing,
			retryable: false,
		},
		{
			name:      "presign server error",
			configure: func(p *pipelineServer) { p.presignStatus = http.StatusInternalServerError },
			phase:     PhasePreparing,
			retryable: true,
		},
		{
			name:      "storage rejects put",
			configure: func(p *pipelineServer) { p.putStatus = http.StatusForbidden },
			phase:     PhaseUploading,
			retryable: true,
		},
		{
			name:      "commit rejected",
			configure: func(p *pipelineServer) { p.commitStatus = http.StatusBadRequest },
			phase:     PhaseCommitting,
			retryable: false,
		},
		{
			name:      "commit server error",
			configure: func(p *pipelineServer) { p.commitStatus = http.StatusServiceUnavailable },
			phase:     PhaseCommitting,
			retryable: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newPipelineServer(t)
			tc.configure(p)
			up := newTestUploader(p)

			_, err := up.Upload(context.Background(), testRequest([]byte("data")))
			var upErr *Error
			require.ErrorAs(t, err, &upErr)
			assert.Equal(t, tc.phase, upErr.Phase)
			assert.Equal(t, tc.retryable, upErr.Retryable())
			assert.Equal(t, PhaseIdle, up.Phase(), "uploader must return to idle after failure")
		})
	}
}

func TestUploadSingleFlight(t *testing.T) {
	p := newPipelineServer(t)
	up := newTestUploader(p)

	up.mu.Lock()
	up.phase = PhaseUploading
	up.mu.Unlock()

	_, err := up.Upload(context.Background(), testRequest([]byte("data")))
	assert.ErrorIs(t, err, ErrUploadInFlight)
	assert.Zero(t, p.presigns.Load())
}

func TestUploadCanceledContextIsNotRetryable(t *testing.T) {
	p := newPipelineServer(t)
	up := newTestUploader(p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := up.Upload(ctx, testRequest([]byte("data")))
	var upErr *Error
	require.ErrorAs(t, err, &upErr)
	assert.False(t, upErr.Retryable())
}

func TestRemove(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/evidence/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ev-1", r.PathValue("id"))
		assert.Equal(t, "skill-1", r.URL.Query().Get("skillId"))
		_ = json.NewEncoder(w).Encode(CommitResponse{Success: true, Warning: "leftover object"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	up := NewUploader(NewAPIClient(srv.URL, "test-token"))
	warning, err := up.Remove(context.Background(), "ev-1", "skill-1")
	require.NoError(t, err)
	assert.Equal(t, "leftover object", warning)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "preparing", PhasePreparing.String())
	assert.Equal(t, "uploading", PhaseUploading.String())
	assert.Equal(t, "committing", PhaseCommitting.String())
}
