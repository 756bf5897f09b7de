package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/storage"
)

// storageEnvKeys covers every alias the resolver consults, so tests can
// start from a clean environment.
var storageEnvKeys = []string{
	"FILE_STORAGE_BUCKET", "AWS_S3_BUCKET", "S3_BUCKET", "STORAGE_BUCKET",
	"FILE_STORAGE_REGION", "AWS_S3_REGION", "AWS_REGION", "S3_REGION",
	"FILE_STORAGE_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID", "S3_ACCESS_KEY", "MINIO_ROOT_USER",
	"FILE_STORAGE_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY", "S3_SECRET_KEY", "MINIO_ROOT_PASSWORD",
	"FILE_STORAGE_ENDPOINT", "AWS_S3_ENDPOINT", "S3_ENDPOINT", "MINIO_ENDPOINT",
	"FILE_STORAGE_FORCE_PATH_STYLE", "S3_FORCE_PATH_STYLE",
	"BLOB_READ_WRITE_TOKEN",
}

func clearStorageEnv(t *testing.T) {
	t.Helper()
	for _, key := range storageEnvKeys {
		t.Setenv(key, "")
	}
}

func TestHealthHandlerUnconfigured(t *testing.T) {
	clearStorageEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/storage/health", nil)
	rec := httptest.NewRecorder()
	NewStorageHealthHandler().Health(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var d storage.Diagnostics
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&d))
	assert.False(t, d.OK)
	assert.ElementsMatch(t, []string{"bucket", "accessKeyId", "secretAccessKey"}, d.Missing)
	assert.Nil(t, d.Requirements, "breakdown is opt-in via details=1")
}

func TestHealthHandlerConfigured(t *testing.T) {
	clearStorageEnv(t)
	t.Setenv("S3_BUCKET", "evidence")
	t.Setenv("MINIO_ROOT_USER", "minioadmin")
	t.Setenv("MINIO_ROOT_PASSWORD", "secret-value")
	t.Setenv("MINIO_ENDPOINT", "http://minio:9000")

	req := httptest.NewRequest(http.MethodGet, "/api/storage/health?details=1", nil)
	rec := httptest.NewRecorder()
	NewStorageHealthHandler().Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	raw := rec.Body.String()

	var d storage.Diagnostics
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	assert.True(t, d.OK)
	assert.Equal(t, storage.ProviderMinio, d.Provider)
	assert.True(t, d.AccessKeyPresent)
	assert.True(t, d.SecretKeyPresent)
	assert.NotEmpty(t, d.Requirements)

	// Presence only: the secret value itself never leaves the process.
	assert.NotContains(t, raw, "secret-value")
	assert.NotContains(t, raw, "minioadmin")
}
