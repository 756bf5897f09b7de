package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func resetPolicyEnv(t *testing.T) {
	t.Helper()
	for _, key := range maxMBKeys {
		t.Setenv(key, "")
	}
	for _, key := range allowedTypesKeys {
		t.Setenv(key, "")
	}
	ResetPolicy()
	t.Cleanup(ResetPolicy)
}

func TestPolicy_Defaults(t *testing.T) {
	resetPolicyEnv(t)

	p := Policy()
	assert.Equal(t, int64(DefaultMaxUploadBytes), p.MaxBytes)
	assert.Equal(t, defaultAllowedMimeTypes, p.AllowedMimeTypes)
	assert.True(t, p.Allows("application/pdf"))
	assert.True(t, p.Allows("IMAGE/PNG"), "matching is case-insensitive")
	assert.False(t, p.Allows("application/zip"))
}

func TestPolicy_MaxBytesFromEnv(t *testing.T) {
	resetPolicyEnv(t)
	t.Setenv("FILE_MAX_MB", "50")

	p := Policy()
	assert.Equal(t, int64(50<<20), p.MaxBytes)
	assert.Equal(t, int64(50), p.MaxMB())
}

func TestPolicy_InvalidMaxFallsBack(t *testing.T) {
	for _, v := range []string{"0", "-3", "banana"} {
		t.Run(v, func(t *testing.T) {
			resetPolicyEnv(t)
			t.Setenv("FILE_MAX_MB", v)
			assert.Equal(t, int64(DefaultMaxUploadBytes), Policy().MaxBytes)
		})
	}
}

func TestPolicy_AllowedTypesParsed(t *testing.T) {
	resetPolicyEnv(t)
	t.Setenv("FILE_ALLOWED_TYPES", " application/pdf , image/png,application/pdf, ,IMAGE/JPEG")

	p := Policy()
	assert.Equal(t, []string{"application/pdf", "image/png", "image/jpeg"}, p.AllowedMimeTypes,
		"trimmed, lowercased, de-duplicated, empties dropped")
}

func TestPolicy_Memoized(t *testing.T) {
	resetPolicyEnv(t)
	t.Setenv("FILE_MAX_MB", "10")
	assert.Equal(t, int64(10<<20), Policy().MaxBytes)

	// Without a reset the cached value sticks.
	t.Setenv("FILE_MAX_MB", "99")
	assert.Equal(t, int64(10<<20), Policy().MaxBytes)

	ResetPolicy()
	assert.Equal(t, int64(99<<20), Policy().MaxBytes)
}
