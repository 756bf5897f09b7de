package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
)

// DefaultMaxUploadBytes is applied when FILE_MAX_MB is unset or non-positive.
const DefaultMaxUploadBytes = 25 << 20 // 25 MiB

// defaultAllowedMimeTypes covers the document formats deliverable evidence
// is expected in: PDF, Word (new and legacy), JPEG and PNG.
var defaultAllowedMimeTypes = []string{
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/msword",
	"image/jpeg",
	"image/png",
}

var maxMBKeys = []string{"FILE_MAX_MB", "UPLOAD_MAX_MB"}

var allowedTypesKeys = []string{"FILE_ALLOWED_TYPES", "UPLOAD_ALLOWED_TYPES"}

// UploadPolicy is the size/type contract enforced on evidence uploads.
type UploadPolicy struct {
	MaxBytes         int64
	AllowedMimeTypes []string
}

// Allows reports whether mimeType is on the policy allow-list.
func (p UploadPolicy) Allows(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	for _, t := range p.AllowedMimeTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

// MaxMB returns the size ceiling in whole megabytes, for user-facing messages.
func (p UploadPolicy) MaxMB() int64 {
	return p.MaxBytes >> 20
}

var (
	policyMu     sync.Mutex
	cachedPolicy *UploadPolicy
)

// Policy returns the upload policy derived from the environment. The result
// carries no secrets, so it is memoized for the process lifetime.
func Policy() UploadPolicy {
	policyMu.Lock()
	defer policyMu.Unlock()

	if cachedPolicy != nil {
		return *cachedPolicy
	}

	p := UploadPolicy{
		MaxBytes:         parseMaxBytes(),
		AllowedMimeTypes: parseAllowedTypes(),
	}
	cachedPolicy = &p
	return p
}

// ResetPolicy clears the memoized policy. Test hook only.
func ResetPolicy() {
	policyMu.Lock()
	defer policyMu.Unlock()
	cachedPolicy = nil
}

func parseMaxBytes() int64 {
	for _, key := range maxMBKeys {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			continue
		}
		mb, err := strconv.ParseInt(v, 10, 64)
		if err != nil || mb <= 0 {
			continue
		}
		return mb << 20
	}
	return DefaultMaxUploadBytes
}

func parseAllowedTypes() []string {
	var raw string
	for _, key := range allowedTypesKeys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			raw = v
			break
		}
	}
	if raw == "" {
		return append([]string(nil), defaultAllowedMimeTypes...)
	}

	seen := make(map[string]bool)
	var types []string
	for _, part := range strings.Split(raw, ",") {
		t := strings.ToLower(strings.TrimSpace(part))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		types = append(types, t)
	}
	if len(types) == 0 {
		return append([]string(nil), defaultAllowedMimeTypes...)
	}
	return types
}
