package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/config"
)

// Error codes returned to clients. Validation failures are client-actionable,
// so the code says exactly which constraint was violated.
const (
	CodeFileTooLarge    = "file_too_large"
	CodeUnsupportedType = "unsupported_type"
	CodeInvalidRequest  = "invalid_request"
)

// FileError is a policy violation with a machine-readable code and a
// user-facing message.
type FileError struct {
	Code    string
	Message string
}

func (e *FileError) Error() string {
	return e.Message
}

// TooLarge builds the size-violation error for the given policy.
func TooLarge(policy config.UploadPolicy) *FileError {
	return &FileError{
		Code:    CodeFileTooLarge,
		Message: fmt.Sprintf("file too large: maximum size is %d MB", policy.MaxMB()),
	}
}

// ValidateEvidenceInput checks the declared MIME type and byte size against
// policy. Size is checked first so oversized files fail with the size reason
// even when the type is also wrong.
func ValidateEvidenceInput(mimeType string, size int64, policy config.UploadPolicy) error {
	if size <= 0 {
		return &FileError{Code: CodeInvalidRequest, Message: "file size must be positive"}
	}
	if size > policy.MaxBytes {
		return TooLarge(policy)
	}
	if !policy.Allows(mimeType) {
		return &FileError{
			Code:    CodeUnsupportedType,
			Message: fmt.Sprintf("file type %q is not allowed", mimeType),
		}
	}
	return nil
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeFileName reduces a client-supplied name to a storage-safe form:
// no path separators, no control or special characters, bounded length.
func SanitizeFileName(name string) string {
	// Drop any path the client sent along (Windows or POSIX).
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeFileChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")

	if len(name) > 100 {
		ext := filepath.Ext(name)
		if len(ext) >= 100 {
			// The "extension" is the whole name; a plain cut is all we can do.
			name = name[:100]
		} else {
			name = name[:100-len(ext)] + ext
		}
	}
	if name == "" {
		return "file"
	}
	return name
}

// extensionMimeTypes maps common evidence file extensions to MIME types, for
// clients whose environment does not supply one.
var extensionMimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// MimeFromExtension resolves a MIME type from the file extension. Returns
// "application/octet-stream" when the extension is unknown.
func MimeFromExtension(name string) string {
	if t, ok := extensionMimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return "application/octet-stream"
}
