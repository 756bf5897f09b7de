package storage

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider identifies which S3-compatible backend the environment points at.
// Detection is informational only; the client speaks the same protocol to all.
type Provider string

const (
	ProviderAWS        Provider = "aws-s3"
	ProviderCloudflare Provider = "cloudflare-r2"
	ProviderSupabase   Provider = "supabase"
	ProviderMinio      Provider = "minio"
	ProviderVercelBlob Provider = "vercel-blob"
	ProviderCustom     Provider = "custom"
)

const blobTokenKey = "BLOB_READ_WRITE_TOKEN"

// Requirement describes one logical config field and the ordered env var
// aliases that may supply it. Keeping the aliases as data means supporting a
// new provider's naming convention is a one-line change.
type Requirement struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Keys     []string `json:"keys"`
	Required bool     `json:"required"`
}

var requirements = []Requirement{
	{
		ID:       "bucket",
		Label:    "Bucket name",
		Keys:     []string{"FILE_STORAGE_BUCKET", "AWS_S3_BUCKET", "S3_BUCKET", "STORAGE_BUCKET"},
		Required: true,
	},
	{
		ID:       "region",
		Label:    "Region",
		Keys:     []string{"FILE_STORAGE_REGION", "AWS_S3_REGION", "AWS_REGION", "S3_REGION"},
		Required: false,
	},
	{
		ID:       "accessKeyId",
		Label:    "Access key ID",
		Keys:     []string{"FILE_STORAGE_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID", "S3_ACCESS_KEY", "MINIO_ROOT_USER"},
		Required: true,
	},
	{
		ID:       "secretAccessKey",
		Label:    "Secret access key",
		Keys:     []string{"FILE_STORAGE_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY", "S3_SECRET_KEY", "MINIO_ROOT_PASSWORD"},
		Required: true,
	},
	{
		ID:       "endpoint",
		Label:    "Custom endpoint",
		Keys:     []string{"FILE_STORAGE_ENDPOINT", "AWS_S3_ENDPOINT", "S3_ENDPOINT", "MINIO_ENDPOINT"},
		Required: false,
	},
}

var pathStyleKeys = []string{"FILE_STORAGE_FORCE_PATH_STYLE", "S3_FORCE_PATH_STYLE"}

const defaultRegion = "us-east-1"

// Env is the fully resolved object storage configuration.
type Env struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	ForcePathStyle  bool
	Provider        Provider
}

// ConfigurationError indicates the storage environment is incomplete. It is
// operator-actionable: requests hitting it should come back as 503.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) == 0 {
		return "storage not configured"
	}
	req := requirementByID(e.Missing[0])
	if req == nil {
		return fmt.Sprintf("storage not configured: missing %s", e.Missing[0])
	}
	return fmt.Sprintf("storage not configured: %s unset (checked %s)",
		req.Label, strings.Join(req.Keys, ", "))
}

func requirementByID(id string) *Requirement {
	for i := range requirements {
		if requirements[i].ID == id {
			return &requirements[i]
		}
	}
	return nil
}

// firstEnv returns the first non-empty trimmed value among keys, and which
// key supplied it.
func firstEnv(keys []string) (string, string) {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v, key
		}
	}
	return "", ""
}

// ResolveEnv reads the storage configuration from the environment. It is
// evaluated on every call: deployment platforms may inject variables after
// process start, so nothing here may be cached at import time.
func ResolveEnv() (*Env, error) {
	var missing []string
	values := make(map[string]string, len(requirements))

	for _, req := range requirements {
		v, _ := firstEnv(req.Keys)
		if v == "" && req.Required {
			missing = append(missing, req.ID)
			continue
		}
		values[req.ID] = v
	}

	if len(missing) > 0 {
		return nil, &ConfigurationError{Missing: missing}
	}

	env := &Env{
		Bucket:          values["bucket"],
		Region:          values["region"],
		AccessKeyID:     values["accessKeyId"],
		SecretAccessKey: values["secretAccessKey"],
		Endpoint:        values["endpoint"],
	}
	if env.Region == "" {
		env.Region = defaultRegion
	}
	env.ForcePathStyle = resolvePathStyle(env.Endpoint)
	env.Provider = detectProvider(env.Endpoint)
	return env, nil
}

// resolvePathStyle honors an explicit override and otherwise defaults to
// path-style whenever a custom endpoint is set (MinIO and most self-hosted
// stores reject virtual-hosted addressing).
func resolvePathStyle(endpoint string) bool {
	if v, _ := firstEnv(pathStyleKeys); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return endpoint != ""
}

func detectProvider(endpoint string) Provider {
	// A universal blob token wins over everything else.
	if strings.TrimSpace(os.Getenv(blobTokenKey)) != "" {
		return ProviderVercelBlob
	}

	host := strings.ToLower(endpoint)
	switch {
	case host == "":
		return ProviderAWS
	case strings.Contains(host, "amazonaws"):
		return ProviderAWS
	case strings.Contains(host, "r2.cloudflarestorage"), strings.Contains(host, "cloudflare"):
		return ProviderCloudflare
	case strings.Contains(host, "supabase"):
		return ProviderSupabase
	case strings.Contains(host, "minio"):
		return ProviderMinio
	default:
		return ProviderCustom
	}
}

// Diagnostics is the operator-facing snapshot of the storage environment.
// It reports presence, never values, so it is safe to expose over HTTP.
type Diagnostics struct {
	OK               bool          `json:"ok"`
	Provider         Provider      `json:"provider"`
	Bucket           string        `json:"bucket,omitempty"`
	Region           string        `json:"region,omitempty"`
	AccessKeyPresent bool          `json:"accessKeyPresent"`
	SecretKeyPresent bool          `json:"secretKeyPresent"`
	Missing          []string      `json:"missing,omitempty"`
	Present          []string      `json:"present,omitempty"`
	Requirements     []ReqSnapshot `json:"requirements,omitempty"`
	CheckedAt        time.Time     `json:"checkedAt"`
}

// ReqSnapshot reports resolution state for one requirement.
type ReqSnapshot struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Keys        []string `json:"keys"`
	Present     bool     `json:"present"`
	ResolvedKey string   `json:"resolvedKey,omitempty"`
}

// GetDiagnostics inspects the environment without failing, for health
// endpoints and operator tooling.
func GetDiagnostics() Diagnostics {
	d := Diagnostics{
		OK:        true,
		CheckedAt: time.Now().UTC(),
	}

	var endpoint string
	for _, req := range requirements {
		v, key := firstEnv(req.Keys)
		snap := ReqSnapshot{
			ID:          req.ID,
			Label:       req.Label,
			Keys:        req.Keys,
			Present:     v != "",
			ResolvedKey: key,
		}
		d.Requirements = append(d.Requirements, snap)

		if v == "" {
			if req.Required {
				d.OK = false
				d.Missing = append(d.Missing, req.ID)
			}
			continue
		}
		d.Present = append(d.Present, req.ID)

		switch req.ID {
		case "bucket":
			d.Bucket = v
		case "region":
			d.Region = v
		case "accessKeyId":
			d.AccessKeyPresent = true
		case "secretAccessKey":
			d.SecretKeyPresent = true
		case "endpoint":
			endpoint = v
		}
	}

	if d.Region == "" {
		d.Region = defaultRegion
	}
	d.Provider = detectProvider(endpoint)
	return d
}
