package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable the resolver looks at so tests are
// independent of the host environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, req := range requirements {
		for _, key := range req.Keys {
			t.Setenv(key, "")
		}
	}
	for _, key := range pathStyleKeys {
		t.Setenv(key, "")
	}
	t.Setenv(blobTokenKey, "")
}

func setComplete(t *testing.T) {
	t.Helper()
	t.Setenv("FILE_STORAGE_BUCKET", "evidence")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIATEST")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
}

func TestResolveEnv_Complete(t *testing.T) {
	clearEnv(t)
	setComplete(t)

	env, err := ResolveEnv()
	require.NoError(t, err)
	assert.Equal(t, "evidence", env.Bucket)
	assert.Equal(t, "AKIATEST", env.AccessKeyID)
	assert.Equal(t, "secret", env.SecretAccessKey)
	assert.Equal(t, defaultRegion, env.Region, "region falls back to default")
	assert.Equal(t, ProviderAWS, env.Provider)
	assert.False(t, env.ForcePathStyle, "no endpoint means virtual-hosted addressing")
}

func TestResolveEnv_MissingEachRequiredField(t *testing.T) {
	cases := map[string]func(t *testing.T){
		"bucket": func(t *testing.T) {
			t.Setenv("AWS_ACCESS_KEY_ID", "k")
			t.Setenv("AWS_SECRET_ACCESS_KEY", "s")
		},
		"accessKeyId": func(t *testing.T) {
			t.Setenv("S3_BUCKET", "b")
			t.Setenv("AWS_SECRET_ACCESS_KEY", "s")
		},
		"secretAccessKey": func(t *testing.T) {
			t.Setenv("S3_BUCKET", "b")
			t.Setenv("AWS_ACCESS_KEY_ID", "k")
		},
	}

	for missingID, setup := range cases {
		t.Run(missingID, func(t *testing.T) {
			clearEnv(t)
			setup(t)

			_, err := ResolveEnv()
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, cfgErr.Missing, missingID)
			assert.Contains(t, cfgErr.Error(), "storage not configured")

			d := GetDiagnostics()
			assert.False(t, d.OK)
			assert.Contains(t, d.Missing, missingID)
		})
	}
}

func TestResolveEnv_AliasPriority(t *testing.T) {
	clearEnv(t)
	setComplete(t)
	// FILE_STORAGE_BUCKET outranks the AWS/S3 aliases.
	t.Setenv("S3_BUCKET", "fallback")
	t.Setenv("FILE_STORAGE_BUCKET", "primary")

	env, err := ResolveEnv()
	require.NoError(t, err)
	assert.Equal(t, "primary", env.Bucket)
}

func TestResolveEnv_TrimsWhitespace(t *testing.T) {
	clearEnv(t)
	t.Setenv("FILE_STORAGE_BUCKET", "  evidence  ")
	t.Setenv("AWS_ACCESS_KEY_ID", " k ")
	t.Setenv("AWS_SECRET_ACCESS_KEY", " s ")

	env, err := ResolveEnv()
	require.NoError(t, err)
	assert.Equal(t, "evidence", env.Bucket)
	assert.Equal(t, "k", env.AccessKeyID)
}

func TestDetectProvider(t *testing.T) {
	cases := []struct {
		name     string
		endpoint string
		blob     string
		want     Provider
	}{
		{"no endpoint defaults to aws", "", "", ProviderAWS},
		{"amazonaws", "https://s3.eu-west-1.amazonaws.com", "", ProviderAWS},
		{"r2", "https://abc123.r2.cloudflarestorage.com", "", ProviderCloudflare},
		{"supabase", "https://xyz.supabase.co/storage/v1/s3", "", ProviderSupabase},
		{"minio", "http://minio:9000", "", ProviderMinio},
		{"other endpoint is custom", "https://objects.example.net", "", ProviderCustom},
		{"blob token wins over endpoint", "https://s3.amazonaws.com", "vercel_blob_rw_token", ProviderVercelBlob},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(blobTokenKey, tc.blob)
			assert.Equal(t, tc.want, detectProvider(tc.endpoint))
		})
	}
}

func TestResolveEnv_PathStyle(t *testing.T) {
	clearEnv(t)
	setComplete(t)
	t.Setenv("S3_ENDPOINT", "http://minio:9000")

	env, err := ResolveEnv()
	require.NoError(t, err)
	assert.True(t, env.ForcePathStyle, "custom endpoint implies path style")
	assert.Equal(t, ProviderMinio, env.Provider)

	t.Setenv("S3_FORCE_PATH_STYLE", "false")
	env, err = ResolveEnv()
	require.NoError(t, err)
	assert.False(t, env.ForcePathStyle, "explicit override wins")
}

func TestGetDiagnostics_NeverExposesSecrets(t *testing.T) {
	clearEnv(t)
	setComplete(t)

	d := GetDiagnostics()
	assert.True(t, d.OK)
	assert.Equal(t, "evidence", d.Bucket)
	assert.True(t, d.AccessKeyPresent)
	assert.True(t, d.SecretKeyPresent)
	assert.False(t, d.CheckedAt.IsZero())

	for _, snap := range d.Requirements {
		if snap.ID == "accessKeyId" {
			assert.True(t, snap.Present)
			assert.Equal(t, "AWS_ACCESS_KEY_ID", snap.ResolvedKey)
		}
	}
}

func TestGetDiagnostics_FlipsWithEnv(t *testing.T) {
	clearEnv(t)
	assert.False(t, GetDiagnostics().OK)

	setComplete(t)
	assert.True(t, GetDiagnostics().OK, "diagnostics re-read the environment every call")
}
