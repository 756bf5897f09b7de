package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore is the object storage surface the evidence pipeline needs.
type ObjectStore interface {
	// PresignPut issues a time-limited upload authorization for key.
	PresignPut(ctx context.Context, req PutRequest) (*PresignedUpload, error)

	// PresignGet issues a time-limited download URL for key.
	PresignGet(ctx context.Context, key string) (string, time.Time, error)

	// Put uploads body directly (legacy single-request path).
	Put(ctx context.Context, key, contentType string, body io.Reader, length int64) error

	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
}

const defaultPresignExpiry = 15 * time.Minute

var presignExpiryKeys = []string{"FILE_PRESIGN_EXPIRY", "S3_PRESIGN_EXPIRY"}

// Client implements ObjectStore against any S3-compatible backend: AWS S3,
// MinIO, Cloudflare R2, Supabase, etc. The underlying SDK client is rebuilt
// from the environment on every operation so credentials injected after
// process start are picked up without a restart.
type Client struct{}

func NewClient() *Client {
	return &Client{}
}

func presignExpiry() time.Duration {
	for _, key := range presignExpiryKeys {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err == nil && d > 0 {
			return d
		}
	}
	return defaultPresignExpiry
}

// build resolves the environment and constructs an SDK client from it.
// Returns *ConfigurationError unchanged when the environment is incomplete.
func (c *Client) build(ctx context.Context) (*s3.Client, *Env, error) {
	env, err := ResolveEnv()
	if err != nil {
		return nil, nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(env.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(env.AccessKeyID, env.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if env.Endpoint != "" {
			o.BaseEndpoint = aws.String(env.Endpoint)
		}
		o.UsePathStyle = env.ForcePathStyle
	})
	return client, env, nil
}

// Put uploads body to key in one request. The whole body is streamed to the
// upstream store before this returns; large files belong on the presign path.
func (c *Client) Put(ctx context.Context, key, contentType string, body io.Reader, length int64) error {
	client, env, err := c.build(ctx)
	if err != nil {
		return err
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(env.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(length),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to object store: %w", err)
	}
	return nil
}

// Delete removes the object at key.
func (c *Client) Delete(ctx context.Context, key string) error {
	client, env, err := c.build(ctx)
	if err != nil {
		return err
	}

	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(env.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from object store: %w", err)
	}
	return nil
}

// PresignGet generates a presigned download URL for key.
func (c *Client) PresignGet(ctx context.Context, key string) (string, time.Time, error) {
	client, env, err := c.build(ctx)
	if err != nil {
		return "", time.Time{}, err
	}

	expiry := presignExpiry()
	req, err := s3.NewPresignClient(client).PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(env.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to presign download: %w", err)
	}

	return req.URL, time.Now().Add(expiry), nil
}
