package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const checksumHeader = "x-amz-checksum-sha256"

// PutRequest describes an upload about to happen. The caller supplies the
// fully qualified key: key construction stays with the caller so ownership
// checks can run before any object-store interaction.
type PutRequest struct {
	Key            string
	ContentType    string
	ContentLength  int64
	ChecksumSHA256 string // base64, optional
}

// PresignedUpload is a time-limited authorization to PUT one object. The
// client must attach Headers verbatim so the store enforces the same
// content type and checksum the server validated.
type PresignedUpload struct {
	URL       string            `json:"uploadUrl"`
	Key       string            `json:"key"`
	ExpiresAt time.Time         `json:"expiresAt"`
	Headers   map[string]string `json:"headers"`
	Provider  Provider          `json:"provider"`
}

// PresignPut issues a presigned PUT for req. Issuing is idempotent: it has no
// side effects on application state, only commit does.
func (c *Client) PresignPut(ctx context.Context, req PutRequest) (*PresignedUpload, error) {
	client, env, err := c.build(ctx)
	if err != nil {
		return nil, err
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(env.Bucket),
		Key:           aws.String(req.Key),
		ContentType:   aws.String(req.ContentType),
		ContentLength: aws.Int64(req.ContentLength),
	}
	if req.ChecksumSHA256 != "" {
		input.ChecksumSHA256 = aws.String(req.ChecksumSHA256)
	}

	expiry := presignExpiry()
	signed, err := s3.NewPresignClient(client).PresignPutObject(ctx, input, s3.WithPresignExpires(expiry))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	headers := map[string]string{
		"Content-Type": req.ContentType,
	}
	if req.ChecksumSHA256 != "" {
		headers[checksumHeader] = req.ChecksumSHA256
	}

	return &PresignedUpload{
		URL:       signed.URL,
		Key:       req.Key,
		ExpiresAt: time.Now().Add(expiry),
		Headers:   headers,
		Provider:  env.Provider,
	}, nil
}
