package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// CloudflareR2Storage is the public-bucket style backend: objects are
// world-readable, deletes are keyed by object name alone, no per-call token
// dance. R2 is S3-compatible so the AWS SDK is used as-is.
type CloudflareR2Storage struct {
	client   *s3.S3
	uploader *s3manager.Uploader
	bucket   string
	baseURL  string
}

// NewCloudflareR2Storage creates a Cloudflare R2 (or plain S3) backend.
func NewCloudflareR2Storage(cfg Config) (*CloudflareR2Storage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("cloudflare_r2: endpoint is required")
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsConfig := &aws.Config{
		Region:           aws.String(region),
		Endpoint:         aws.String(cfg.Endpoint),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
		HTTPClient:       &http.Client{Timeout: cfg.Timeout},
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("cloudflare_r2: failed to create session: %w", err)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.r2.dev", cfg.Bucket)
	}

	return &CloudflareR2Storage{
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		bucket:   cfg.Bucket,
		baseURL:  baseURL,
	}, nil
}

func (s *CloudflareR2Storage) PutObject(ctx context.Context, name string, body io.Reader, size int64, contentType string) (*PutResult, error) {
	input := &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(name),
		Body:        body,
		ContentType: aws.String(contentType),
	}

	out, err := s.uploader.UploadWithContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("cloudflare_r2: upload failed: %w", err)
	}

	return &PutResult{
		URL:    fmt.Sprintf("%s/%s", s.baseURL, name),
		FileID: aws.StringValue(out.VersionID),
	}, nil
}

// DeleteObject removes the object by name. S3 delete is a no-op for missing
// keys, which gives the idempotency the workflow needs; fileID is ignored.
func (s *CloudflareR2Storage) DeleteObject(ctx context.Context, name, fileID string) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	}

	if _, err := s.client.DeleteObjectWithContext(ctx, input); err != nil {
		return fmt.Errorf("cloudflare_r2: delete failed: %w", err)
	}
	return nil
}

func (s *CloudflareR2Storage) ListObjects(ctx context.Context) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	err := s.client.ListObjectsV2PagesWithContext(ctx, input,
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, obj := range page.Contents {
				key := aws.StringValue(obj.Key)
				objects = append(objects, ObjectInfo{
					Name:       key,
					URL:        fmt.Sprintf("%s/%s", s.baseURL, key),
					UploadedAt: aws.TimeValue(obj.LastModified),
				})
			}
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("cloudflare_r2: list failed: %w", err)
	}

	return objects, nil
}

func (s *CloudflareR2Storage) RequiresFileID() bool { return false }
