package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"guestgallery/internal/domain"
)

// S3Config holds configuration for the S3-backed media store.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// Endpoint overrides the AWS endpoint for S3-compatible stores
	// (MinIO in development). Empty means real AWS.
	Endpoint string
	// PublicBaseURL is the prefix served to clients, e.g. a CDN origin.
	// Empty falls back to the virtual-hosted AWS URL.
	PublicBaseURL string
}

type s3Store struct {
	client  *s3.Client
	uploads *manager.Uploader
	logger  *slog.Logger
	config  S3Config
}

// NewS3Store returns a MediaStore backed by an S3 bucket.
func NewS3Store(config S3Config, logger *slog.Logger) domain.MediaStore {
	awsCfg := aws.Config{
		Region: config.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		),
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &s3Store{
		client:  client,
		uploads: manager.NewUploader(client),
		logger:  logger,
		config:  config,
	}
}

func (s *s3Store) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	// The row insert after the upload must see the object, so the upload
	// itself is not cancelled mid-flight with the request.
	ctx = context.WithoutCancel(ctx)

	s.logger.InfoContext(ctx, "uploading media object", "bucket", s.config.Bucket, "key", key, "size", size)
	_, err := s.uploads.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return "", fmt.Errorf("error uploading object to bucket %q using key %q: %w", s.config.Bucket, key, err)
	}
	return s.objectURL(key), nil
}

func (s *s3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("error deleting object from bucket %q using key %q: %w", s.config.Bucket, key, err)
	}
	return nil
}

func (s *s3Store) objectURL(key string) string {
	if s.config.PublicBaseURL != "" {
		return strings.TrimSuffix(s.config.PublicBaseURL, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.config.Bucket, s.config.Region, key)
}
