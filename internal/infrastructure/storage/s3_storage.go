// Package storage keeps rendered invoice documents in object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	billingapp "github.com/pharmabill/backend/internal/application/billing"
	infraconfig "github.com/pharmabill/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

var _ billingapp.DocumentStorage = (*S3DocumentStorage)(nil)

const defaultPresignExpiration = 15 * time.Minute

var errEmptyKey = errors.New("storage key is required")

// S3DocumentStorage stores invoice PDFs in any S3-compatible bucket
// (AWS S3, MinIO, RustFS) and hands out presigned download links.
type S3DocumentStorage struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// Option configures S3DocumentStorage
type Option func(*S3DocumentStorage)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *S3DocumentStorage) {
		s.logger = logger
	}
}

// WithPresignExpiration overrides the configured download link lifetime
func WithPresignExpiration(d time.Duration) Option {
	return func(s *S3DocumentStorage) {
		s.presignExpiration = d
	}
}

// NewS3DocumentStorage creates the store from configuration
func NewS3DocumentStorage(cfg *infraconfig.StorageConfig, opts ...Option) (*S3DocumentStorage, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	switch {
	case cfg.Bucket == "":
		return nil, errors.New("storage bucket is required")
	case cfg.AccessKey == "":
		return nil, errors.New("storage access key is required")
	case cfg.SecretKey == "":
		return nil, errors.New("storage secret key is required")
	}

	endpoint, err := endpointURL(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	s := &S3DocumentStorage{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		presignExpiration: cfg.PresignExpiration,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.presignExpiration <= 0 {
		s.presignExpiration = defaultPresignExpiration
	}
	return s, nil
}

// endpointURL defaults to a local MinIO and adds a scheme when missing
func endpointURL(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		endpoint = "http://localhost:9000"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if useSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("invalid storage endpoint: %w", err)
	}
	return endpoint, nil
}

// EnsureBucket creates the bucket when it does not exist yet. Called once at startup.
func (s *S3DocumentStorage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating invoice bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Ping checks that the bucket is reachable
func (s *S3DocumentStorage) Ping(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("storage bucket %s unreachable: %w", s.bucket, err)
	}
	return nil
}

// Upload writes a document, replacing any previous version under key
func (s *S3DocumentStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errEmptyKey
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	s.logger.Debug("Document uploaded", zap.String("key", key), zap.Int("size_bytes", len(data)))
	return nil
}

// GenerateDownloadURL presigns a GET for key. A non-positive expiresIn uses
// the configured default.
func (s *S3DocumentStorage) GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errEmptyKey
	}
	if expiresIn <= 0 {
		expiresIn = s.presignExpiration
	}

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate download URL: %w", err)
	}
	return req.URL, time.Now().Add(expiresIn), nil
}

// Bucket returns the bucket name
func (s *S3DocumentStorage) Bucket() string {
	return s.bucket
}
