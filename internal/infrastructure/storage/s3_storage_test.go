package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pharmabill/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testStorageConfig() *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:       "pharmabill-invoices",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Region:       "us-east-1",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
	}
}

func TestNewS3DocumentStorage_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.StorageConfig
		wantErr string
	}{
		{name: "nil config", cfg: nil, wantErr: "configuration is required"},
		{name: "missing bucket", cfg: &config.StorageConfig{AccessKey: "k", SecretKey: "s"}, wantErr: "bucket is required"},
		{name: "missing access key", cfg: &config.StorageConfig{Bucket: "b", SecretKey: "s"}, wantErr: "access key is required"},
		{name: "missing secret key", cfg: &config.StorageConfig{Bucket: "b", AccessKey: "k"}, wantErr: "secret key is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3DocumentStorage(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewS3DocumentStorage_Defaults(t *testing.T) {
	s, err := NewS3DocumentStorage(testStorageConfig())
	require.NoError(t, err)
	assert.Equal(t, "pharmabill-invoices", s.Bucket())
	assert.Equal(t, 15*time.Minute, s.presignExpiration)

	s, err = NewS3DocumentStorage(testStorageConfig(), WithPresignExpiration(time.Hour), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, s.presignExpiration)
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		want     string
	}{
		{"", false, "http://localhost:9000"},
		{"minio:9000", false, "http://minio:9000"},
		{"s3.example.com", true, "https://s3.example.com"},
		{"https://s3.example.com", false, "https://s3.example.com"},
	}
	for _, tt := range tests {
		got, err := endpointURL(tt.endpoint, tt.useSSL)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestS3DocumentStorage_GenerateDownloadURL(t *testing.T) {
	s, err := NewS3DocumentStorage(testStorageConfig())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("presigns offline", func(t *testing.T) {
		url, expiresAt, err := s.GenerateDownloadURL(ctx, "invoices/p1/INV-20250118-0001.pdf", time.Hour)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "http://localhost:9000/pharmabill-invoices/invoices/"))
		assert.Contains(t, url, "INV-20250118-0001.pdf")
		assert.Contains(t, url, "X-Amz-Expires=3600")
		assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)
	})

	t.Run("falls back to the default lifetime", func(t *testing.T) {
		url, _, err := s.GenerateDownloadURL(ctx, "invoices/p1/x.pdf", 0)
		require.NoError(t, err)
		assert.Contains(t, url, "X-Amz-Expires=900")
	})

	t.Run("empty key", func(t *testing.T) {
		url, _, err := s.GenerateDownloadURL(ctx, "", time.Minute)
		assert.ErrorIs(t, err, errEmptyKey)
		assert.Empty(t, url)
	})
}

func TestS3DocumentStorage_Upload_EmptyKey(t *testing.T) {
	s, err := NewS3DocumentStorage(testStorageConfig())
	require.NoError(t, err)

	err = s.Upload(context.Background(), "", []byte("%PDF"), "application/pdf")
	assert.ErrorIs(t, err, errEmptyKey)
}
