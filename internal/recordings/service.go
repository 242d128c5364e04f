// Package recordings archives call recordings from the provider's short-lived
// URLs into object storage and serves them back via presigned links.
package recordings

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bluelotus98/blue-lotus-backend/platform/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PresignedURLTTL is the expiration for download links handed to the
// dashboard.
const PresignedURLTTL = 15 * time.Minute

// maxRecordingSize caps the archival download at 500 MB.
const maxRecordingSize = 500 << 20

// Service copies recordings into MinIO and presigns reads.
type Service struct {
	client *minio.Client
	bucket string
	http   *http.Client
}

// NewService creates a recordings service from config. Returns an error when
// MinIO is not configured; callers treat the service as optional.
func NewService(cfg config.StorageConfig) (*Service, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("minio is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Service{
		client: client,
		bucket: cfg.GetMinioBucketRecordings(),
		http:   &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// EnsureBucket creates the recordings bucket if it does not exist.
func (s *Service) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// ObjectKey returns the storage key for a call event's recording. Keys are
// tenant-prefixed so bucket listings stay per-tenant.
func ObjectKey(tenantID, callEventID uuid.UUID) string {
	return fmt.Sprintf("%s/%s.mp3", tenantID, callEventID)
}

// Archive downloads the provider recording and stores it under the tenant's
// prefix. Provider URLs expire within days; archiving keeps the audio as
// durable as the event row.
func (s *Service) Archive(ctx context.Context, tenantID, callEventID uuid.UUID, recordingURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordingURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch recording: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("recording fetch returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	key := ObjectKey(tenantID, callEventID)
	body := io.LimitReader(resp.Body, maxRecordingSize)
	_, err = s.client.PutObject(ctx, s.bucket, key, body, resp.ContentLength, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store recording %s: %w", key, err)
	}
	return key, nil
}

// PresignDownload returns a short-lived URL for an archived recording.
func (s *Service) PresignDownload(ctx context.Context, key string) (string, time.Time, error) {
	expiresAt := time.Now().Add(PresignedURLTTL)
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, PresignedURLTTL, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to presign recording %s: %w", key, err)
	}
	return presigned.String(), expiresAt, nil
}
