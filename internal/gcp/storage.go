package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/Lllllllleong/documentworkers/internal/models"
)

// GCSStore implements port.ObjectStore on Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore creates a Storage client using application default credentials.
func NewGCSStore(ctx context.Context) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

func (s *GCSStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	reader, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, classifyGCSError(fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, key, err))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, classifyGCSError(fmt.Errorf("failed to read gs://%s/%s: %w", bucket, key, err))
	}
	return data, nil
}

func (s *GCSStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	writer := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		slog.Error("Failed to copy content to GCS object", "gcsObject", key, "error", err)
		return classifyGCSError(fmt.Errorf("failed to write to GCS: %w", err))
	}
	if err := writer.Close(); err != nil {
		slog.Error("Failed to close GCS writer", "gcsObject", key, "error", err)
		return classifyGCSError(fmt.Errorf("failed to finalize GCS write: %w", err))
	}
	return nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

// classifyGCSError tags err with models.ErrObjectNotFound or models.ErrTransient.
func classifyGCSError(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("%w: %w", models.ErrObjectNotFound, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusNotFound:
			return fmt.Errorf("%w: %w", models.ErrObjectNotFound, err)
		case gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %w", models.ErrTransient, err)
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", models.ErrTransient, err)
	}
	return err
}
