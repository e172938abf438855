package storage

import (
	"context"
	"fmt"
	"net/url"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// PhotoStore accepts image bytes and returns a stable public URL. The
// engine itself never touches image bytes, it only stores URLs.
type PhotoStore interface {
	Upload(ctx context.Context, objectPath, contentType string, data []byte) (string, error)
}

// GCSPhotoStore stores photos in a Google Cloud Storage bucket and returns
// token-style download URLs.
type GCSPhotoStore struct {
	client *storage.Client
	bucket string
}

func NewGCSPhotoStore(ctx context.Context, bucket string) (*GCSPhotoStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}
	return &GCSPhotoStore{client: client, bucket: bucket}, nil
}

func (s *GCSPhotoStore) Upload(ctx context.Context, objectPath, contentType string, data []byte) (string, error) {
	token := uuid.NewString()
	obj := s.client.Bucket(s.bucket).Object(objectPath)

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{
		"firebaseStorageDownloadTokens": token,
	}
	if _, err := w.Write(data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	escapedPath := url.PathEscape(objectPath)
	publicURL := fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		s.bucket, escapedPath, token)
	return publicURL, nil
}

func (s *GCSPhotoStore) Close() error {
	return s.client.Close()
}
