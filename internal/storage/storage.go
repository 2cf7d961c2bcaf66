package storage

import (
	"context"
	"io"
)

// UploadOptions conveys the mirror destination for item images.
type UploadOptions struct {
	Bucket    string
	KeyPrefix string
}

// Service mirrors item image bytes to remote object storage.
type Service interface {
	// Upload stores one object and returns its s3:// location.
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error)
	// DeletePrefix removes every object under the given prefix.
	DeletePrefix(ctx context.Context, bucket, prefix string) error
}
