package port

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// CompletedPart is one finished part of a multipart upload.
type CompletedPart struct {
	PartNumber int32
	ETag       string
	Size       int64
}

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// UploadInput encapsulates the parameters for a single-shot proxied upload.
type UploadInput struct {
	Key         string
	Body        io.Reader
	ContentType string
	Size        int64
}

// UploadOutput contains the result of a successful single-shot upload.
type UploadOutput struct {
	Location string
	ETag     string
}

// ObjectStore abstracts one S3-compatible backend (one bucket). Implementations
// are stateless; multipart state lives in the store itself and in the
// UploadSessionRepository.
type ObjectStore interface {
	CreateMultipartUpload(ctx context.Context, key, contentType string) (uploadID string, err error)
	UploadPart(ctx context.Context, key, uploadID string, partNumber int32, body io.Reader, size int64) (etag string, err error)
	CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []CompletedPart) (etag string, err error)
	AbortMultipartUpload(ctx context.Context, key, uploadID string) error
	ListParts(ctx context.Context, key, uploadID string) ([]CompletedPart, error)

	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
	CopyObject(ctx context.Context, srcKey, dstKey, contentType string) (etag string, err error)
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error

	PresignGetObject(ctx context.Context, key string, expiry time.Duration) (string, error)
	PresignPutObject(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
}

// ObjectStoreResolver yields the ObjectStore client for a storage mount.
type ObjectStoreResolver interface {
	ForMount(ctx context.Context, mountID uuid.UUID) (ObjectStore, error)
}
