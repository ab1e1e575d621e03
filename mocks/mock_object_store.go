package mocks

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"driftbox/internal/port"
)

// MockObjectStore is a mock implementation of port.ObjectStore.
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	args := m.Called(ctx, key, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) UploadPart(ctx context.Context, key, uploadID string, partNumber int32, body io.Reader, size int64) (string, error) {
	args := m.Called(ctx, key, uploadID, partNumber, body, size)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []port.CompletedPart) (string, error) {
	args := m.Called(ctx, key, uploadID, parts)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	args := m.Called(ctx, key, uploadID)
	return args.Error(0)
}

func (m *MockObjectStore) ListParts(ctx context.Context, key, uploadID string) ([]port.CompletedPart, error) {
	args := m.Called(ctx, key, uploadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]port.CompletedPart), args.Error(1)
}

func (m *MockObjectStore) Upload(ctx context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.UploadOutput), args.Error(1)
}

func (m *MockObjectStore) CopyObject(ctx context.Context, srcKey, dstKey, contentType string) (string, error) {
	args := m.Called(ctx, srcKey, dstKey, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) ListObjects(ctx context.Context, prefix string) ([]port.ObjectInfo, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]port.ObjectInfo), args.Error(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockObjectStore) PresignGetObject(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) PresignPutObject(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, contentType, expiry)
	return args.String(0), args.Error(1)
}

// MockObjectStoreResolver is a mock implementation of port.ObjectStoreResolver.
type MockObjectStoreResolver struct {
	mock.Mock
}

func (m *MockObjectStoreResolver) ForMount(ctx context.Context, mountID uuid.UUID) (port.ObjectStore, error) {
	args := m.Called(ctx, mountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(port.ObjectStore), args.Error(1)
}
