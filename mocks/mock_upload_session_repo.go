package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"driftbox/internal/domain"
)

// MockUploadSessionRepo is a mock implementation of port.UploadSessionRepository.
type MockUploadSessionRepo struct {
	mock.Mock
}

func (m *MockUploadSessionRepo) Create(ctx context.Context, session *domain.UploadSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockUploadSessionRepo) GetByPathAndUploadID(ctx context.Context, targetPath, uploadID string) (*domain.UploadSession, error) {
	args := m.Called(ctx, targetPath, uploadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UploadSession), args.Error(1)
}

func (m *MockUploadSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUploadSessionRepo) DeleteByUploadID(ctx context.Context, targetPath, uploadID string) error {
	args := m.Called(ctx, targetPath, uploadID)
	return args.Error(0)
}
