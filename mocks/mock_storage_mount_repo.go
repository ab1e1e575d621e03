package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"driftbox/internal/domain"
)

// MockStorageMountRepo is a mock implementation of port.StorageMountRepository.
type MockStorageMountRepo struct {
	mock.Mock
}

func (m *MockStorageMountRepo) Create(ctx context.Context, mount *domain.StorageMount) error {
	args := m.Called(ctx, mount)
	return args.Error(0)
}

func (m *MockStorageMountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.StorageMount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StorageMount), args.Error(1)
}

func (m *MockStorageMountRepo) List(ctx context.Context) ([]domain.StorageMount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StorageMount), args.Error(1)
}
