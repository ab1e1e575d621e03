package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"driftbox/internal/domain"
)

// MockAPIKeyRepo is a mock implementation of port.APIKeyRepository.
type MockAPIKeyRepo struct {
	mock.Mock
}

func (m *MockAPIKeyRepo) GetByPrefix(ctx context.Context, prefix string) (*domain.APIKey, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}
