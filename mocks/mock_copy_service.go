package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"driftbox/internal/domain"
	"driftbox/internal/service"
)

// MockCopyService is a mock implementation of service.CopyService.
type MockCopyService struct {
	mock.Mock
}

func (m *MockCopyService) PlanBatchCopy(ctx context.Context, principal domain.Principal, input service.BatchCopyInput) (*service.BatchCopyResult, error) {
	args := m.Called(ctx, principal, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchCopyResult), args.Error(1)
}

func (m *MockCopyService) CommitBatchCopy(ctx context.Context, principal domain.Principal, input service.CommitBatchCopyInput) error {
	args := m.Called(ctx, principal, input)
	return args.Error(0)
}
