package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"driftbox/internal/domain"
	"driftbox/internal/service"
)

// MockUploadService is a mock implementation of service.UploadService.
type MockUploadService struct {
	mock.Mock
}

func (m *MockUploadService) Init(ctx context.Context, principal domain.Principal, input service.InitInput) (*service.InitResult, error) {
	args := m.Called(ctx, principal, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.InitResult), args.Error(1)
}

func (m *MockUploadService) UploadPart(ctx context.Context, principal domain.Principal, input service.PartInput) (string, error) {
	args := m.Called(ctx, principal, input)
	return args.String(0), args.Error(1)
}

func (m *MockUploadService) ListUploadedParts(ctx context.Context, principal domain.Principal, targetPath, uploadID string) ([]service.UploadedPart, error) {
	args := m.Called(ctx, principal, targetPath, uploadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.UploadedPart), args.Error(1)
}

func (m *MockUploadService) Complete(ctx context.Context, principal domain.Principal, input service.CompleteInput) (*domain.FileMeta, error) {
	args := m.Called(ctx, principal, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FileMeta), args.Error(1)
}

func (m *MockUploadService) Abort(ctx context.Context, principal domain.Principal, input service.AbortInput) error {
	args := m.Called(ctx, principal, input)
	return args.Error(0)
}

func (m *MockUploadService) Presign(ctx context.Context, principal domain.Principal, input service.PresignInput) (*service.PresignResult, error) {
	args := m.Called(ctx, principal, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PresignResult), args.Error(1)
}

func (m *MockUploadService) Commit(ctx context.Context, principal domain.Principal, input service.CommitInput) (*domain.FileMeta, error) {
	args := m.Called(ctx, principal, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FileMeta), args.Error(1)
}

func (m *MockUploadService) Direct(ctx context.Context, principal domain.Principal, input service.DirectInput) (*domain.FileMeta, error) {
	args := m.Called(ctx, principal, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FileMeta), args.Error(1)
}
