package mocks

import (
	"context"

	"loanops/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockApplicationRepository struct {
	mock.Mock
}

func (m *MockApplicationRepository) FindByID(ctx context.Context, id string) (*model.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Application), args.Error(1)
}

func (m *MockApplicationRepository) LockForUpdate(ctx context.Context, id string) (*model.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Application), args.Error(1)
}

func (m *MockApplicationRepository) UpdateStage(ctx context.Context, id string, stage model.ProcessingStage) error {
	return m.Called(ctx, id, stage).Error(0)
}

func (m *MockApplicationRepository) StampOCRCompleted(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockApplicationRepository) StampBankingCompleted(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockApplicationRepository) StampCreditSummaryCompleted(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockApplicationRepository) CountPendingJobs(ctx context.Context, id string) (model.PendingJobCounts, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.PendingJobCounts), args.Error(1)
}
