package mocks

import (
	"context"

	"loanops/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockOCRJobRepository struct {
	mock.Mock
}

func ocrJob(args mock.Arguments) (*model.DocumentProcessingJob, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentProcessingJob), args.Error(1)
}

func (m *MockOCRJobRepository) FindByDocument(ctx context.Context, documentID string) (*model.DocumentProcessingJob, error) {
	return ocrJob(m.Called(ctx, documentID))
}

func (m *MockOCRJobRepository) LockByDocument(ctx context.Context, documentID string) (*model.DocumentProcessingJob, error) {
	return ocrJob(m.Called(ctx, documentID))
}

func (m *MockOCRJobRepository) Create(ctx context.Context, job *model.DocumentProcessingJob) (*model.DocumentProcessingJob, bool, error) {
	args := m.Called(ctx, job)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*model.DocumentProcessingJob), args.Bool(1), args.Error(2)
}

func (m *MockOCRJobRepository) Requeue(ctx context.Context, id string) (*model.DocumentProcessingJob, error) {
	return ocrJob(m.Called(ctx, id))
}

func (m *MockOCRJobRepository) MarkStarted(ctx context.Context, id string) (*model.DocumentProcessingJob, error) {
	return ocrJob(m.Called(ctx, id))
}

func (m *MockOCRJobRepository) MarkCompleted(ctx context.Context, id string) (*model.DocumentProcessingJob, error) {
	return ocrJob(m.Called(ctx, id))
}

func (m *MockOCRJobRepository) MarkFailed(ctx context.Context, id string, message string) (*model.DocumentProcessingJob, error) {
	return ocrJob(m.Called(ctx, id, message))
}

type MockBankingJobRepository struct {
	mock.Mock
}

func bankingJob(args mock.Arguments) (*model.BankingAnalysisJob, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BankingAnalysisJob), args.Error(1)
}

func (m *MockBankingJobRepository) FindByApplication(ctx context.Context, applicationID string) (*model.BankingAnalysisJob, error) {
	return bankingJob(m.Called(ctx, applicationID))
}

func (m *MockBankingJobRepository) LockByApplication(ctx context.Context, applicationID string) (*model.BankingAnalysisJob, error) {
	return bankingJob(m.Called(ctx, applicationID))
}

func (m *MockBankingJobRepository) Create(ctx context.Context, job *model.BankingAnalysisJob) (*model.BankingAnalysisJob, bool, error) {
	args := m.Called(ctx, job)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*model.BankingAnalysisJob), args.Bool(1), args.Error(2)
}

func (m *MockBankingJobRepository) MarkStarted(ctx context.Context, id string) (*model.BankingAnalysisJob, error) {
	return bankingJob(m.Called(ctx, id))
}

func (m *MockBankingJobRepository) MarkCompleted(ctx context.Context, id string, statementMonths *int) (*model.BankingAnalysisJob, error) {
	return bankingJob(m.Called(ctx, id, statementMonths))
}

func (m *MockBankingJobRepository) MarkFailed(ctx context.Context, id string, message string) (*model.BankingAnalysisJob, error) {
	return bankingJob(m.Called(ctx, id, message))
}

type MockCreditSummaryJobRepository struct {
	mock.Mock
}

func (m *MockCreditSummaryJobRepository) Ensure(ctx context.Context, applicationID string) (bool, error) {
	args := m.Called(ctx, applicationID)
	return args.Bool(0), args.Error(1)
}
