package mocks

import (
	"context"

	"loanops/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockRequiredDocumentRepository struct {
	mock.Mock
}

func (m *MockRequiredDocumentRepository) Upsert(ctx context.Context, applicationID, category string, isRequired bool, status model.DocumentStatus) (*model.RequiredDocument, error) {
	args := m.Called(ctx, applicationID, category, isRequired, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RequiredDocument), args.Error(1)
}

func (m *MockRequiredDocumentRepository) List(ctx context.Context, applicationID string) ([]model.RequiredDocument, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RequiredDocument), args.Error(1)
}

type MockLenderProductRepository struct {
	mock.Mock
}

func (m *MockLenderProductRepository) FindProduct(ctx context.Context, id string) (*model.LenderProduct, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LenderProduct), args.Error(1)
}

func (m *MockLenderProductRepository) ListActive(ctx context.Context, category, country string) ([]model.LenderProduct, error) {
	args := m.Called(ctx, category, country)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LenderProduct), args.Error(1)
}
