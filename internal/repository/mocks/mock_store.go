package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"loanops/internal/repository"
)

// MockStore hands out the embedded repository mocks.
type MockStore struct {
	Apps       *MockApplicationRepository
	Docs       *MockDocumentRepository
	OCR        *MockOCRJobRepository
	Banking    *MockBankingJobRepository
	Required   *MockRequiredDocumentRepository
	CreditJobs *MockCreditSummaryJobRepository

	hooks []func()
}

// NewMockStore returns a store with fresh mocks for every repository.
func NewMockStore() *MockStore {
	return &MockStore{
		Apps:       new(MockApplicationRepository),
		Docs:       new(MockDocumentRepository),
		OCR:        new(MockOCRJobRepository),
		Banking:    new(MockBankingJobRepository),
		Required:   new(MockRequiredDocumentRepository),
		CreditJobs: new(MockCreditSummaryJobRepository),
	}
}

func (s *MockStore) Applications() repository.ApplicationRepository           { return s.Apps }
func (s *MockStore) Documents() repository.DocumentRepository                 { return s.Docs }
func (s *MockStore) OCRJobs() repository.OCRJobRepository                     { return s.OCR }
func (s *MockStore) BankingJobs() repository.BankingJobRepository             { return s.Banking }
func (s *MockStore) RequiredDocuments() repository.RequiredDocumentRepository { return s.Required }
func (s *MockStore) CreditSummaryJobs() repository.CreditSummaryJobRepository { return s.CreditJobs }

// AfterCommit queues fn; MockTxRunner runs the queue on commit and drops it
// on rollback.
func (s *MockStore) AfterCommit(fn func()) { s.hooks = append(s.hooks, fn) }

// AssertExpectations checks every embedded mock.
func (s *MockStore) AssertExpectations(t mock.TestingT) {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	s.Apps.AssertExpectations(t)
	s.Docs.AssertExpectations(t)
	s.OCR.AssertExpectations(t)
	s.Banking.AssertExpectations(t)
	s.Required.AssertExpectations(t)
	s.CreditJobs.AssertExpectations(t)
}

// MockTxRunner runs fn against Store without a database and counts how
// transactions ended.
type MockTxRunner struct {
	Store     *MockStore
	Commits   int
	Rollbacks int
}

func NewMockTxRunner(store *MockStore) *MockTxRunner {
	return &MockTxRunner{Store: store}
}

func (r *MockTxRunner) InTx(_ context.Context, fn func(repository.Store) error) error {
	if err := fn(r.Store); err != nil {
		r.Store.hooks = nil
		r.Rollbacks++
		return err
	}
	r.Commits++
	hooks := r.Store.hooks
	r.Store.hooks = nil
	for _, h := range hooks {
		h()
	}
	return nil
}
