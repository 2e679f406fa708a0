package requirements

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"loanops/internal/apperror"
	"loanops/internal/category"
	"loanops/internal/model"
	"loanops/internal/repository/mocks"
)

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }

func categories(reqs []Requirement) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.Category)
	}
	return out
}

func find(reqs []Requirement, cat category.Category) (Requirement, bool) {
	for _, r := range reqs {
		if r.Category == string(cat) {
			return r, true
		}
	}
	return Requirement{}, false
}

func TestResolve_ProductTypeUnion(t *testing.T) {
	repo := new(mocks.MockLenderProductRepository)
	repo.On("ListActive", mock.Anything, "LOC", "CA").Return([]model.LenderProduct{
		{
			ID: "p1",
			Requirements: []model.LenderProductRequirement{
				{DocumentType: "bank_statements", Required: true},
				{DocumentType: "photo_id", Required: false},
			},
		},
		{
			ID: "p2",
			Requirements: []model.LenderProductRequirement{
				{DocumentType: "government_id", Required: true},
				{DocumentType: "void_cheque", Required: false},
			},
		},
	}, nil)

	reqs, err := NewResolver(repo).Resolve(context.Background(), Query{
		ProductType: "line of credit",
		Country:     "CA",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		string(category.BankStatements),
		string(category.GovernmentID),
		string(category.VoidCheque),
	}, categories(reqs))

	id, _ := find(reqs, category.GovernmentID)
	assert.True(t, id.Required, "required is OR'd across products")
	vc, _ := find(reqs, category.VoidCheque)
	assert.False(t, vc.Required)
	repo.AssertExpectations(t)
}

func TestResolve_AmountFiltersProductsAndEntries(t *testing.T) {
	repo := new(mocks.MockLenderProductRepository)
	repo.On("ListActive", mock.Anything, "TERM", "").Return([]model.LenderProduct{
		{
			ID:        "small",
			MaxAmount: f(50000),
			Requirements: []model.LenderProductRequirement{
				{DocumentType: "proof_of_address", Required: true},
			},
		},
		{
			ID:        "large",
			MinAmount: f(100000),
			Requirements: []model.LenderProductRequirement{
				{DocumentType: "financial_statements", Required: true},
				{DocumentType: "personal_guarantee", Required: true, MinAmount: f(500000)},
			},
		},
	}, nil)

	reqs, err := NewResolver(repo).Resolve(context.Background(), Query{
		ProductType:     "term_loan",
		RequestedAmount: f(250000),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		string(category.BankStatements),
		string(category.FinancialStatements),
	}, categories(reqs))
}

func TestResolve_NoMatchingProduct(t *testing.T) {
	repo := new(mocks.MockLenderProductRepository)
	repo.On("ListActive", mock.Anything, "MCA", "US").Return([]model.LenderProduct{
		{ID: "p", MinAmount: f(10000)},
	}, nil)

	_, err := NewResolver(repo).Resolve(context.Background(), Query{
		ProductType:     "merchant cash advance",
		Country:         "US",
		RequestedAmount: f(500),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrInvalidProduct))
}

func TestResolve_MissingProductType(t *testing.T) {
	repo := new(mocks.MockLenderProductRepository)

	_, err := NewResolver(repo).Resolve(context.Background(), Query{})
	assert.True(t, errors.Is(err, apperror.ErrInvalidProduct))
	repo.AssertNotCalled(t, "ListActive", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_LenderProduct(t *testing.T) {
	repo := new(mocks.MockLenderProductRepository)
	repo.On("FindProduct", mock.Anything, "prod-1").Return(&model.LenderProduct{
		ID: "prod-1",
		Requirements: []model.LenderProductRequirement{
			{DocumentType: "Void-Cheque", Required: true},
			{DocumentType: "equipment_quote", Required: true, MaxAmount: f(1000)},
		},
	}, nil)

	reqs, err := NewResolver(repo).Resolve(context.Background(), Query{
		LenderProductID: s("prod-1"),
		ProductType:     "TERM",
		RequestedAmount: f(5000),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{string(category.BankStatements), string(category.VoidCheque)}, categories(reqs))
	repo.AssertNotCalled(t, "ListActive", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_UnknownLenderProductKeepsFloor(t *testing.T) {
	repo := new(mocks.MockLenderProductRepository)
	repo.On("FindProduct", mock.Anything, "gone").Return(nil, sql.ErrNoRows)

	reqs, err := NewResolver(repo).Resolve(context.Background(), Query{LenderProductID: s("gone")})
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, string(category.BankStatements), reqs[0].Category)
	assert.True(t, reqs[0].Required)
}

func TestResolve_RepositoryError(t *testing.T) {
	repo := new(mocks.MockLenderProductRepository)
	repo.On("FindProduct", mock.Anything, "p").Return(nil, errors.New("conn reset"))

	_, err := NewResolver(repo).Resolve(context.Background(), Query{LenderProductID: s("p")})
	require.Error(t, err)
	assert.Equal(t, apperror.Code(""), apperror.CodeOf(err))
}

func TestMerge(t *testing.T) {
	t.Run("bank statements forced required", func(t *testing.T) {
		reqs := Merge([]model.LenderProductRequirement{
			{DocumentType: "statements", Required: false},
		})
		require.Len(t, reqs, 1)
		assert.Equal(t, string(category.BankStatements), reqs[0].Category)
		assert.True(t, reqs[0].Required)
	})

	t.Run("ranges widen and nil stays unbounded", func(t *testing.T) {
		reqs := Merge([]model.LenderProductRequirement{
			{DocumentType: "void_cheque", MinAmount: f(1000), MaxAmount: f(5000)},
			{DocumentType: "voided_check", MinAmount: f(500), MaxAmount: f(3000)},
			{DocumentType: "proof_of_address", MinAmount: f(1000)},
			{DocumentType: "proof_of_address", MaxAmount: f(9000)},
		})
		vc, ok := find(reqs, category.VoidCheque)
		require.True(t, ok)
		assert.Equal(t, 500.0, *vc.MinAmount)
		assert.Equal(t, 5000.0, *vc.MaxAmount)

		poa, ok := find(reqs, category.ProofOfAddress)
		require.True(t, ok)
		assert.Nil(t, poa.MinAmount)
		assert.Nil(t, poa.MaxAmount)
	})

	t.Run("unknown categories kept under their cleaned name", func(t *testing.T) {
		reqs := Merge([]model.LenderProductRequirement{
			{DocumentType: "Landlord Letter", Required: true},
		})
		assert.Equal(t, []string{string(category.BankStatements), "landlord_letter"}, categories(reqs))
	})

	t.Run("empty input", func(t *testing.T) {
		reqs := Merge(nil)
		assert.Equal(t, []string{string(category.BankStatements)}, categories(reqs))
	})
}

func TestNormalizeProductType(t *testing.T) {
	cases := map[string]string{
		"standard":                 "LOC",
		"Line of Credit":           "LOC",
		"term-loan":                "TERM",
		"invoice_factoring":        "FACTORING",
		"Equipment Financing":      "EQUIPMENT",
		"MCA":                      "MCA",
		"purchase order financing": "PO",
		"bridge":                   "BRIDGE",
		"  ":                       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeProductType(in), in)
	}
}

func TestQueryFor(t *testing.T) {
	app := &model.Application{
		ID:              "a1",
		ProductType:     "TERM",
		LenderProductID: s("p"),
		RequestedAmount: f(10),
		Metadata:        []byte(`{"business":{"country":"canada"}}`),
	}
	q := QueryFor(app)
	assert.Equal(t, "TERM", q.ProductType)
	assert.Equal(t, "p", *q.LenderProductID)
	assert.Equal(t, 10.0, *q.RequestedAmount)
	assert.Equal(t, "CA", q.Country)
}
