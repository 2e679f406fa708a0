// Package requirements resolves the document categories an application must
// provide, from lender product configuration and the requested amount.
package requirements

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"loanops/internal/apperror"
	"loanops/internal/category"
	"loanops/internal/model"
	"loanops/internal/repository"
)

// Query selects the requirement source. A non-empty LenderProductID wins over
// ProductType.
type Query struct {
	LenderProductID *string
	ProductType     string
	RequestedAmount *float64
	Country         string
}

// QueryFor builds the query for an application.
func QueryFor(app *model.Application) Query {
	return Query{
		LenderProductID: app.LenderProductID,
		ProductType:     app.ProductType,
		RequestedAmount: app.RequestedAmount,
		Country:         app.Country(),
	}
}

// Requirement is one merged, normalized document requirement.
type Requirement struct {
	Category  string   `json:"category"`
	Required  bool     `json:"required"`
	MinAmount *float64 `json:"min_amount,omitempty"`
	MaxAmount *float64 `json:"max_amount,omitempty"`
}

// Resolver is the requirement resolver used by the stage engine and the
// document service.
type Resolver interface {
	Resolve(ctx context.Context, q Query) ([]Requirement, error)
}

type resolver struct {
	products repository.LenderProductRepository
}

// NewResolver returns a Resolver reading lender products from products.
func NewResolver(products repository.LenderProductRepository) Resolver {
	return &resolver{products: products}
}

// Resolve returns the merged requirements sorted by category. The bank
// statements category is always present and required. When no lender product
// is chosen and no active product matches the product type, country and
// amount, Resolve fails with invalid_product.
func (r *resolver) Resolve(ctx context.Context, q Query) ([]Requirement, error) {
	var entries []model.LenderProductRequirement

	if q.LenderProductID != nil && *q.LenderProductID != "" {
		p, err := r.products.FindProduct(ctx, *q.LenderProductID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// unknown product: only the bank statement floor applies
		case err != nil:
			return nil, fmt.Errorf("find lender product: %w", err)
		default:
			entries = appliesTo(p.Requirements, q.RequestedAmount)
		}
		return Merge(entries), nil
	}

	code := NormalizeProductType(q.ProductType)
	if code == "" {
		return nil, apperror.InvalidProduct("no lender product or product type given")
	}
	products, err := r.products.ListActive(ctx, code, q.Country)
	if err != nil {
		return nil, fmt.Errorf("list lender products: %w", err)
	}

	matched := 0
	for _, p := range products {
		if !p.AppliesTo(q.RequestedAmount) {
			continue
		}
		matched++
		entries = append(entries, appliesTo(p.Requirements, q.RequestedAmount)...)
	}
	if matched == 0 {
		return nil, apperror.InvalidProduct("no active lender product for product type %s (country %q)", code, q.Country)
	}
	return Merge(entries), nil
}

func appliesTo(reqs []model.LenderProductRequirement, amount *float64) []model.LenderProductRequirement {
	out := make([]model.LenderProductRequirement, 0, len(reqs))
	for _, r := range reqs {
		if r.AppliesTo(amount) {
			out = append(out, r)
		}
	}
	return out
}

// Merge groups entries by normalized category. required is OR'd and the
// amount range is widened; a nil bound on any side stays unbounded. The bank
// statements category is added or forced to required.
func Merge(entries []model.LenderProductRequirement) []Requirement {
	byKey := make(map[string]*Requirement)

	for _, e := range entries {
		key := category.Key(e.DocumentType)
		if key == "" {
			continue
		}
		cur, ok := byKey[key]
		if !ok {
			byKey[key] = &Requirement{
				Category:  key,
				Required:  e.Required,
				MinAmount: e.MinAmount,
				MaxAmount: e.MaxAmount,
			}
			continue
		}
		cur.Required = cur.Required || e.Required
		cur.MinAmount = widen(cur.MinAmount, e.MinAmount, func(a, b float64) bool { return b < a })
		cur.MaxAmount = widen(cur.MaxAmount, e.MaxAmount, func(a, b float64) bool { return b > a })
	}

	bank := string(category.BankStatements)
	if cur, ok := byKey[bank]; ok {
		cur.Required = true
	} else {
		byKey[bank] = &Requirement{Category: bank, Required: true}
	}

	out := make([]Requirement, 0, len(byKey))
	for _, r := range byKey {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// widen returns nil if either bound is nil, otherwise the bound preferred by better.
func widen(cur, next *float64, better func(a, b float64) bool) *float64 {
	if cur == nil || next == nil {
		return nil
	}
	if better(*cur, *next) {
		v := *next
		return &v
	}
	return cur
}

var productTypeCodes = map[string]string{
	"STANDARD":                 "LOC",
	"LOC":                      "LOC",
	"LINE_OF_CREDIT":           "LOC",
	"TERM":                     "TERM",
	"TERM_LOAN":                "TERM",
	"FACTORING":                "FACTORING",
	"INVOICE_FACTORING":        "FACTORING",
	"EQUIPMENT":                "EQUIPMENT",
	"EQUIPMENT_FINANCING":      "EQUIPMENT",
	"EQUIPMENT_FINANCE":        "EQUIPMENT",
	"MCA":                      "MCA",
	"MERCHANT_CASH_ADVANCE":    "MCA",
	"PO":                       "PO",
	"PURCHASE_ORDER_FINANCING": "PO",
}

// NormalizeProductType maps an application product type to the lender
// product category code. Unknown values pass through upper-cased.
func NormalizeProductType(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	if code, ok := productTypeCodes[s]; ok {
		return code
	}
	return s
}
