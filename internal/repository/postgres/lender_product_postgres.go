package postgres

import (
	"context"

	"github.com/lib/pq"

	"loanops/internal/model"
	"loanops/internal/repository"
)

// LenderProductPostgres reads lender product configuration and the document
// list attached to each product.
type LenderProductPostgres struct {
	db repository.DBTX
}

func NewLenderProductPostgres(db repository.DBTX) *LenderProductPostgres {
	return &LenderProductPostgres{db: db}
}

var _ repository.LenderProductRepository = (*LenderProductPostgres)(nil)

// FindProduct returns the product regardless of its active flag: an
// explicitly chosen product keeps its configured requirements.
func (r *LenderProductPostgres) FindProduct(ctx context.Context, id string) (*model.LenderProduct, error) {
	const q = `
		SELECT id, lender_id, category, country, min_amount::float8, max_amount::float8
		FROM lender_products
		WHERE id = $1`
	var p model.LenderProduct
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.LenderID, &p.Category, &p.Country, &p.MinAmount, &p.MaxAmount,
	); err != nil {
		return nil, err
	}
	reqs, err := r.requirements(ctx, []string{p.ID})
	if err != nil {
		return nil, err
	}
	p.Requirements = reqs[p.ID]
	return &p, nil
}

func (r *LenderProductPostgres) ListActive(ctx context.Context, category, country string) ([]model.LenderProduct, error) {
	const q = `
		SELECT p.id, p.lender_id, p.category, p.country, p.min_amount::float8, p.max_amount::float8
		FROM lender_products p
		JOIN lenders l ON l.id = p.lender_id
		WHERE p.active AND l.active
		  AND p.category = $1
		  AND ($2 = '' OR p.country = $2 OR p.country = 'BOTH')
		ORDER BY p.id`
	rows, err := r.db.QueryContext(ctx, q, category, country)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]model.LenderProduct, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var p model.LenderProduct
		if err := rows.Scan(&p.ID, &p.LenderID, &p.Category, &p.Country, &p.MinAmount, &p.MaxAmount); err != nil {
			return nil, err
		}
		products = append(products, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return products, nil
	}

	reqs, err := r.requirements(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Requirements = reqs[products[i].ID]
	}
	return products, nil
}

func (r *LenderProductPostgres) requirements(ctx context.Context, productIDs []string) (map[string][]model.LenderProductRequirement, error) {
	const q = `
		SELECT lender_product_id, document_type, required, min_amount::float8, max_amount::float8
		FROM lender_product_required_documents
		WHERE lender_product_id = ANY($1)
		ORDER BY lender_product_id, document_type`
	rows, err := r.db.QueryContext(ctx, q, pq.Array(productIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]model.LenderProductRequirement, len(productIDs))
	for rows.Next() {
		var (
			productID string
			req       model.LenderProductRequirement
		)
		if err := rows.Scan(&productID, &req.DocumentType, &req.Required, &req.MinAmount, &req.MaxAmount); err != nil {
			return nil, err
		}
		out[productID] = append(out[productID], req)
	}
	return out, rows.Err()
}
