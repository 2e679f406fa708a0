package model

// LenderProductRequirement is one configured document requirement of a lender
// product. A nil bound is unbounded.
type LenderProductRequirement struct {
	DocumentType string   `json:"document_type"`
	Required     bool     `json:"required"`
	MinAmount    *float64 `json:"min_amount,omitempty"`
	MaxAmount    *float64 `json:"max_amount,omitempty"`
}

// AppliesTo reports whether the requirement's amount range covers amount.
// A nil amount matches every range.
func (r LenderProductRequirement) AppliesTo(amount *float64) bool {
	return inRange(amount, r.MinAmount, r.MaxAmount)
}

// LenderProduct is an active product of an active lender together with its
// configured document list.
type LenderProduct struct {
	ID           string                     `json:"id"`
	LenderID     string                     `json:"lender_id"`
	Category     string                     `json:"category"`
	Country      string                     `json:"country"`
	MinAmount    *float64                   `json:"min_amount,omitempty"`
	MaxAmount    *float64                   `json:"max_amount,omitempty"`
	Requirements []LenderProductRequirement `json:"requirements"`
}

// AppliesTo reports whether the product's amount range covers amount.
func (p LenderProduct) AppliesTo(amount *float64) bool {
	return inRange(amount, p.MinAmount, p.MaxAmount)
}

func inRange(amount, lo, hi *float64) bool {
	if amount == nil {
		return true
	}
	if lo != nil && *amount < *lo {
		return false
	}
	if hi != nil && *amount > *hi {
		return false
	}
	return true
}
