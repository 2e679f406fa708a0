package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Application is the subset of the loan application row the processing core
// reads and writes.
type Application struct {
	ID                       string          `json:"id"`
	ProcessingStage          ProcessingStage `json:"processing_stage"`
	OCRCompletedAt           *time.Time      `json:"ocr_completed_at,omitempty"`
	BankingCompletedAt       *time.Time      `json:"banking_completed_at,omitempty"`
	CreditSummaryCompletedAt *time.Time      `json:"credit_summary_completed_at,omitempty"`
	ProductType              string          `json:"product_type"`
	LenderProductID          *string         `json:"lender_product_id,omitempty"`
	RequestedAmount          *float64        `json:"requested_amount,omitempty"`
	Metadata                 json.RawMessage `json:"metadata,omitempty"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

// Country extracts an ISO country code from the free-form metadata. It looks
// at "country", then "business.country", then "business_country". Unknown
// or missing values return "".
func (a *Application) Country() string {
	if len(a.Metadata) == 0 {
		return ""
	}
	var meta struct {
		Country         string `json:"country"`
		BusinessCountry string `json:"business_country"`
		Business        struct {
			Country string `json:"country"`
		} `json:"business"`
	}
	if err := json.Unmarshal(a.Metadata, &meta); err != nil {
		return ""
	}
	for _, c := range []string{meta.Country, meta.Business.Country, meta.BusinessCountry} {
		if code := normalizeCountry(c); code != "" {
			return code
		}
	}
	return ""
}

func normalizeCountry(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CA", "CAN", "CANADA":
		return "CA"
	case "US", "USA", "UNITED STATES", "UNITED STATES OF AMERICA":
		return "US"
	default:
		return ""
	}
}
