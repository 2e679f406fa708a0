// Package category normalizes document category names against the canonical
// keys used by lender requirements and the required-document tracker.
package category

import (
	"fmt"
	"sort"
	"strings"
)

// Category is a canonical document category key.
type Category string

const (
	BankStatements          Category = "bank_statements_6_months"
	GovernmentID            Category = "government_id"
	VoidCheque              Category = "void_cheque"
	BusinessTaxReturns      Category = "business_tax_returns"
	PersonalTaxReturns      Category = "personal_tax_returns"
	FinancialStatements     Category = "financial_statements"
	ArticlesOfIncorporation Category = "articles_of_incorporation"
	AccountsReceivable      Category = "accounts_receivable_aging"
	AccountsPayable         Category = "accounts_payable_aging"
	EquipmentQuote          Category = "equipment_quote"
	ProofOfAddress          Category = "proof_of_address"
	BusinessLicense         Category = "business_license"
	PersonalGuarantee       Category = "personal_guarantee"
)

// aliases maps legacy and alternate names to canonical keys. Canonical keys
// map to themselves through Normalize without an entry here.
var aliases = map[string]Category{
	"bank_statement":           BankStatements,
	"bank_statements":          BankStatements,
	"bank_statements_3_months": BankStatements,
	"business_bank_statements": BankStatements,
	"statements":               BankStatements,

	"id_document":          GovernmentID,
	"photo_id":             GovernmentID,
	"drivers_license":      GovernmentID,
	"driver_license":       GovernmentID,
	"passport":             GovernmentID,
	"government_issued_id": GovernmentID,

	"void_check":    VoidCheque,
	"voided_check":  VoidCheque,
	"voided_cheque": VoidCheque,

	"tax_returns":           BusinessTaxReturns,
	"business_tax_return":   BusinessTaxReturns,
	"corporate_tax_returns": BusinessTaxReturns,
	"personal_tax_return":   PersonalTaxReturns,
	"noa":                   PersonalTaxReturns,
	"notice_of_assessment":  PersonalTaxReturns,

	"financials":                   FinancialStatements,
	"financial_statement":          FinancialStatements,
	"year_end_financials":          FinancialStatements,
	"articles":                     ArticlesOfIncorporation,
	"certificate_of_incorporation": ArticlesOfIncorporation,
	"ar_aging":                     AccountsReceivable,
	"accounts_receivable":          AccountsReceivable,
	"ap_aging":                     AccountsPayable,
	"accounts_payable":             AccountsPayable,
	"equipment_invoice":            EquipmentQuote,
	"utility_bill":                 ProofOfAddress,
	"license":                      BusinessLicense,
	"guarantee":                    PersonalGuarantee,
}

var canonical = map[Category]struct{}{
	BankStatements: {}, GovernmentID: {}, VoidCheque: {}, BusinessTaxReturns: {},
	PersonalTaxReturns: {}, FinancialStatements: {}, ArticlesOfIncorporation: {},
	AccountsReceivable: {}, AccountsPayable: {}, EquipmentQuote: {},
	ProofOfAddress: {}, BusinessLicense: {}, PersonalGuarantee: {},
}

// Unrecognized is returned by Normalize for names outside the alias table.
type Unrecognized struct {
	Raw string
}

func (u *Unrecognized) Error() string {
	return fmt.Sprintf("unrecognized document category %q", u.Raw)
}

// Key is the cleaned form of the raw name, used as a tracker key when the
// category has no canonical mapping.
func (u *Unrecognized) Key() string {
	return clean(u.Raw)
}

// Normalize resolves raw to its canonical category. Names outside the alias
// table return an *Unrecognized error.
func Normalize(raw string) (Category, error) {
	k := clean(raw)
	if _, ok := canonical[Category(k)]; ok {
		return Category(k), nil
	}
	if c, ok := aliases[k]; ok {
		return c, nil
	}
	return "", &Unrecognized{Raw: raw}
}

// Key returns the canonical key for raw, or the cleaned raw name when the
// category is unrecognized. Empty input yields "".
func Key(raw string) string {
	c, err := Normalize(raw)
	if err != nil {
		return clean(raw)
	}
	return string(c)
}

// IsBankStatement reports whether raw resolves to the bank statements category.
func IsBankStatement(raw string) bool {
	c, err := Normalize(raw)
	return err == nil && c == BankStatements
}

// Aliases returns every stored name that resolves to c, including c itself,
// sorted for stable query arguments.
func Aliases(c Category) []string {
	out := []string{string(c)}
	for alias, target := range aliases {
		if target == c {
			out = append(out, alias)
		}
	}
	sort.Strings(out[1:])
	return out
}

func clean(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_", "/", "_").Replace(s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}
