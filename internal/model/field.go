package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ColumnDef describes a logical business field of a loan application.
type ColumnDef struct {
	Key   string    `json:"key" yaml:"key"`
	Title string    `json:"title" yaml:"title"`
	Kind  ValueKind `json:"kind" yaml:"kind"`
}

// ColumnRegistry is an indexed collection of column definitions plus the
// mapping from parsed bank-statement header fields onto columns.
type ColumnRegistry struct {
	Columns []ColumnDef
	byKey   map[string]*ColumnDef
	bank    map[string]string
}

// DefaultColumns lists the application columns staff review most often.
var DefaultColumns = []ColumnDef{
	{Key: "req_business_legal_name", Title: "Legal Business Name", Kind: KindText},
	{Key: "req_business_operating_name", Title: "Operating Name", Kind: KindText},
	{Key: "req_business_address", Title: "Business Address", Kind: KindText},
	{Key: "req_business_number", Title: "Business Number", Kind: KindText},
	{Key: "req_owner_sin", Title: "Owner SIN", Kind: KindText},
	{Key: "req_bank_account_number", Title: "Bank Account Number", Kind: KindText},
	{Key: "req_annual_revenue", Title: "Annual Revenue", Kind: KindNumeric},
	{Key: "req_amount_requested", Title: "Amount Requested", Kind: KindNumeric},
	{Key: "income_statement_net_income", Title: "Net Income", Kind: KindNumeric},
	{Key: "income_statement_revenue", Title: "Revenue", Kind: KindNumeric},
	{Key: "balance_sheet_total_assets", Title: "Total Assets", Kind: KindNumeric},
	{Key: "balance_sheet_total_liabilities", Title: "Total Liabilities", Kind: KindNumeric},
	{Key: "bank_average_daily_balance", Title: "Average Daily Balance", Kind: KindNumeric},
}

// DefaultBankFieldColumns maps bank-statement header fields to columns.
var DefaultBankFieldColumns = map[string]string{
	"account_holder_name":    "req_business_legal_name",
	"account_holder":         "req_business_legal_name",
	"address":                "req_business_address",
	"account_holder_address": "req_business_address",
	"account_number":         "req_bank_account_number",
	"average_daily_balance":  "bank_average_daily_balance",
	"avg_daily_balance":      "bank_average_daily_balance",
}

// NewColumnRegistry creates a ColumnRegistry with indexed lookups.
func NewColumnRegistry(cols []ColumnDef, bankFields map[string]string) *ColumnRegistry {
	r := &ColumnRegistry{
		Columns: cols,
		byKey:   make(map[string]*ColumnDef, len(cols)),
		bank:    make(map[string]string, len(bankFields)),
	}
	for i := range r.Columns {
		c := &r.Columns[i]
		r.byKey[c.Key] = c
	}
	for field, col := range bankFields {
		r.bank[strings.ToLower(strings.TrimSpace(field))] = col
	}
	return r
}

// DefaultRegistry returns a registry over DefaultColumns and DefaultBankFieldColumns.
func DefaultRegistry() *ColumnRegistry {
	return NewColumnRegistry(DefaultColumns, DefaultBankFieldColumns)
}

// ByKey returns the column definition for the given key, or nil if not found.
func (r *ColumnRegistry) ByKey(key string) *ColumnDef {
	return r.byKey[key]
}

// Title returns the display title for a column, deriving one from the
// column key when the column is not registered.
func (r *ColumnRegistry) Title(key string) string {
	if c := r.ByKey(key); c != nil && c.Title != "" {
		return c.Title
	}
	return HumanizeColumn(key)
}

// BankColumn maps a bank-statement header field to its column. Unmapped
// fields keep their own name.
func (r *ColumnRegistry) BankColumn(field string) string {
	if col, ok := r.bank[strings.ToLower(strings.TrimSpace(field))]; ok {
		return col
	}
	return field
}

// HumanizeColumn turns a column key like "req_business_address" into "Business Address".
func HumanizeColumn(key string) string {
	k := strings.TrimPrefix(strings.TrimSpace(key), "req_")
	k = strings.Join(strings.FieldsFunc(k, func(r rune) bool { return r == '_' || r == '-' }), " ")
	if k == "" {
		return key
	}
	return cases.Title(language.English).String(k)
}
