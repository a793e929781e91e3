package model

// Common OCR document groups. The set is open-ended.
const (
	GroupTaxes        = "Taxes"
	GroupContracts    = "Contracts"
	GroupInvoices     = "Invoices"
	GroupBalanceSheet = "Balance Sheet Data"
	GroupIncomeStmt   = "Income Statement"
	GroupCashFlow     = "Cash Flow Statements"
	GroupUngrouped    = "Other"
)

// OcrFieldObservation is one raw field extracted from one document.
type OcrFieldObservation struct {
	DocID      string   `json:"docId" yaml:"docId"`
	Group      string   `json:"group" yaml:"group"`
	Label      string   `json:"label" yaml:"label"`
	Value      string   `json:"value" yaml:"value"`
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// OcrGroup holds the observations of one document group in input order.
type OcrGroup struct {
	Name   string                `json:"name"`
	Fields []OcrFieldObservation `json:"fields"`
}

// LabelCollision is a field label seen in more than one document.
// The collision itself is the signal; Conflict additionally reports
// whether the documents disagree on the value.
type LabelCollision struct {
	Label          string                `json:"label"`
	DocIDs         []string              `json:"docIds"`
	Groups         []string              `json:"groups"`
	CrossGroup     bool                  `json:"crossGroup"`
	Conflict       bool                  `json:"conflict"`
	DistinctValues int                   `json:"distinctValues"`
	Observations   []OcrFieldObservation `json:"observations"`
}

// OcrInsightView is the grouped and flagged view over OCR observations.
type OcrInsightView struct {
	Groups     []OcrGroup       `json:"groups"`
	Collisions []LabelCollision `json:"collisions"`
}
