// Package store persists loan applications and the field observations
// recorded against them by bank statement parsing, the client form and
// document OCR.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/sells-group/reconcile-cli/internal/model"
)

// Store is the persistence interface read by the value collector and the
// OCR insight endpoints.
type Store interface {
	ApplicationExists(ctx context.Context, applicationID string) (bool, error)
	BankingFields(ctx context.Context, applicationID string) ([]model.SourcedValue, error)
	ClientFormFields(ctx context.Context, applicationID string) ([]model.SourcedValue, error)
	OcrFields(ctx context.Context, applicationID string) ([]model.SourcedValue, error)
	OcrObservations(ctx context.Context, applicationID string) ([]model.OcrFieldObservation, error)

	// Seed replaces every row of one application.
	Seed(ctx context.Context, app Application) error

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Application is a loan application with every observation recorded for it.
type Application struct {
	ID           string        `yaml:"id" json:"id"`
	BusinessName string        `yaml:"business_name" json:"businessName"`
	Statements   []Statement   `yaml:"statements" json:"statements"`
	Form         *FormSnapshot `yaml:"form" json:"form"`
	Documents    []Document    `yaml:"documents" json:"documents"`
}

// Statement is one parsed bank statement.
type Statement struct {
	ID       string       `yaml:"id" json:"id"`
	ParsedAt *time.Time   `yaml:"parsed_at" json:"parsedAt"`
	Fields   []FieldValue `yaml:"fields" json:"fields"`
}

// FormSnapshot is one submission of the client application form.
type FormSnapshot struct {
	ID          string       `yaml:"id" json:"id"`
	SubmittedAt *time.Time   `yaml:"submitted_at" json:"submittedAt"`
	Fields      []FieldValue `yaml:"fields" json:"fields"`
}

// Document is one uploaded document run through OCR.
type Document struct {
	ID         string          `yaml:"id" json:"id"`
	Group      string          `yaml:"group" json:"group"`
	ObservedAt *time.Time      `yaml:"observed_at" json:"observedAt"`
	Fields     []DocumentField `yaml:"fields" json:"fields"`
}

// FieldValue is a named value. Field is a column id for form and OCR rows
// and a statement header name for bank rows.
type FieldValue struct {
	Field string      `yaml:"field" json:"field"`
	Value model.Value `yaml:"value" json:"value"`
}

// DocumentField is one OCR extraction. Field is empty when the label was
// not mapped to an application column.
type DocumentField struct {
	Field      string      `yaml:"field" json:"field"`
	Label      string      `yaml:"label" json:"label"`
	Value      model.Value `yaml:"value" json:"value"`
	Confidence *float64    `yaml:"confidence" json:"confidence"`
}

// Labels attached to values read from each table.
const (
	LabelBankStatement = "Bank Statement"
	LabelClientForm    = "Client Application"
	LabelDocument      = "Document"
)

// fieldRow is one scanned row of a field table.
type fieldRow struct {
	sourceID   string
	group      string
	field      string
	raw        string
	numeric    *float64
	observedAt *time.Time
}

func (r fieldRow) value() model.Value {
	if r.numeric != nil {
		return model.Value{Kind: model.KindNumeric, Raw: r.raw, Parsed: r.numeric}
	}
	return model.Text(r.raw)
}

func (r fieldRow) sourced(column string, typ model.SourceType, label string) model.SourcedValue {
	return model.SourcedValue{
		Column:     column,
		Value:      r.value(),
		SourceType: typ,
		SourceID:   r.sourceID,
		Label:      label,
		ObservedAt: r.observedAt,
	}
}

func bankValues(rows []fieldRow, reg *model.ColumnRegistry) []model.SourcedValue {
	out := make([]model.SourcedValue, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.sourced(reg.BankColumn(r.field), model.SourceBanking, LabelBankStatement))
	}
	return out
}

func formValues(rows []fieldRow) []model.SourcedValue {
	out := make([]model.SourcedValue, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.sourced(r.field, model.SourceClient, LabelClientForm))
	}
	return out
}

func ocrValues(rows []fieldRow) []model.SourcedValue {
	out := make([]model.SourcedValue, 0, len(rows))
	for _, r := range rows {
		label := strings.TrimSpace(r.group)
		if label == "" {
			label = LabelDocument
		}
		out = append(out, r.sourced(r.field, model.SourceOCR, label))
	}
	return out
}

// splitValue returns the text and numeric columns stored for v.
func splitValue(v model.Value) (string, *float64) {
	if v.IsNumeric() {
		f := *v.Parsed
		return v.Raw, &f
	}
	return v.Raw, nil
}

// seedRows holds the rows Seed inserts, one slice per table, each row in
// the table's column order.
type seedRows struct {
	bank [][]any
	form [][]any
	ocr  [][]any
}

// flatten builds the rows Seed inserts. newID is called once per row.
func flatten(app Application, newID func() string) seedRows {
	var rows seedRows
	pos := 0
	for _, st := range app.Statements {
		for _, f := range st.Fields {
			raw, num := splitValue(f.Value)
			rows.bank = append(rows.bank, []any{newID(), app.ID, st.ID, f.Field, raw, num, st.ParsedAt, pos})
			pos++
		}
	}
	if app.Form != nil {
		pos = 0
		for _, f := range app.Form.Fields {
			raw, num := splitValue(f.Value)
			rows.form = append(rows.form, []any{newID(), app.ID, app.Form.ID, f.Field, raw, num, app.Form.SubmittedAt, pos})
			pos++
		}
	}
	pos = 0
	for _, d := range app.Documents {
		for _, f := range d.Fields {
			raw, num := splitValue(f.Value)
			rows.ocr = append(rows.ocr, []any{newID(), app.ID, d.ID, d.Group, f.Field, f.Label, raw, num, f.Confidence, d.ObservedAt, pos})
			pos++
		}
	}
	return rows
}

var (
	bankColumns = []string{"id", "application_id", "statement_id", "field", "value", "numeric_value", "parsed_at", "position"}
	formColumns = []string{"id", "application_id", "snapshot_id", "field", "value", "numeric_value", "submitted_at", "position"}
	ocrColumns  = []string{"id", "application_id", "doc_id", "doc_group", "field", "label", "value", "numeric_value", "confidence", "observed_at", "position"}
)

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
