// Package report writes reconciliation results to an XLSX workbook for
// staff review outside the app.
package report

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/reconcile-cli/internal/conflict"
	"github.com/sells-group/reconcile-cli/internal/model"
	"github.com/sells-group/reconcile-cli/internal/ocrinsight"
)

// Sheet names written by Write.
const (
	SheetSummary    = "Summary"
	SheetConflicts  = "Conflicts"
	SheetCollisions = "OCR Collisions"
)

var (
	conflictHeader  = []string{"Column", "Title", "Conflict", "Source Type", "Source ID", "Label", "Value", "Observed At"}
	collisionHeader = []string{"Label", "Severity", "Level", "Cross Group", "Conflict", "Distinct Values", "Documents", "Groups"}
)

// Report is the content of one workbook.
type Report struct {
	ApplicationID string
	Columns       []model.ColumnConflict
	Collisions    []ocrinsight.ScoredCollision
}

// Write saves the report to path. The Conflicts sheet has one row per
// observation so every source of a column stays visible; the collisions
// sheet has one row per colliding label.
func Write(path string, r Report) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet(SheetSummary)
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	sum := conflict.Summarize(r.Columns)
	addPair(summary, "Application", r.ApplicationID)
	addPair(summary, "Generated At", time.Now().UTC().Format(time.RFC3339))
	addCount(summary, "Columns", sum.Columns)
	addCount(summary, "Columns In Conflict", sum.Conflicts)
	addCount(summary, "Observations", sum.Observations)
	addCount(summary, "OCR Collisions", len(r.Collisions))

	conflicts, err := f.AddSheet(SheetConflicts)
	if err != nil {
		return eris.Wrap(err, "report: add conflicts sheet")
	}
	addHeader(conflicts, conflictHeader)
	for _, col := range r.Columns {
		for _, v := range col.Values {
			row := conflicts.AddRow()
			addString(row, col.Column)
			addString(row, col.Title)
			addString(row, yesNo(col.Conflict))
			addString(row, string(v.SourceType))
			addString(row, v.SourceID)
			addString(row, v.Label)
			addValue(row, v.Value)
			addString(row, formatTime(v.ObservedAt))
		}
	}

	collisions, err := f.AddSheet(SheetCollisions)
	if err != nil {
		return eris.Wrap(err, "report: add collisions sheet")
	}
	addHeader(collisions, collisionHeader)
	for _, c := range r.Collisions {
		row := collisions.AddRow()
		addString(row, c.Label)
		row.AddCell().SetFloat(c.Severity)
		addString(row, c.Level)
		addString(row, yesNo(c.CrossGroup))
		addString(row, yesNo(c.Conflict))
		row.AddCell().SetInt(c.DistinctValues)
		addString(row, strings.Join(c.DocIDs, ", "))
		addString(row, strings.Join(c.Groups, ", "))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func addHeader(sheet *xlsx.Sheet, names []string) {
	row := sheet.AddRow()
	for _, n := range names {
		row.AddCell().SetString(n)
	}
}

func addPair(sheet *xlsx.Sheet, k, v string) {
	row := sheet.AddRow()
	addString(row, k)
	addString(row, v)
}

func addCount(sheet *xlsx.Sheet, k string, n int) {
	row := sheet.AddRow()
	addString(row, k)
	row.AddCell().SetInt(n)
}

func addString(row *xlsx.Row, s string) {
	row.AddCell().SetString(s)
}

func addValue(row *xlsx.Row, v model.Value) {
	if v.IsNumeric() {
		row.AddCell().SetFloat(*v.Parsed)
		return
	}
	addString(row, v.Raw)
}

func yesNo(b bool) string {
	return strconv.FormatBool(b)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
