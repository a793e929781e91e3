package fixture

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/reconcile-cli/internal/model"
)

// Sheet names read by LoadXLSX.
const (
	SheetValues = "values"
	SheetOCR    = "ocr"
)

// LoadXLSX reads a workbook with a "values" sheet (column, value,
// sourceType, sourceId, label, observedAt) and an "ocr" sheet (docId,
// group, label, value, confidence). The first row of each sheet is a
// header; columns are matched by name, case-insensitively. Missing sheets
// are treated as empty.
func LoadXLSX(path string) (*File, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "fixture: open xlsx")
	}

	out := &File{}
	if sheet := findSheet(f, SheetValues); sheet != nil {
		vals, err := readValues(sheet)
		if err != nil {
			return nil, err
		}
		out.Values = vals
	}
	if sheet := findSheet(f, SheetOCR); sheet != nil {
		obs, err := readObservations(sheet)
		if err != nil {
			return nil, err
		}
		out.Observations = obs
	}
	return normalize(out), nil
}

func findSheet(f *xlsx.File, name string) *xlsx.Sheet {
	for _, s := range f.Sheets {
		if strings.EqualFold(strings.TrimSpace(s.Name), name) {
			return s
		}
	}
	return nil
}

// table indexes a sheet's data rows by header name.
type table struct {
	sheet  string
	header map[string]int
	rows   []*xlsx.Row
}

func newTable(sheet *xlsx.Sheet) table {
	t := table{sheet: sheet.Name, header: map[string]int{}}
	if len(sheet.Rows) == 0 {
		return t
	}
	for j, cell := range sheet.Rows[0].Cells {
		t.header[strings.ToLower(strings.TrimSpace(cell.String()))] = j
	}
	t.rows = sheet.Rows[1:]
	return t
}

func (t table) cell(row *xlsx.Row, name string) *xlsx.Cell {
	j, ok := t.header[strings.ToLower(name)]
	if !ok || j >= len(row.Cells) {
		return nil
	}
	return row.Cells[j]
}

func (t table) text(row *xlsx.Row, name string) string {
	c := t.cell(row, name)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.String())
}

func (t table) require(names ...string) error {
	for _, n := range names {
		if _, ok := t.header[strings.ToLower(n)]; !ok {
			return eris.Errorf("fixture: sheet %q is missing column %q", t.sheet, n)
		}
	}
	return nil
}

func blank(row *xlsx.Row) bool {
	for _, c := range row.Cells {
		if strings.TrimSpace(c.String()) != "" {
			return false
		}
	}
	return true
}

func readValues(sheet *xlsx.Sheet) ([]model.SourcedValue, error) {
	t := newTable(sheet)
	if len(sheet.Rows) == 0 {
		return nil, nil
	}
	if err := t.require("column", "value"); err != nil {
		return nil, err
	}

	var out []model.SourcedValue
	for i, row := range t.rows {
		if blank(row) {
			continue
		}
		v := model.SourcedValue{
			Column:     t.text(row, "column"),
			Value:      cellValue(t.cell(row, "value")),
			SourceType: model.SourceType(t.text(row, "sourceType")),
			SourceID:   t.text(row, "sourceId"),
			Label:      t.text(row, "label"),
		}
		if s := t.text(row, "observedAt"); s != "" {
			at, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, eris.Wrapf(err, "fixture: %s row %d: observedAt", t.sheet, i+2)
			}
			v.ObservedAt = &at
		}
		out = append(out, v)
	}
	return out, nil
}

func readObservations(sheet *xlsx.Sheet) ([]model.OcrFieldObservation, error) {
	t := newTable(sheet)
	if len(sheet.Rows) == 0 {
		return nil, nil
	}
	if err := t.require("docId", "label", "value"); err != nil {
		return nil, err
	}

	var out []model.OcrFieldObservation
	for i, row := range t.rows {
		if blank(row) {
			continue
		}
		o := model.OcrFieldObservation{
			DocID: t.text(row, "docId"),
			Group: t.text(row, "group"),
			Label: t.text(row, "label"),
			Value: t.text(row, "value"),
		}
		if s := t.text(row, "confidence"); s != "" {
			c, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "fixture: %s row %d: confidence", t.sheet, i+2)
			}
			o.Confidence = &c
		}
		out = append(out, o)
	}
	return out, nil
}

// cellValue keeps numeric cells numeric and reads everything else as text.
func cellValue(c *xlsx.Cell) model.Value {
	if c == nil {
		return model.Text("")
	}
	if c.Type() == xlsx.CellTypeNumeric {
		if f, err := c.Float(); err == nil {
			return model.Number(f)
		}
	}
	return model.Text(c.String())
}
