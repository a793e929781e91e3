// Package conflict reconciles sourced observations of loan-application
// fields. It flags disagreement between sources and never picks a winner.
package conflict

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/reconcile-cli/internal/model"
	"github.com/sells-group/reconcile-cli/internal/normalize"
)

// Engine builds column conflict records. The zero value is not usable; use
// NewEngine or the package-level Build.
type Engine struct {
	columns *model.ColumnRegistry
}

// NewEngine creates an Engine that titles columns from the given registry.
// A nil registry falls back to model.DefaultRegistry.
func NewEngine(columns *model.ColumnRegistry) *Engine {
	if columns == nil {
		columns = model.DefaultRegistry()
	}
	return &Engine{columns: columns}
}

var defaultEngine = NewEngine(nil)

// Build groups records by column using the default column registry.
func Build(records []model.SourcedValue) map[string]model.ColumnConflictRecord {
	return defaultEngine.Build(records)
}

// Build groups records by column and flags columns whose sources disagree.
// Every column in the input appears exactly once in the result. Records
// with a blank column are dropped.
func (e *Engine) Build(records []model.SourcedValue) map[string]model.ColumnConflictRecord {
	ordered := e.BuildOrdered(records)
	out := make(map[string]model.ColumnConflictRecord, len(ordered))
	for _, c := range ordered {
		out[c.Column] = c.ColumnConflictRecord
	}
	return out
}

// BuildOrdered is Build with columns in first-seen order.
func (e *Engine) BuildOrdered(records []model.SourcedValue) []model.ColumnConflict {
	dropped := 0
	buckets := Group(records,
		func(r model.SourcedValue) (string, bool) {
			if strings.TrimSpace(r.Column) == "" {
				dropped++
				return "", false
			}
			return r.Column, true
		},
		func(r model.SourcedValue) string { return normalize.Key(r.Value) },
	)
	if dropped > 0 {
		zap.L().Debug("conflict: dropped records without column", zap.Int("dropped", dropped))
	}

	out := make([]model.ColumnConflict, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, model.ColumnConflict{
			Column: b.Key,
			ColumnConflictRecord: model.ColumnConflictRecord{
				Conflict: b.Conflict,
				Title:    e.columns.Title(b.Key),
				Values:   b.Items,
			},
		})
	}
	return out
}

// Summary counts what a reconciliation pass found.
type Summary struct {
	Columns      int `json:"columns"`
	Conflicts    int `json:"conflicts"`
	Observations int `json:"observations"`
}

// Summarize counts columns, conflicting columns, and observations.
func Summarize(cols []model.ColumnConflict) Summary {
	var s Summary
	for _, c := range cols {
		s.Columns++
		s.Observations += len(c.Values)
		if c.Conflict {
			s.Conflicts++
		}
	}
	return s
}
