// Package ocrinsight groups raw OCR field extractions by document category
// and surfaces labels that recur across documents.
package ocrinsight

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/reconcile-cli/internal/conflict"
	"github.com/sells-group/reconcile-cli/internal/model"
	"github.com/sells-group/reconcile-cli/internal/normalize"
)

// BuildView partitions observations by group and indexes labels that appear
// under two or more distinct documents, regardless of group or value.
// Observations without a label are dropped; a blank group becomes "Other".
func BuildView(obs []model.OcrFieldObservation) model.OcrInsightView {
	valid := make([]model.OcrFieldObservation, 0, len(obs))
	for _, o := range obs {
		if strings.TrimSpace(o.Label) == "" {
			continue
		}
		if strings.TrimSpace(o.Group) == "" {
			o.Group = model.GroupUngrouped
		}
		valid = append(valid, o)
	}
	if dropped := len(obs) - len(valid); dropped > 0 {
		zap.L().Debug("ocrinsight: dropped observations without label", zap.Int("dropped", dropped))
	}

	byValue := func(o model.OcrFieldObservation) string { return normalize.Key(model.Text(o.Value)) }

	view := model.OcrInsightView{
		Groups:     []model.OcrGroup{},
		Collisions: []model.LabelCollision{},
	}

	groups := conflict.Group(valid,
		func(o model.OcrFieldObservation) (string, bool) { return strings.TrimSpace(o.Group), true },
		byValue,
	)
	for _, g := range groups {
		view.Groups = append(view.Groups, model.OcrGroup{Name: g.Key, Fields: g.Items})
	}

	labels := conflict.Group(valid,
		func(o model.OcrFieldObservation) (string, bool) { return normalize.Label(o.Label), true },
		byValue,
	)
	for _, b := range labels {
		docIDs := distinct(b.Items, func(o model.OcrFieldObservation) string { return strings.TrimSpace(o.DocID) })
		if len(docIDs) < 2 {
			continue
		}
		groupNames := distinct(b.Items, func(o model.OcrFieldObservation) string { return strings.TrimSpace(o.Group) })
		view.Collisions = append(view.Collisions, model.LabelCollision{
			Label:          strings.TrimSpace(b.Items[0].Label),
			DocIDs:         docIDs,
			Groups:         groupNames,
			CrossGroup:     len(groupNames) > 1,
			Conflict:       b.Conflict,
			DistinctValues: b.Distinct,
			Observations:   b.Items,
		})
	}
	return view
}

// Group returns the named group, or nil when no observation falls in it.
func Group(view model.OcrInsightView, name string) *model.OcrGroup {
	for i := range view.Groups {
		if view.Groups[i].Name == name {
			return &view.Groups[i]
		}
	}
	return nil
}

// distinct returns the non-blank keys of items in first-seen order.
func distinct(items []model.OcrFieldObservation, fn func(model.OcrFieldObservation) string) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, it := range items {
		k := fn(it)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
