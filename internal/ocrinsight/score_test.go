package ocrinsight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/reconcile-cli/internal/model"
)

func TestWeightScorer_Score(t *testing.T) {
	s := NewWeightScorer(nil, 0)

	tests := []struct {
		name string
		c    model.LabelCollision
		want float64
	}{
		{"sin agree cross group", model.LabelCollision{Label: "SIN", CrossGroup: true}, 0.625},
		{"sin conflict cross group capped", model.LabelCollision{Label: "SIN", Conflict: true, CrossGroup: true}, 1.0},
		{"legal name conflict", model.LabelCollision{Label: "Legal Business Name", Conflict: true}, 0.8},
		{"unknown label agree", model.LabelCollision{Label: "Invoice Date"}, 0.15},
		{"case-insensitive weight", model.LabelCollision{Label: "TOTAL  assets", Conflict: true}, 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.Score(tt.c), 0.0001)
		})
	}
}

func TestWeightScorer_CustomWeights(t *testing.T) {
	s := NewWeightScorer(map[string]float64{"Invoice Total": 0.9}, 0.1)
	assert.InDelta(t, 0.9, s.Weight("invoice total"), 0.0001)
	assert.InDelta(t, 0.1, s.Weight("SIN"), 0.0001)
}

func TestLevel(t *testing.T) {
	assert.Equal(t, LevelHigh, Level(0.7))
	assert.Equal(t, LevelHigh, Level(1))
	assert.Equal(t, LevelMedium, Level(0.625))
	assert.Equal(t, LevelMedium, Level(0.4))
	assert.Equal(t, LevelLow, Level(0.39))
	assert.Equal(t, LevelLow, Level(0))
}

func TestConflictList_SortedBySeverity(t *testing.T) {
	view := BuildView([]model.OcrFieldObservation{
		{DocID: "inv-1", Group: model.GroupInvoices, Label: "Invoice Date", Value: "2024-01-01"},
		{DocID: "inv-2", Group: model.GroupInvoices, Label: "Invoice Date", Value: "2024-01-01"},
		{DocID: "tax-2024", Group: model.GroupTaxes, Label: "SIN", Value: "123-456-789"},
		{DocID: "contract-1", Group: model.GroupContracts, Label: "SIN", Value: "123-456-789"},
		{DocID: "tax-2024", Group: model.GroupTaxes, Label: "Legal Business Name", Value: "Acme Ltd"},
		{DocID: "contract-1", Group: model.GroupContracts, Label: "Legal Business Name", Value: "Acme Limited"},
	})

	list := ConflictList(view, NewWeightScorer(nil, 0))
	require.Len(t, list, 3)

	assert.Equal(t, "Legal Business Name", list[0].Label)
	assert.InDelta(t, 1.0, list[0].Severity, 0.0001)
	assert.Equal(t, LevelHigh, list[0].Level)

	assert.Equal(t, "SIN", list[1].Label)
	assert.Equal(t, LevelMedium, list[1].Level)

	assert.Equal(t, "Invoice Date", list[2].Label)
	assert.Equal(t, LevelLow, list[2].Level)
}

func TestConflictList_Empty(t *testing.T) {
	list := ConflictList(BuildView(nil), NewWeightScorer(nil, 0))
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
