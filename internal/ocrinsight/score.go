package ocrinsight

import (
	"math"
	"sort"

	"github.com/sells-group/reconcile-cli/internal/model"
	"github.com/sells-group/reconcile-cli/internal/normalize"
)

// Severity levels.
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// Scorer assigns a severity in [0,1] to a label collision.
type Scorer interface {
	Score(c model.LabelCollision) float64
}

// DefaultLabelWeights weights identity and headline financial labels above the rest.
var DefaultLabelWeights = map[string]float64{
	"sin":                     1.0,
	"social insurance number": 1.0,
	"legal business name":     0.8,
	"business number":         0.8,
	"account number":          0.8,
	"total assets":            0.6,
	"net income":              0.6,
	"total revenue":           0.6,
}

// DefaultWeight applies to labels without an explicit weight.
const DefaultWeight = 0.3

// WeightScorer scores collisions by label weight. Disagreeing values count
// fully, agreeing values count half, and collisions that cross document
// groups get a 25% boost.
type WeightScorer struct {
	weights map[string]float64
	def     float64
}

// NewWeightScorer creates a WeightScorer. Label keys are folded the same way
// collision labels are; def <= 0 uses DefaultWeight.
func NewWeightScorer(weights map[string]float64, def float64) *WeightScorer {
	if weights == nil {
		weights = DefaultLabelWeights
	}
	if def <= 0 {
		def = DefaultWeight
	}
	w := make(map[string]float64, len(weights))
	for k, v := range weights {
		w[normalize.Label(k)] = v
	}
	return &WeightScorer{weights: w, def: def}
}

// Weight returns the weight applied to a label.
func (s *WeightScorer) Weight(label string) float64 {
	if w, ok := s.weights[normalize.Label(label)]; ok {
		return w
	}
	return s.def
}

// Score implements Scorer.
func (s *WeightScorer) Score(c model.LabelCollision) float64 {
	score := s.Weight(c.Label)
	if !c.Conflict {
		score *= 0.5
	}
	if c.CrossGroup {
		score *= 1.25
	}
	return math.Min(1, math.Max(0, score))
}

// Level buckets a severity score.
func Level(score float64) string {
	switch {
	case score >= 0.7:
		return LevelHigh
	case score >= 0.4:
		return LevelMedium
	default:
		return LevelLow
	}
}

// ScoredCollision is a label collision with its severity.
type ScoredCollision struct {
	model.LabelCollision
	Severity float64 `json:"severity"`
	Level    string  `json:"level"`
}

// ConflictList scores every collision in the view, highest severity first.
func ConflictList(view model.OcrInsightView, scorer Scorer) []ScoredCollision {
	out := make([]ScoredCollision, 0, len(view.Collisions))
	for _, c := range view.Collisions {
		sev := math.Round(scorer.Score(c)*1000) / 1000
		out = append(out, ScoredCollision{LabelCollision: c, Severity: sev, Level: Level(sev)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity > out[j].Severity
		}
		return out[i].Label < out[j].Label
	})
	return out
}
