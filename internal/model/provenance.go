package model

import "time"

// SourceType is the provenance category of an observation.
type SourceType string

// Known source types. The set is open; stores may emit others.
const (
	SourceBanking  SourceType = "banking"
	SourceClient   SourceType = "client"
	SourceOCR      SourceType = "ocr"
	SourceDocument SourceType = "document"
	SourceForm     SourceType = "form"
)

// SourcedValue is one observation of one logical field from one source.
// It is a historical record and is never updated in place.
type SourcedValue struct {
	Column     string     `json:"column" yaml:"column"`
	Value      Value      `json:"value" yaml:"value"`
	SourceType SourceType `json:"sourceType" yaml:"sourceType"`
	SourceID   string     `json:"sourceId,omitempty" yaml:"sourceId,omitempty"`
	Label      string     `json:"label" yaml:"label"`
	ObservedAt *time.Time `json:"observedAt,omitempty" yaml:"observedAt,omitempty"`
}

// Provenance is the (sourceType, sourceId, label) triple of an observation.
type Provenance struct {
	SourceType SourceType `json:"sourceType"`
	SourceID   string     `json:"sourceId,omitempty"`
	Label      string     `json:"label"`
}

// Provenance returns where the observation came from.
func (s SourcedValue) Provenance() Provenance {
	return Provenance{SourceType: s.SourceType, SourceID: s.SourceID, Label: s.Label}
}

// ColumnConflictRecord is the reconciled view of one column across all of
// its sources. Values keeps input order, including sources that agree.
type ColumnConflictRecord struct {
	Conflict bool           `json:"conflict"`
	Title    string         `json:"title,omitempty"`
	Values   []SourcedValue `json:"values"`
}

// ColumnConflict pairs a ColumnConflictRecord with its column for callers
// that need a deterministic column order.
type ColumnConflict struct {
	Column string `json:"column"`
	ColumnConflictRecord
}

// CollectionResult is the snapshot returned by the value collector.
// FailedSources lists sources that errored or timed out and contributed nothing.
type CollectionResult struct {
	ApplicationID string         `json:"applicationId"`
	Found         bool           `json:"found"`
	Values        []SourcedValue `json:"values"`
	FailedSources []SourceType   `json:"failedSources"`
}
