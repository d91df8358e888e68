package model

import (
	"slices"
	"sort"

	"github.com/rxtech-lab/floorsheet-signals/internal/version"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
)

// FeatureSchemaVersion is bumped whenever the meaning of a feature column changes.
const FeatureSchemaVersion = "1.0.0"

// FeatureSchema is the ordered list of model input columns stored with an artifact.
type FeatureSchema struct {
	Version string   `json:"version"`
	Columns []string `json:"columns"`
}

func NewFeatureSchema(columns []string) FeatureSchema {
	return FeatureSchema{Version: FeatureSchemaVersion, Columns: slices.Clone(columns)}
}

// Reconciliation lists the differences found while aligning a feature set with a schema.
type Reconciliation struct {
	Missing    []string `json:"missing,omitempty"`
	Unexpected []string `json:"unexpected,omitempty"`
}

func (r Reconciliation) Clean() bool {
	return len(r.Missing) == 0 && len(r.Unexpected) == 0
}

// Reconcile orders values by the schema's columns. Missing columns are filled with 0 and
// unexpected columns are dropped; both are reported, sorted by name.
func (s FeatureSchema) Reconcile(values map[string]float64) ([]float64, Reconciliation) {
	var rec Reconciliation

	vector := make([]float64, len(s.Columns))
	known := make(map[string]bool, len(s.Columns))

	for i, col := range s.Columns {
		known[col] = true

		v, ok := values[col]
		if !ok {
			rec.Missing = append(rec.Missing, col)

			continue
		}

		vector[i] = v
	}

	for col := range values {
		if !known[col] {
			rec.Unexpected = append(rec.Unexpected, col)
		}
	}

	sort.Strings(rec.Missing)
	sort.Strings(rec.Unexpected)

	return vector, rec
}

// CheckCompatible fails when s cannot be read by this build.
func (s FeatureSchema) CheckCompatible() error {
	if len(s.Columns) == 0 {
		return errors.New(errors.ErrCodeArtifactCorrupt, "feature schema has no columns")
	}

	if err := version.CheckArtifactCompatibility(FeatureSchemaVersion, s.Version); err != nil {
		return errors.Wrap(errors.ErrCodeArtifactIncompatible, "feature schema version", err)
	}

	return nil
}
