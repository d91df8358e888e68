// Package model holds the signal classifier: a random forest that grows across runs, the frozen
// label encoding, the versioned feature schema and the artifact that persists all of them.
package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rxtech-lab/floorsheet-signals/internal/logger"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/internal/utils"
	"github.com/rxtech-lab/floorsheet-signals/internal/version"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"go.uber.org/zap"
)

const LatestArtifactName = "latest_model.json"

// Artifact is everything the trainer persists for one horizon.
type Artifact struct {
	FormatVersion string                  `json:"format_version"`
	Horizon       types.Horizon           `json:"horizon"`
	BrokerMode    types.BrokerMode        `json:"broker_mode"`
	TrainingDate  types.Date              `json:"training_date"`
	TrainedAt     time.Time               `json:"trained_at"`
	Runs          int                     `json:"runs"`
	RunID         string                  `json:"run_id"`
	Schema        FeatureSchema           `json:"feature_schema"`
	Labels        LabelEncoder            `json:"label_encoder"`
	Metrics       types.EvaluationMetrics `json:"metrics"`
	Forest        *RandomForest           `json:"forest"`
}

// NewArtifact creates a cold artifact with an unfitted forest of baseEstimators trees.
func NewArtifact(horizon types.Horizon, mode types.BrokerMode, columns []string, baseEstimators int, params Params) *Artifact {
	labels := NewLabelEncoder()

	return &Artifact{
		FormatVersion: version.ArtifactFormatVersion,
		Horizon:       horizon,
		BrokerMode:    mode,
		Schema:        NewFeatureSchema(columns),
		Labels:        labels,
		Forest:        NewRandomForest(baseEstimators, labels.Len(), params),
	}
}

// Version is the model version reported with predictions.
func (a *Artifact) Version() string {
	if a.TrainingDate.IsZero() {
		return "unknown"
	}

	return a.TrainingDate.String()
}

// Validate checks that a decoded artifact is usable by this build.
func (a *Artifact) Validate() error {
	if err := version.CheckArtifactCompatibility(version.ArtifactFormatVersion, a.FormatVersion); err != nil {
		return errors.Wrap(errors.ErrCodeArtifactIncompatible, "artifact format", err)
	}

	if err := a.Schema.CheckCompatible(); err != nil {
		return err
	}

	if !a.Labels.Equal(NewLabelEncoder()) {
		return errors.Newf(errors.ErrCodeArtifactIncompatible, "artifact label encoding %v differs from %v", a.Labels.Classes, types.AllSignals)
	}

	if a.Forest == nil {
		return errors.New(errors.ErrCodeArtifactCorrupt, "artifact has no forest")
	}

	if a.Forest.NClasses != a.Labels.Len() {
		return errors.Newf(errors.ErrCodeArtifactCorrupt, "forest has %d classes, encoder has %d", a.Forest.NClasses, a.Labels.Len())
	}

	if a.Forest.NFeatures != 0 && a.Forest.NFeatures != len(a.Schema.Columns) {
		return errors.Newf(errors.ErrCodeArtifactCorrupt, "forest has %d features, schema has %d", a.Forest.NFeatures, len(a.Schema.Columns))
	}

	for i, t := range a.Forest.Trees {
		if t == nil || len(t.Nodes) == 0 {
			return errors.Newf(errors.ErrCodeArtifactCorrupt, "tree %d is empty", i)
		}
	}

	return nil
}

// ArtifactStore reads and writes the artifacts of one horizon directory.
type ArtifactStore struct {
	dir           string
	keepSnapshots bool
	log           *logger.Logger
}

func NewArtifactStore(dir string, keepSnapshots bool, log *logger.Logger) *ArtifactStore {
	return &ArtifactStore{dir: dir, keepSnapshots: keepSnapshots, log: log.Named("artifact")}
}

func (s *ArtifactStore) Path() string {
	return filepath.Join(s.dir, LatestArtifactName)
}

// SnapshotPath is the dated copy written next to the latest artifact.
func (s *ArtifactStore) SnapshotPath(d types.Date) string {
	return filepath.Join(s.dir, "model_"+d.Compact()+".json")
}

// Load reads the latest artifact. A missing file yields ErrCodeArtifactNotFound, an undecodable
// one ErrCodeArtifactCorrupt, and one this build cannot use ErrCodeArtifactIncompatible.
func (s *ArtifactStore) Load() (*Artifact, error) {
	data, err := os.ReadFile(s.Path())
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(errors.ErrCodeArtifactNotFound, err, "no artifact at %s", s.Path())
	}

	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeArtifactCorrupt, err, "failed to read %s", s.Path())
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeArtifactCorrupt, err, "failed to decode %s", s.Path())
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}

	s.log.Debug("Loaded artifact",
		zap.String("path", s.Path()),
		zap.Int("estimators", a.Forest.Fitted()),
		zap.String("training_date", a.Version()),
	)

	return &a, nil
}

// Save atomically replaces the latest artifact and, when enabled, writes the dated snapshot.
func (s *ArtifactStore) Save(a *Artifact) error {
	data, err := json.Marshal(a)
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to encode artifact", err)
	}

	if err := utils.WriteBytesAtomic(s.Path(), data); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to write artifact", err)
	}

	if s.keepSnapshots && !a.TrainingDate.IsZero() {
		if err := utils.WriteBytesAtomic(s.SnapshotPath(a.TrainingDate), data); err != nil {
			s.log.Warn("Failed to write artifact snapshot", zap.Error(err))
		}
	}

	s.log.Info("Saved artifact",
		zap.String("path", s.Path()),
		zap.Int("estimators", a.Forest.Fitted()),
	)

	return nil
}
