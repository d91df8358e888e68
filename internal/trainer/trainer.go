// Package trainer runs one incremental training pass for a horizon: it merges the persisted
// feature and target tables, grows the stored forest and fits the new trees, scores the result and
// persists the artifact.
package trainer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/floorsheet-signals/internal/config"
	"github.com/rxtech-lab/floorsheet-signals/internal/evaluator"
	"github.com/rxtech-lab/floorsheet-signals/internal/logger"
	"github.com/rxtech-lab/floorsheet-signals/internal/model"
	"github.com/rxtech-lab/floorsheet-signals/internal/store"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"go.uber.org/zap"
)

// DataSource reads the tables a training run consumes.
type DataSource interface {
	ReadTechnical(ctx context.Context, q store.Query) ([]types.TechnicalFeature, error)
	ReadBrokerConcentration(ctx context.Context, mode types.BrokerMode, q store.Query) ([]types.BrokerConcentration, error)
	ReadTargets(ctx context.Context, horizon types.Horizon, q store.Query) ([]types.TargetLabel, error)
}

// Recorder persists the evaluation of a run.
type Recorder interface {
	Record(report types.EvaluationReport) error
}

// ArtifactRepository loads and saves the artifact of one horizon.
type ArtifactRepository interface {
	Load() (*model.Artifact, error)
	Save(a *model.Artifact) error
}

// Result describes a completed training run.
type Result struct {
	RunID    string
	Cold     bool
	Artifact *model.Artifact
	Report   types.EvaluationReport
	Schema   model.Reconciliation
	// TrainEnd is the last date of the training split, TestStart the first date of the test split.
	TrainEnd  types.Date
	TestStart types.Date
}

type Trainer struct {
	cfg       config.TrainingConfig
	source    DataSource
	artifacts ArtifactRepository
	recorder  Recorder
	log       *logger.Logger
	now       func() time.Time
}

type Option func(*Trainer)

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(t *Trainer) {
		t.now = now
	}
}

func NewTrainer(cfg *config.Config, source DataSource, artifacts ArtifactRepository, recorder Recorder, log *logger.Logger, opts ...Option) *Trainer {
	t := &Trainer{
		cfg:       cfg.Training,
		source:    source,
		artifacts: artifacts,
		recorder:  recorder,
		log:       log.Named("trainer"),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Train runs one training pass. The evaluation is recorded before the artifact is saved, so a
// failed run never leaves a grown artifact behind.
func (t *Trainer) Train(ctx context.Context) (Result, error) {
	runID := uuid.New().String()
	log := t.log.With(zap.String("run_id", runID), zap.String("horizon", string(t.cfg.Horizon)))

	rows, err := t.loadRows(ctx)
	if err != nil {
		return Result{}, err
	}

	rows = ApplyWindow(rows, t.cfg.TrainingWindow)
	if len(rows) == 0 {
		return Result{}, errors.New(errors.ErrCodeNoTrainingData, "no rows left after merging features and targets")
	}

	artifact, cold, err := t.loadArtifact(log)
	if err != nil {
		return Result{}, err
	}

	ds, rec, err := Encode(rows, artifact.Schema, artifact.Labels)
	if err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeTrainingFailed, "failed to encode training rows", err)
	}

	if !rec.Clean() {
		log.Warn("Feature set differs from artifact schema",
			zap.Strings("missing", rec.Missing),
			zap.Strings("unexpected", rec.Unexpected),
		)
	}

	train, test := Split(ds, t.cfg.TestSize)
	if train.Len() == 0 {
		return Result{}, errors.Newf(errors.ErrCodeNoTrainingData, "training split is empty for %d rows", ds.Len())
	}

	artifact.Forest.Grow(t.cfg.EstimatorIncrement)

	start := t.now()

	fitted, err := artifact.Forest.Fit(ctx, train.X, train.Y)
	if err != nil {
		return Result{}, err
	}

	elapsed := t.now().Sub(start).Seconds()

	log.Info("Fitted trees",
		zap.Bool("cold", cold),
		zap.Int("new_trees", fitted),
		zap.Int("estimators", artifact.Forest.Fitted()),
		zap.Int("train_rows", train.Len()),
		zap.Int("test_rows", test.Len()),
	)

	report, err := t.evaluate(artifact, test)
	if err != nil {
		return Result{}, err
	}

	report.RunID = runID
	report.Timestamp = t.now()
	report.TrainingTimeSec = elapsed
	report.TrainRows = train.Len()

	artifact.RunID = runID
	artifact.Runs++
	artifact.TrainedAt = report.Timestamp
	artifact.TrainingDate = types.NewDate(report.Timestamp)
	artifact.Metrics = report.Metrics

	if err := t.recorder.Record(report); err != nil {
		return Result{}, err
	}

	if err := t.artifacts.Save(artifact); err != nil {
		log.Error("Evaluation recorded but artifact not saved", zap.Error(err))

		return Result{}, err
	}

	_, trainEnd := train.DateRange()
	testStart, _ := test.DateRange()

	return Result{
		RunID:     runID,
		Cold:      cold,
		Artifact:  artifact,
		Report:    report,
		Schema:    rec,
		TrainEnd:  trainEnd,
		TestStart: testStart,
	}, nil
}

func (t *Trainer) loadRows(ctx context.Context) ([]types.LabeledRow, error) {
	technical, err := t.source.ReadTechnical(ctx, store.Query{})
	if err != nil {
		return nil, noTrainingData("technical features", err)
	}

	broker, err := t.source.ReadBrokerConcentration(ctx, t.cfg.BrokerMode, store.Query{})
	if err != nil {
		return nil, noTrainingData("broker features", err)
	}

	targets, err := t.source.ReadTargets(ctx, t.cfg.Horizon, store.Query{})
	if err != nil {
		return nil, noTrainingData("targets", err)
	}

	rows := Merge(technical, broker, targets)

	t.log.Debug("Merged training rows",
		zap.Int("technical", len(technical)),
		zap.Int("broker", len(broker)),
		zap.Int("targets", len(targets)),
		zap.Int("merged", len(rows)),
	)

	return rows, nil
}

func noTrainingData(what string, err error) error {
	if errors.HasCode(err, errors.ErrCodeDataNotFound) {
		return errors.Wrapf(errors.ErrCodeNoTrainingData, err, "no %s to train on", what)
	}

	return err
}

// loadArtifact returns the stored artifact, or a cold one when none can be used.
func (t *Trainer) loadArtifact(log *logger.Logger) (*model.Artifact, bool, error) {
	artifact, err := t.artifacts.Load()

	switch {
	case err == nil:
		if artifact.BrokerMode != t.cfg.BrokerMode {
			return nil, false, errors.Newf(errors.ErrCodeArtifactIncompatible,
				"artifact was trained with broker mode %q, configuration uses %q", artifact.BrokerMode, t.cfg.BrokerMode)
		}

		if artifact.Horizon != t.cfg.Horizon {
			return nil, false, errors.Newf(errors.ErrCodeArtifactIncompatible,
				"artifact was trained for horizon %q, configuration uses %q", artifact.Horizon, t.cfg.Horizon)
		}

		log.Info("Warm start", zap.Int("estimators", artifact.Forest.Fitted()), zap.Int("runs", artifact.Runs))

		return artifact, false, nil
	case errors.HasCode(err, errors.ErrCodeArtifactNotFound):
		log.Info("Cold start", zap.Int("base_estimators", t.cfg.BaseEstimators))
	case errors.HasCode(err, errors.ErrCodeArtifactCorrupt), errors.HasCode(err, errors.ErrCodeArtifactIncompatible):
		log.Error("Stored artifact is unusable, starting cold", zap.Error(err))
	default:
		return nil, false, err
	}

	return model.NewArtifact(t.cfg.Horizon, t.cfg.BrokerMode, types.FeatureColumns, t.cfg.BaseEstimators, model.Params{
		MaxDepth:       t.cfg.MaxDepth,
		MinSamplesLeaf: t.cfg.MinSamplesLeaf,
		RandomState:    t.cfg.RandomState,
	}), true, nil
}

func (t *Trainer) evaluate(artifact *model.Artifact, test Dataset) (types.EvaluationReport, error) {
	predicted := artifact.Forest.PredictAll(test.X)

	score, err := evaluator.Compute(artifact.Labels.Classes, test.Y, predicted)
	if err != nil {
		return types.EvaluationReport{}, err
	}

	return types.EvaluationReport{
		Horizon:         t.cfg.Horizon,
		BrokerMode:      t.cfg.BrokerMode,
		Estimators:      artifact.Forest.Fitted(),
		TestRows:        test.Len(),
		Metrics:         score.Metrics,
		ClassReport:     score.ClassReport,
		ConfusionMatrix: score.ConfusionMatrix,
	}, nil
}
