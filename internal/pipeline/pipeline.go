// Package pipeline wires the daily batch: ingestion, feature engineering, target labeling, training
// and evaluation for one configured horizon, serialized by a per-horizon run lock. Stages that
// write shared data also take a data lock common to all horizons.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rxtech-lab/floorsheet-signals/internal/config"
	"github.com/rxtech-lab/floorsheet-signals/internal/evaluator"
	"github.com/rxtech-lab/floorsheet-signals/internal/features"
	"github.com/rxtech-lab/floorsheet-signals/internal/ingestion"
	"github.com/rxtech-lab/floorsheet-signals/internal/lock"
	"github.com/rxtech-lab/floorsheet-signals/internal/logger"
	"github.com/rxtech-lab/floorsheet-signals/internal/metrics"
	"github.com/rxtech-lab/floorsheet-signals/internal/model"
	"github.com/rxtech-lab/floorsheet-signals/internal/predictor"
	"github.com/rxtech-lab/floorsheet-signals/internal/store"
	"github.com/rxtech-lab/floorsheet-signals/internal/target"
	"github.com/rxtech-lab/floorsheet-signals/internal/trainer"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"go.uber.org/zap"
)

const (
	StageIngest   = "ingest"
	StageFeatures = "features"
	StageTargets  = "targets"
	StageTrain    = "train"
)

type Pipeline struct {
	cfg       *config.Config
	log       *logger.Logger
	ingestor  *ingestion.Ingestor
	store     *store.Store
	technical *features.TechnicalEngine
	broker    *features.BrokerEngine
	labeler   *target.Labeler
	artifacts *model.ArtifactStore
	evaluator *evaluator.Evaluator
	trainer   *trainer.Trainer
	metrics   *metrics.Recorder
}

type options struct {
	progress io.Writer
	metrics  *metrics.Recorder
}

type Option func(*options)

// WithProgress renders the ingestion progress bar on w.
func WithProgress(w io.Writer) Option {
	return func(o *options) {
		o.progress = w
	}
}

// WithMetrics records into an existing recorder instead of a fresh one.
func WithMetrics(m *metrics.Recorder) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New validates cfg and builds every stage. Close releases the table store.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.metrics == nil {
		o.metrics = metrics.New()
	}

	var ingestOpts []ingestion.Option
	if o.progress != nil && cfg.Ingestion.ShowProgress {
		ingestOpts = append(ingestOpts, ingestion.WithProgress(o.progress))
	}

	technical, err := features.NewTechnicalEngine(cfg, log)
	if err != nil {
		return nil, err
	}

	broker, err := features.NewBrokerEngine(cfg, log)
	if err != nil {
		return nil, err
	}

	labeler, err := target.NewLabeler(cfg, log)
	if err != nil {
		return nil, err
	}

	st, err := store.NewStore(cfg, log)
	if err != nil {
		return nil, err
	}

	artifacts := model.NewArtifactStore(cfg.ModelDir(cfg.Training.Horizon), cfg.Models.KeepSnapshots, log)
	eval := evaluator.NewEvaluator(cfg, log)

	return &Pipeline{
		cfg:       cfg,
		log:       log.Named("pipeline"),
		ingestor:  ingestion.NewIngestor(cfg, log, ingestOpts...),
		store:     st,
		technical: technical,
		broker:    broker,
		labeler:   labeler,
		artifacts: artifacts,
		evaluator: eval,
		trainer:   trainer.NewTrainer(cfg, st, artifacts, eval, log),
		metrics:   o.metrics,
	}, nil
}

func (p *Pipeline) Close() error {
	return p.store.Close()
}

func (p *Pipeline) Horizon() types.Horizon {
	return p.cfg.Training.Horizon
}

func (p *Pipeline) Store() *store.Store {
	return p.store
}

func (p *Pipeline) Evaluator() *evaluator.Evaluator {
	return p.evaluator
}

func (p *Pipeline) Metrics() *metrics.Recorder {
	return p.metrics
}

// Predictor returns a predictor reading this pipeline's tables and artifacts.
func (p *Pipeline) Predictor() *predictor.Predictor {
	return predictor.NewPredictor(p.cfg, p.store, p.artifacts, p.log)
}

// Locked runs fn while holding the horizon's run lock.
func (p *Pipeline) Locked(fn func() error) error {
	l, err := lock.Acquire(p.cfg.LockPath(p.Horizon()))
	if err != nil {
		return err
	}

	defer func() {
		if err := l.Release(); err != nil {
			p.log.Warn("Failed to release run lock", zap.String("path", l.Path()), zap.Error(err))
		}
	}()

	return fn()
}

// Summary describes one full run.
type Summary struct {
	Horizon   types.Horizon
	Ingestion ingestion.Summary
	Features  FeatureSummary
	Targets   TargetSummary
	Training  trainer.Result
	Duration  time.Duration
}

// Run executes every stage under the run lock and writes the metrics textfile when configured.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	start := time.Now()
	summary.Horizon = p.Horizon()

	p.log.Info("Starting pipeline", zap.String("horizon", string(summary.Horizon)), zap.String("broker_mode", string(p.cfg.Training.BrokerMode)))

	err := p.Locked(func() error {
		var err error

		if summary.Ingestion, err = p.Ingest(ctx); err != nil {
			return err
		}

		if summary.Features, err = p.BuildFeatures(ctx); err != nil {
			return err
		}

		if summary.Targets, err = p.BuildTargets(ctx); err != nil {
			return err
		}

		summary.Training, err = p.Train(ctx)

		return err
	})

	summary.Duration = time.Since(start)

	if werr := p.writeTextfile(); werr != nil {
		p.log.Warn("Failed to write metrics textfile", zap.Error(werr))
	}

	if err != nil {
		return summary, err
	}

	p.log.Info("Pipeline completed",
		zap.Duration("duration", summary.Duration),
		zap.String("run_id", summary.Training.RunID),
		zap.Float64("accuracy", summary.Training.Report.Metrics.Accuracy),
	)

	return summary, nil
}

func (p *Pipeline) writeTextfile() error {
	if p.cfg.Metrics.Textfile == "" {
		return nil
	}

	return p.metrics.WriteTextfile(p.cfg.Metrics.Textfile)
}

// stage times fn and counts its failure.
func (p *Pipeline) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()

	p.metrics.RecordStage(name, time.Since(start).Seconds())

	if err != nil {
		p.metrics.RecordFailure(p.Horizon(), name)
		p.log.Error("Stage failed",
			zap.String("stage", name),
			zap.String("category", errors.GetCode(err).Category()),
			zap.Error(err),
		)

		return fmt.Errorf("%s: %w", name, err)
	}

	return nil
}

// dataLockRetry is how often a run waiting on the shared data lock retries.
const dataLockRetry = 200 * time.Millisecond

// sharedStage runs a stage that writes files every horizon reads while holding the data lock.
// Runs of other horizons wait for it instead of failing.
func (p *Pipeline) sharedStage(ctx context.Context, name string, fn func() error) error {
	l, err := lock.AcquireContext(ctx, p.cfg.DataLockPath(), dataLockRetry)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	defer func() {
		if err := l.Release(); err != nil {
			p.log.Warn("Failed to release data lock", zap.String("path", l.Path()), zap.Error(err))
		}
	}()

	return p.stage(name, fn)
}

// Ingest normalizes new raw floor sheets.
func (p *Pipeline) Ingest(ctx context.Context) (ingestion.Summary, error) {
	var summary ingestion.Summary

	err := p.sharedStage(ctx, StageIngest, func() error {
		var err error

		summary, err = p.ingestor.Run(ctx)
		if err != nil {
			return err
		}

		for _, f := range summary.Files {
			p.metrics.RecordIngestedFile(string(f.Status))
			p.metrics.RecordDroppedRows("malformed", f.Rows.Malformed)
			p.metrics.RecordDroppedRows("duplicate", f.Rows.Duplicates)
		}

		return nil
	})

	return summary, err
}

// FeatureSummary describes the feature stage.
type FeatureSummary struct {
	Skipped       bool
	TechnicalRows int
	BrokerRows    int
	Fingerprint   string
}

// inputFingerprint identifies the normalized inputs and every setting that changes features.
func (p *Pipeline) inputFingerprint(files []ingestion.SheetFile, extra ...string) (string, error) {
	parts := make([]string, 0, len(files)+len(extra))

	for _, f := range files {
		size, err := fileSize(f.Path)
		if err != nil {
			return "", err
		}

		parts = append(parts, f.Date.String()+":"+strconv.FormatInt(size, 10))
	}

	return store.Fingerprint(append(parts, extra...)...), nil
}

func (p *Pipeline) technicalFingerprint(files []ingestion.SheetFile) (string, error) {
	f := p.cfg.Features

	return p.inputFingerprint(files,
		fmt.Sprintf("ma=%d", f.MAPeriod),
		fmt.Sprintf("std=%d", f.STDPeriod),
		fmt.Sprintf("rsi=%d", f.RSIPeriod),
	)
}

func (p *Pipeline) brokerFingerprint(files []ingestion.SheetFile) (string, error) {
	return p.inputFingerprint(files,
		"mode="+string(p.broker.Mode()),
		fmt.Sprintf("large=%v", p.cfg.Ingestion.LargeTradeThreshold),
	)
}

// BuildFeatures recomputes the technical and broker tables unless their manifests show they were
// built from the same normalized inputs and settings.
func (p *Pipeline) BuildFeatures(ctx context.Context) (FeatureSummary, error) {
	var summary FeatureSummary

	err := p.sharedStage(ctx, StageFeatures, func() error {
		files, err := p.ingestor.CleanFiles()
		if err != nil {
			return err
		}

		if len(files) == 0 {
			return errors.New(errors.ErrCodeNoRawData, "no normalized floor sheets to build features from")
		}

		techFP, err := p.technicalFingerprint(files)
		if err != nil {
			return err
		}

		brokerFP, err := p.brokerFingerprint(files)
		if err != nil {
			return err
		}

		summary.Fingerprint = techFP

		techFresh := p.store.UpToDate(store.TechnicalTable, techFP)
		brokerFresh := p.store.UpToDate(store.BrokerTable(p.broker.Mode()), brokerFP) &&
			p.store.Exists(store.BrokerActivityTable(p.broker.Mode()))

		if techFresh && brokerFresh {
			p.log.Info("Features are up to date, skipping")
			summary.Skipped = true

			return nil
		}

		trades, err := p.ingestor.LoadCanonical(ctx)
		if err != nil {
			return err
		}

		if !techFresh {
			rows, err := p.technical.Compute(trades)
			if err != nil {
				return err
			}

			if err := p.store.WriteTechnical(ctx, rows); err != nil {
				return err
			}

			if err := p.store.WriteManifest(technicalManifest(rows, techFP)); err != nil {
				return err
			}

			summary.TechnicalRows = len(rows)
		}

		if !brokerFresh {
			bf, err := p.broker.Compute(trades)
			if err != nil {
				return err
			}

			if err := p.store.WriteBrokerFeatures(ctx, bf); err != nil {
				return err
			}

			if err := p.store.WriteManifest(brokerManifest(bf, brokerFP)); err != nil {
				return err
			}

			summary.BrokerRows = len(bf.Concentration)
		}

		return nil
	})

	return summary, err
}

// TargetSummary describes the target stage.
type TargetSummary struct {
	Skipped      bool
	Rows         int
	Distribution map[types.Signal]int
	// ShortSymbols have too few closes for the horizon and carry no labels.
	ShortSymbols []string
}

// BuildTargets labels the persisted technical table for the configured horizon.
func (p *Pipeline) BuildTargets(ctx context.Context) (TargetSummary, error) {
	var summary TargetSummary

	err := p.stage(StageTargets, func() error {
		tech, ok, err := p.store.ReadManifest(store.TechnicalTable)
		if err != nil {
			return err
		}

		if !ok {
			return errors.New(errors.ErrCodeDataNotFound, "technical features have not been built")
		}

		threshold, err := p.cfg.Training.Thresholds.For(p.Horizon())
		if err != nil {
			return err
		}

		table := store.TargetsTable(p.Horizon())
		fp := store.Fingerprint(tech.Fingerprint, "horizon="+string(p.Horizon()),
			fmt.Sprintf("buy=%v", threshold.Buy), fmt.Sprintf("sell=%v", threshold.Sell))

		if p.store.UpToDate(table, fp) {
			p.log.Info("Targets are up to date, skipping", zap.String("table", table))
			summary.Skipped = true

			return nil
		}

		rows, err := p.store.ReadTechnical(ctx, store.Query{})
		if err != nil {
			return err
		}

		labels := p.labeler.Label(rows)

		for _, short := range p.labeler.Shortfalls(rows) {
			p.log.Warn("Symbol has too few closes to label",
				zap.String("symbol", short.Symbol),
				zap.Int("required", short.Required),
				zap.Int("actual", short.Actual),
			)
			summary.ShortSymbols = append(summary.ShortSymbols, short.Symbol)
		}

		if err := p.store.WriteTargets(ctx, p.Horizon(), labels); err != nil {
			return err
		}

		if err := p.store.WriteManifest(targetManifest(table, p.Horizon(), labels, fp)); err != nil {
			return err
		}

		summary.Rows = len(labels)
		summary.Distribution = target.Distribution(labels)

		return nil
	})

	return summary, err
}

// Train runs the incremental trainer and publishes its evaluation.
func (p *Pipeline) Train(ctx context.Context) (trainer.Result, error) {
	var result trainer.Result

	err := p.stage(StageTrain, func() error {
		var err error

		result, err = p.trainer.Train(ctx)
		if err != nil {
			return err
		}

		p.metrics.RecordEvaluation(result.Report)

		return nil
	})

	return result, err
}
