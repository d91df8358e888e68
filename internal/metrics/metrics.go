// Package metrics exposes pipeline run metrics through a Prometheus registry. Batch runs write the
// registry to a node-exporter textfile; the HTTP server serves it directly.
package metrics

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
)

type Recorder struct {
	registry *prometheus.Registry

	ingestedFiles   *prometheus.CounterVec
	droppedRows     *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	modelScore      *prometheus.GaugeVec
	modelEstimators *prometheus.GaugeVec
	trainingRows    *prometheus.GaugeVec
	lastRun         *prometheus.GaugeVec
	runFailures     *prometheus.CounterVec
	predictions     *prometheus.CounterVec
}

// New creates a recorder backed by its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		ingestedFiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "floorsheet_ingested_files_total",
				Help: "Raw floor sheets seen by ingestion, by outcome",
			},
			[]string{"status"},
		),
		droppedRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "floorsheet_dropped_rows_total",
				Help: "Floor-sheet rows dropped during normalization",
			},
			[]string{"reason"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "floorsheet_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"stage"},
		),
		modelScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "floorsheet_model_score",
				Help: "Held-out score of the latest model",
			},
			[]string{"horizon", "metric"},
		),
		modelEstimators: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "floorsheet_model_estimators",
				Help: "Number of trees in the latest model",
			},
			[]string{"horizon"},
		),
		trainingRows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "floorsheet_training_rows",
				Help: "Rows used by the latest training run",
			},
			[]string{"horizon", "split"},
		),
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "floorsheet_last_run_timestamp_seconds",
				Help: "Unix time of the last successful run",
			},
			[]string{"horizon"},
		),
		runFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "floorsheet_run_failures_total",
				Help: "Pipeline runs that failed, by stage",
			},
			[]string{"horizon", "stage"},
		),
		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "floorsheet_predictions_total",
				Help: "Predictions served, by signal",
			},
			[]string{"horizon", "signal"},
		),
	}

	r.registry.MustRegister(
		r.ingestedFiles,
		r.droppedRows,
		r.stageDuration,
		r.modelScore,
		r.modelEstimators,
		r.trainingRows,
		r.lastRun,
		r.runFailures,
		r.predictions,
	)

	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordIngestedFile counts one raw file by its status (processed, skipped, failed).
func (r *Recorder) RecordIngestedFile(status string) {
	r.ingestedFiles.WithLabelValues(status).Inc()
}

func (r *Recorder) RecordDroppedRows(reason string, n int) {
	if n > 0 {
		r.droppedRows.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordStage observes how long a stage took in seconds.
func (r *Recorder) RecordStage(stage string, seconds float64) {
	r.stageDuration.WithLabelValues(stage).Observe(seconds)
}

func (r *Recorder) RecordFailure(horizon types.Horizon, stage string) {
	r.runFailures.WithLabelValues(string(horizon), stage).Inc()
}

// RecordEvaluation publishes the scores of a finished training run.
func (r *Recorder) RecordEvaluation(report types.EvaluationReport) {
	h := string(report.Horizon)

	r.modelScore.WithLabelValues(h, "accuracy").Set(report.Metrics.Accuracy)
	r.modelScore.WithLabelValues(h, "precision").Set(report.Metrics.Precision)
	r.modelScore.WithLabelValues(h, "recall").Set(report.Metrics.Recall)
	r.modelScore.WithLabelValues(h, "f1").Set(report.Metrics.F1)
	r.modelEstimators.WithLabelValues(h).Set(float64(report.Estimators))
	r.trainingRows.WithLabelValues(h, "train").Set(float64(report.TrainRows))
	r.trainingRows.WithLabelValues(h, "test").Set(float64(report.TestRows))
	r.lastRun.WithLabelValues(h).Set(float64(report.Timestamp.Unix()))
}

func (r *Recorder) RecordPrediction(horizon types.Horizon, signal types.Signal) {
	r.predictions.WithLabelValues(string(horizon), string(signal)).Inc()
}

// WriteTextfile writes the registry in the text exposition format. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return prometheus.WriteToTextfile(path, r.registry)
}

// Handler serves the registry over HTTP.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
