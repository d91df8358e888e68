// Package evaluator scores a model on its held-out split and keeps the evaluation log: an
// append-only history CSV plus a JSON detail file and a class report per run.
package evaluator

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rxtech-lab/floorsheet-signals/internal/config"
	"github.com/rxtech-lab/floorsheet-signals/internal/logger"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/internal/utils"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"go.uber.org/zap"
)

const HistoryFileName = "evaluation_history.csv"

type Evaluator struct {
	logDir string
	log    *logger.Logger
	mu     sync.Mutex
}

func NewEvaluator(cfg *config.Config, log *logger.Logger) *Evaluator {
	return New(cfg.Logs.LogDir, log)
}

// New returns an evaluator that writes its files under logDir.
func New(logDir string, log *logger.Logger) *Evaluator {
	return &Evaluator{logDir: logDir, log: log.Named("evaluator")}
}

func (e *Evaluator) HistoryPath() string {
	return filepath.Join(e.logDir, HistoryFileName)
}

func (e *Evaluator) DetailPath(report types.EvaluationReport) string {
	return filepath.Join(e.logDir, "eval_"+stamp(report)+".json")
}

func (e *Evaluator) ClassReportPath(report types.EvaluationReport) string {
	return filepath.Join(e.logDir, "class_report_"+stamp(report)+".csv")
}

func stamp(report types.EvaluationReport) string {
	return report.Timestamp.Format("20060102") + "_" + string(report.Horizon)
}

// Record persists report: one appended history row, the JSON detail and the class report CSV.
func (e *Evaluator) Record(report types.EvaluationReport) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	history, err := e.readHistory()
	if err != nil {
		return err
	}

	history = append(history, HistoryRow(report))

	if err := utils.WriteFileAtomic(e.HistoryPath(), func(w io.Writer) error {
		return gocsv.Marshal(history, w)
	}); err != nil {
		return errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to write evaluation history", err)
	}

	detail, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to encode evaluation detail", err)
	}

	if err := utils.WriteBytesAtomic(e.DetailPath(report), detail); err != nil {
		return errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to write evaluation detail", err)
	}

	rows := ClassReportRows(report)
	if err := utils.WriteFileAtomic(e.ClassReportPath(report), func(w io.Writer) error {
		return gocsv.Marshal(rows, w)
	}); err != nil {
		return errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to write class report", err)
	}

	e.log.Info("Recorded evaluation",
		zap.String("run_id", report.RunID),
		zap.String("horizon", string(report.Horizon)),
		zap.Float64("accuracy", report.Metrics.Accuracy),
		zap.Float64("f1", report.Metrics.F1),
		zap.String("history", e.HistoryPath()),
	)

	return nil
}

// ReadHistory returns every recorded run, oldest first. A missing history is empty.
func (e *Evaluator) ReadHistory() ([]types.EvaluationHistoryRow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.readHistory()
}

func (e *Evaluator) readHistory() ([]types.EvaluationHistoryRow, error) {
	f, err := os.Open(e.HistoryPath())
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataNotFound, "failed to open evaluation history", err)
	}
	defer f.Close()

	var rows []types.EvaluationHistoryRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}

		return nil, errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to decode evaluation history", err)
	}

	return rows, nil
}

// HistoryRow flattens report into its history line.
func HistoryRow(report types.EvaluationReport) types.EvaluationHistoryRow {
	return types.EvaluationHistoryRow{
		Date:         report.Timestamp.Format("20060102"),
		RunID:        report.RunID,
		Horizon:      string(report.Horizon),
		BrokerMode:   string(report.BrokerMode),
		Accuracy:     report.Metrics.Accuracy,
		Precision:    report.Metrics.Precision,
		Recall:       report.Metrics.Recall,
		F1:           report.Metrics.F1,
		TrainingTime: report.TrainingTimeSec,
		Estimators:   report.Estimators,
		TrainRows:    report.TrainRows,
		TestRows:     report.TestRows,
	}
}

// ClassReportRows lists the class rows in confusion-matrix order followed by the averages.
func ClassReportRows(report types.EvaluationReport) []types.ClassReportRow {
	order := make([]string, 0, len(report.ClassReport))
	for _, label := range report.ConfusionMatrix.Labels {
		order = append(order, string(label))
	}

	var rest []string

	for label := range report.ClassReport {
		if !slices.Contains(order, label) {
			rest = append(rest, label)
		}
	}

	sort.Strings(rest)
	order = append(order, rest...)

	ts := report.Timestamp.Format(time.RFC3339)
	rows := make([]types.ClassReportRow, 0, len(order))

	for _, label := range order {
		m, ok := report.ClassReport[label]
		if !ok {
			continue
		}

		rows = append(rows, types.ClassReportRow{
			Label:     label,
			Precision: m.Precision,
			Recall:    m.Recall,
			F1:        m.F1,
			Support:   m.Support,
			Timestamp: ts,
		})
	}

	return rows
}
