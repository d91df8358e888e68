package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rxtech-lab/floorsheet-signals/internal/pipeline"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			return cellStyle
		}).
		Headers(headers...)
}

// filterHistory keeps runs of horizon (all when empty) and then the last limit of them.
func filterHistory(rows []types.EvaluationHistoryRow, horizon string, limit int) []types.EvaluationHistoryRow {
	var out []types.EvaluationHistoryRow

	for _, row := range rows {
		if horizon == "" || row.Horizon == horizon {
			out = append(out, row)
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}

	return out
}

func renderHistory(rows []types.EvaluationHistoryRow) string {
	t := newTable("Date", "Horizon", "Mode", "Accuracy", "Precision", "Recall", "F1", "Trees", "Train", "Test", "Time (s)")

	for _, r := range rows {
		t.Row(
			r.Date,
			r.Horizon,
			r.BrokerMode,
			fmt.Sprintf("%.3f", r.Accuracy),
			fmt.Sprintf("%.3f", r.Precision),
			fmt.Sprintf("%.3f", r.Recall),
			fmt.Sprintf("%.3f", r.F1),
			fmt.Sprintf("%d", r.Estimators),
			fmt.Sprintf("%d", r.TrainRows),
			fmt.Sprintf("%d", r.TestRows),
			fmt.Sprintf("%.2f", r.TrainingTime),
		)
	}

	return t.String()
}

func renderPredictions(predictions []types.Prediction) string {
	t := newTable("Symbol", "Signal", "Confidence", "Buy", "Hold", "Sell", "Features", "Model")

	for _, p := range predictions {
		if p.Signal == types.SignalUnavailable {
			t.Row(p.Symbol, FormatSignal(p.Signal), "-", "-", "-", "-", "-", p.ModelVersion)

			continue
		}

		t.Row(
			p.Symbol,
			FormatSignal(p.Signal),
			fmt.Sprintf("%.1f%%", p.Confidence*100),
			fmt.Sprintf("%.3f", p.Probabilities[types.SignalBuy]),
			fmt.Sprintf("%.3f", p.Probabilities[types.SignalHold]),
			fmt.Sprintf("%.3f", p.Probabilities[types.SignalSell]),
			p.FeatureDate,
			p.ModelVersion,
		)
	}

	return t.String()
}

func renderReport(report types.EvaluationReport) string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render(fmt.Sprintf("Evaluation %s (%s, %s)", report.RunID, report.Horizon, report.BrokerMode)))
	s.WriteString("\n")
	fmt.Fprintf(&s, "accuracy %.3f  precision %.3f  recall %.3f  f1 %.3f\n",
		report.Metrics.Accuracy, report.Metrics.Precision, report.Metrics.Recall, report.Metrics.F1)
	fmt.Fprintf(&s, "%d trees, %d train rows, %d test rows, %.2fs\n",
		report.Estimators, report.TrainRows, report.TestRows, report.TrainingTimeSec)

	labels := make([]string, 0, len(report.ClassReport))
	for label := range report.ClassReport {
		labels = append(labels, label)
	}

	sort.Strings(labels)

	t := newTable("Class", "Precision", "Recall", "F1", "Support")
	for _, label := range labels {
		m := report.ClassReport[label]
		t.Row(label, fmt.Sprintf("%.3f", m.Precision), fmt.Sprintf("%.3f", m.Recall), fmt.Sprintf("%.3f", m.F1), fmt.Sprintf("%d", m.Support))
	}

	s.WriteString(t.String())

	return s.String()
}

func renderSummary(summary pipeline.Summary) string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render(fmt.Sprintf("Pipeline %s finished in %s", summary.Horizon, summary.Duration.Round(1e6))))
	s.WriteString("\n")
	fmt.Fprintf(&s, "ingestion: %d processed, %d skipped, %d failed\n",
		summary.Ingestion.Processed, summary.Ingestion.Skipped, summary.Ingestion.Failed)

	if summary.Features.Skipped {
		s.WriteString("features: up to date\n")
	} else {
		fmt.Fprintf(&s, "features: %d technical rows, %d broker rows\n", summary.Features.TechnicalRows, summary.Features.BrokerRows)
	}

	if summary.Targets.Skipped {
		s.WriteString("targets: up to date\n")
	} else {
		fmt.Fprintf(&s, "targets: %d labels\n", summary.Targets.Rows)
	}

	if len(summary.Targets.ShortSymbols) > 0 {
		fmt.Fprintf(&s, "unlabeled (too few closes): %s\n", strings.Join(summary.Targets.ShortSymbols, ", "))
	}

	start := "warm"
	if summary.Training.Cold {
		start = "cold"
	}

	fmt.Fprintf(&s, "training: %s start\n", start)
	s.WriteString(renderReport(summary.Training.Report))

	return s.String()
}
