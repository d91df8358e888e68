package evaluator

import (
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
)

const (
	MacroAverage    = "macro avg"
	WeightedAverage = "weighted avg"
)

// Score holds everything computed from one pair of actual and predicted label vectors.
type Score struct {
	Metrics         types.EvaluationMetrics
	ClassReport     map[string]types.ClassMetrics
	ConfusionMatrix types.ConfusionMatrix
}

// Compute scores predicted against actual. Both hold class indexes into classes. Every ratio with
// a zero denominator is 0.
func Compute(classes []types.Signal, actual, predicted []int) (Score, error) {
	if len(actual) == 0 {
		return Score{}, errors.New(errors.ErrCodeEvaluationFailed, "no samples to evaluate")
	}

	if len(actual) != len(predicted) {
		return Score{}, errors.Newf(errors.ErrCodeEvaluationFailed, "%d actual labels but %d predictions", len(actual), len(predicted))
	}

	k := len(classes)
	matrix := make([][]int, k)

	for i := range matrix {
		matrix[i] = make([]int, k)
	}

	correct := 0

	for i := range actual {
		a, p := actual[i], predicted[i]
		if a < 0 || a >= k || p < 0 || p >= k {
			return Score{}, errors.Newf(errors.ErrCodeEvaluationFailed, "label code out of range at sample %d", i)
		}

		matrix[a][p]++

		if a == p {
			correct++
		}
	}

	report := make(map[string]types.ClassMetrics, k+2)

	var macro, weighted types.ClassMetrics

	for c, label := range classes {
		tp := matrix[c][c]
		support, predictedCount := 0, 0

		for j := 0; j < k; j++ {
			support += matrix[c][j]
			predictedCount += matrix[j][c]
		}

		m := types.ClassMetrics{
			Precision: ratio(tp, predictedCount),
			Recall:    ratio(tp, support),
			Support:   support,
		}
		m.F1 = f1(m.Precision, m.Recall)
		report[string(label)] = m

		macro.Precision += m.Precision / float64(k)
		macro.Recall += m.Recall / float64(k)
		macro.F1 += m.F1 / float64(k)

		w := float64(support) / float64(len(actual))
		weighted.Precision += m.Precision * w
		weighted.Recall += m.Recall * w
		weighted.F1 += m.F1 * w
	}

	macro.Support = len(actual)
	weighted.Support = len(actual)
	report[MacroAverage] = macro
	report[WeightedAverage] = weighted

	return Score{
		Metrics: types.EvaluationMetrics{
			Accuracy:  float64(correct) / float64(len(actual)),
			Precision: weighted.Precision,
			Recall:    weighted.Recall,
			F1:        weighted.F1,
		},
		ClassReport:     report,
		ConfusionMatrix: types.ConfusionMatrix{Labels: append([]types.Signal(nil), classes...), Matrix: matrix},
	}, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}

	return float64(num) / float64(den)
}

func f1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}

	return 2 * precision * recall / (precision + recall)
}
