package types

import "time"

// ClassMetrics is one row of a classification report.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1-score"`
	Support   int     `json:"support"`
}

// ConfusionMatrix is ordered by Labels on both axes: Matrix[actual][predicted].
type ConfusionMatrix struct {
	Labels []Signal `json:"labels"`
	Matrix [][]int  `json:"matrix"`
}

// EvaluationMetrics are the headline scores stored in the model artifact.
type EvaluationMetrics struct {
	Accuracy  float64 `json:"accuracy" yaml:"accuracy"`
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1" yaml:"f1"`
}

// EvaluationReport is the full result of evaluating a model on its held-out split.
type EvaluationReport struct {
	RunID           string                  `json:"run_id"`
	Timestamp       time.Time               `json:"timestamp"`
	Horizon         Horizon                 `json:"horizon"`
	BrokerMode      BrokerMode              `json:"broker_mode"`
	TrainingTimeSec float64                 `json:"training_time_sec"`
	Estimators      int                     `json:"estimators"`
	TrainRows       int                     `json:"train_rows"`
	TestRows        int                     `json:"test_rows"`
	Metrics         EvaluationMetrics       `json:"metrics"`
	ClassReport     map[string]ClassMetrics `json:"class_report"`
	ConfusionMatrix ConfusionMatrix         `json:"confusion_matrix"`
}

// EvaluationHistoryRow is the flattened, append-only audit row written once per run.
type EvaluationHistoryRow struct {
	Date         string  `csv:"date" json:"date"`
	RunID        string  `csv:"run_id" json:"run_id"`
	Horizon      string  `csv:"horizon" json:"horizon"`
	BrokerMode   string  `csv:"broker_mode" json:"broker_mode"`
	Accuracy     float64 `csv:"accuracy" json:"accuracy"`
	Precision    float64 `csv:"precision" json:"precision"`
	Recall       float64 `csv:"recall" json:"recall"`
	F1           float64 `csv:"f1" json:"f1"`
	TrainingTime float64 `csv:"training_time" json:"training_time"`
	Estimators   int     `csv:"estimators" json:"estimators"`
	TrainRows    int     `csv:"train_rows" json:"train_rows"`
	TestRows     int     `csv:"test_rows" json:"test_rows"`
}

// ClassReportRow is one line of the per-run class report CSV.
type ClassReportRow struct {
	Label     string  `csv:"label"`
	Precision float64 `csv:"precision"`
	Recall    float64 `csv:"recall"`
	F1        float64 `csv:"f1-score"`
	Support   int     `csv:"support"`
	Timestamp string  `csv:"timestamp"`
}

// Prediction is what the predictor returns for one symbol.
type Prediction struct {
	Symbol        string             `json:"symbol"`
	Signal        Signal             `json:"signal"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[Signal]float64 `json:"probabilities,omitempty"`
	Features      map[string]float64 `json:"features,omitempty"`
	FeatureDate   string             `json:"feature_date,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`
	ModelVersion  string             `json:"model_version,omitempty"`
}
