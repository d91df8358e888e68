package main

import "github.com/rxtech-lab/floorsheet-signals/internal/types"

// PredictionsMsg carries the predictions for the watched symbols.
type PredictionsMsg struct {
	Predictions []types.Prediction
}

// HistoryMsg carries the evaluation history of the selected horizon.
type HistoryMsg struct {
	Rows []types.EvaluationHistoryRow
}

// FetchErrorMsg indicates that loading predictions or history failed.
type FetchErrorMsg struct {
	Err error
}
