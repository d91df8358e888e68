package indicator

import (
	"fmt"

	"github.com/rxtech-lab/floorsheet-signals/internal/types"
)

// RSI represents the Relative Strength Index indicator.
// Gains and losses are averaged with a simple rolling mean over the close-to-close deltas,
// where the first delta of a series is 0.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator with default configuration.
func NewRSI() Indicator {
	return &RSI{
		period: 14, // Default period
	}
}

// Name returns the name of the indicator.
func (r *RSI) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

// Config configures the RSI indicator. Expected parameters: period (int).
func (r *RSI) Config(params ...any) error {
	if len(params) != 1 {
		return fmt.Errorf("Config expects 1 parameter: period (int)")
	}

	period, err := parsePeriod(params[0])
	if err != nil {
		return err
	}

	r.period = period

	return nil
}

// Compute returns RSI values in [0, 100] for every position.
func (r *RSI) Compute(values []float64) ([]float64, error) {
	n := len(values)
	gains := make([]float64, n)
	losses := make([]float64, n)

	for i := 1; i < n; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	out := make([]float64, n)

	for i := range values {
		start := windowStart(i, r.period)
		avgGain := calculateSimpleMovingAverage(gains[start : i+1])
		avgLoss := calculateSimpleMovingAverage(losses[start : i+1])
		out[i] = relativeStrengthIndex(avgGain, avgLoss)
	}

	return out, nil
}

func relativeStrengthIndex(avgGain, avgLoss float64) float64 {
	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50
	case avgLoss == 0:
		return 100
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs))
}
