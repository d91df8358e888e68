package indicator

import (
	"fmt"

	"github.com/rxtech-lab/floorsheet-signals/internal/types"
)

// MA indicator implements Simple Moving Average calculation.
type MA struct {
	period int
}

// NewMA creates a new MA indicator with default configuration.
func NewMA() Indicator {
	return &MA{
		period: 5, // Default period
	}
}

// Name returns the name of the indicator.
func (m *MA) Name() types.IndicatorType {
	return types.IndicatorTypeMA
}

// Expected parameters: period (int).
func (m *MA) Config(params ...any) error {
	if len(params) != 1 {
		return fmt.Errorf("Config expects 1 parameter: period (int)")
	}

	period, err := parsePeriod(params[0])
	if err != nil {
		return err
	}

	m.period = period

	return nil
}

// Compute returns the trailing mean over at most period values at each position.
func (m *MA) Compute(values []float64) ([]float64, error) {
	out := make([]float64, len(values))

	for i := range values {
		out[i] = calculateSimpleMovingAverage(values[windowStart(i, m.period) : i+1])
	}

	return out, nil
}

func calculateSimpleMovingAverage(window []float64) float64 {
	if len(window) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range window {
		sum += v
	}

	return sum / float64(len(window))
}
