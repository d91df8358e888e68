package indicator

import (
	"fmt"
	"math"

	"github.com/rxtech-lab/floorsheet-signals/internal/types"
)

// STD is the rolling sample standard deviation (n-1 denominator).
type STD struct {
	period int
}

// NewSTD creates a new STD indicator with default configuration.
func NewSTD() Indicator {
	return &STD{
		period: 14,
	}
}

func (s *STD) Name() types.IndicatorType {
	return types.IndicatorTypeSTD
}

// Expected parameters: period (int).
func (s *STD) Config(params ...any) error {
	if len(params) != 1 {
		return fmt.Errorf("Config expects 1 parameter: period (int)")
	}

	period, err := parsePeriod(params[0])
	if err != nil {
		return err
	}

	s.period = period

	return nil
}

// Compute returns the sample deviation of each trailing window. A window holding a single
// observation yields 0.
func (s *STD) Compute(values []float64) ([]float64, error) {
	out := make([]float64, len(values))

	for i := range values {
		out[i] = sampleStdDev(values[windowStart(i, s.period) : i+1])
	}

	return out, nil
}

func sampleStdDev(window []float64) float64 {
	if len(window) < 2 {
		return 0
	}

	mean := calculateSimpleMovingAverage(window)

	sumSq := 0.0
	for _, v := range window {
		d := v - mean
		sumSq += d * d
	}

	return math.Sqrt(sumSq / float64(len(window)-1))
}
