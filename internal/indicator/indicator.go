package indicator

import (
	"fmt"

	"github.com/rxtech-lab/floorsheet-signals/internal/types"
)

// Indicator interface defines methods that any rolling indicator must implement.
// Every indicator works on one symbol's date-ordered series and returns a series of the same length.
type Indicator interface {
	// Name returns the name of the indicator
	Name() types.IndicatorType
	// Compute returns the indicator value for every position of the input series
	Compute(values []float64) ([]float64, error)
	Config(params ...any) error
}

// parsePeriod accepts an int or a float64 period from Config.
func parsePeriod(param any) (int, error) {
	period, ok := param.(int)
	if !ok {
		// Try to convert to float first
		periodFloat, ok := param.(float64)
		if !ok {
			return 0, fmt.Errorf("invalid type for period parameter, expected int or float")
		}

		period = int(periodFloat)
	}

	if period <= 0 {
		return 0, fmt.Errorf("period must be a positive integer, got %d", period)
	}

	return period, nil
}

// windowStart returns the first index of the trailing window ending at i.
// Windows are min-period-1: early positions use every value seen so far.
func windowStart(i, period int) int {
	start := i - period + 1
	if start < 0 {
		return 0
	}

	return start
}
