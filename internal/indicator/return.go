package indicator

import (
	"fmt"

	"github.com/rxtech-lab/floorsheet-signals/internal/types"
)

// Return is the one-period percentage change of a series.
type Return struct{}

func NewReturn() Indicator {
	return &Return{}
}

func (r *Return) Name() types.IndicatorType {
	return types.IndicatorTypeReturn
}

// Config takes no parameters.
func (r *Return) Config(params ...any) error {
	if len(params) != 0 {
		return fmt.Errorf("Config expects no parameters")
	}

	return nil
}

// Compute returns (v[i]-v[i-1])/v[i-1]. The first position and any position whose previous
// value is 0 yield 0.
func (r *Return) Compute(values []float64) ([]float64, error) {
	out := make([]float64, len(values))

	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev == 0 {
			continue
		}

		out[i] = (values[i] - prev) / prev
	}

	return out, nil
}
