// Package target labels each (date, symbol) with the signal its forward return implies for one horizon.
package target

import (
	"sort"

	"github.com/rxtech-lab/floorsheet-signals/internal/config"
	"github.com/rxtech-lab/floorsheet-signals/internal/logger"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"go.uber.org/zap"
)

// Labeler turns close prices into Buy/Sell/Hold labels k rows ahead.
type Labeler struct {
	horizon   types.Horizon
	periods   int
	threshold config.Threshold
	log       *logger.Logger
}

func NewLabeler(cfg *config.Config, log *logger.Logger) (*Labeler, error) {
	threshold, err := cfg.Training.Thresholds.For(cfg.Training.Horizon)
	if err != nil {
		return nil, err
	}

	return NewLabelerFor(cfg.Training.Horizon, threshold, log)
}

func NewLabelerFor(horizon types.Horizon, threshold config.Threshold, log *logger.Logger) (*Labeler, error) {
	periods, err := horizon.Periods()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidHorizon, "invalid horizon", err)
	}

	if threshold.Buy <= threshold.Sell {
		return nil, errors.Newf(errors.ErrCodeInvalidThreshold, "buy threshold %v must be greater than sell threshold %v", threshold.Buy, threshold.Sell)
	}

	return &Labeler{
		horizon:   horizon,
		periods:   periods,
		threshold: threshold,
		log:       log.Named("target"),
	}, nil
}

func (l *Labeler) Horizon() types.Horizon {
	return l.horizon
}

// Classify maps a forward return to a signal.
func (l *Labeler) Classify(forwardReturn float64) types.Signal {
	switch {
	case forwardReturn > l.threshold.Buy:
		return types.SignalBuy
	case forwardReturn < l.threshold.Sell:
		return types.SignalSell
	default:
		return types.SignalHold
	}
}

// Label computes labels from the technical feature table. Forward prices are taken k rows ahead
// in each symbol's own series; rows without a forward price, or with a zero close, get no label.
// Labels are ordered by date then symbol.
func (l *Labeler) Label(rows []types.TechnicalFeature) []types.TargetLabel {
	bySymbol := seriesBySymbol(rows)
	labels := make([]types.TargetLabel, 0, len(rows))

	for _, series := range bySymbol {
		for i := 0; i+l.periods < len(series); i++ {
			current := series[i].Close
			if current == 0 {
				continue
			}

			forward := series[i+l.periods].Close/current - 1

			labels = append(labels, types.TargetLabel{
				Date:          series[i].Date,
				Symbol:        series[i].Symbol,
				Target:        l.Classify(forward),
				ForwardReturn: forward,
			})
		}
	}

	sort.Slice(labels, func(i, j int) bool { return labels[i].Key().Less(labels[j].Key()) })

	l.log.Info("Generated targets",
		zap.String("horizon", string(l.horizon)),
		zap.Int("labels", len(labels)),
		zap.Int("symbols", len(bySymbol)),
	)

	return labels
}

// Shortfalls returns one InsufficientDataError per symbol whose series has no row with a forward
// price, ordered by symbol. Such symbols get no labels at all.
func (l *Labeler) Shortfalls(rows []types.TechnicalFeature) []*errors.InsufficientDataError {
	var short []*errors.InsufficientDataError

	for symbol, series := range seriesBySymbol(rows) {
		if len(series) > l.periods {
			continue
		}

		short = append(short, errors.NewInsufficientDataErrorf(l.periods+1, len(series), symbol,
			"%s has %d closes, %s labels need at least %d", symbol, len(series), l.horizon, l.periods+1))
	}

	sort.Slice(short, func(i, j int) bool { return short[i].Symbol < short[j].Symbol })

	return short
}

// seriesBySymbol groups rows per symbol, each series ordered by date.
func seriesBySymbol(rows []types.TechnicalFeature) map[string][]types.TechnicalFeature {
	bySymbol := make(map[string][]types.TechnicalFeature)
	for _, row := range rows {
		bySymbol[row.Symbol] = append(bySymbol[row.Symbol], row)
	}

	for _, series := range bySymbol {
		sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	}

	return bySymbol
}

// Distribution counts labels per signal.
func Distribution(labels []types.TargetLabel) map[types.Signal]int {
	counts := make(map[types.Signal]int, len(types.AllSignals))
	for _, label := range labels {
		counts[label.Target]++
	}

	return counts
}
