// Package features derives the per-(date, symbol) feature tables from canonical trades: technical
// indicators from daily OHLCV bars and broker activity with concentration metrics.
package features

import (
	"math"
	"sort"

	"github.com/rxtech-lab/floorsheet-signals/internal/config"
	"github.com/rxtech-lab/floorsheet-signals/internal/indicator"
	"github.com/rxtech-lab/floorsheet-signals/internal/logger"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"go.uber.org/zap"
)

// AggregateDailyBars groups trades into one OHLCV bar per (symbol, date). Open and Close follow
// the order trades appear in within a date. Bars are ordered by symbol, then date.
func AggregateDailyBars(trades []types.Trade) []types.DailyBar {
	index := make(map[types.Key]int)
	bars := make([]types.DailyBar, 0)

	for _, t := range trades {
		key := types.Key{Date: t.Date, Symbol: t.Symbol}

		i, ok := index[key]
		if !ok {
			index[key] = len(bars)
			bars = append(bars, types.DailyBar{
				Date:   t.Date,
				Symbol: t.Symbol,
				Open:   t.Rate,
				High:   t.Rate,
				Low:    t.Rate,
				Close:  t.Rate,
				Volume: t.Quantity,
			})

			continue
		}

		bar := &bars[i]
		bar.High = math.Max(bar.High, t.Rate)
		bar.Low = math.Min(bar.Low, t.Rate)
		bar.Close = t.Rate
		bar.Volume += t.Quantity
	}

	sort.SliceStable(bars, func(i, j int) bool {
		if bars[i].Symbol != bars[j].Symbol {
			return bars[i].Symbol < bars[j].Symbol
		}

		return bars[i].Date.Before(bars[j].Date)
	})

	return bars
}

// GroupBySymbol splits symbol-then-date ordered bars into per-symbol series.
func GroupBySymbol(bars []types.DailyBar) map[string][]types.DailyBar {
	groups := make(map[string][]types.DailyBar)
	for _, bar := range bars {
		groups[bar.Symbol] = append(groups[bar.Symbol], bar)
	}

	return groups
}

type TechnicalEngine struct {
	registry indicator.IndicatorRegistry
	log      *logger.Logger
}

func NewTechnicalEngine(cfg *config.Config, log *logger.Logger) (*TechnicalEngine, error) {
	registry, err := indicator.NewTechnicalRegistry(cfg.Features.MAPeriod, cfg.Features.STDPeriod, cfg.Features.RSIPeriod)
	if err != nil {
		return nil, err
	}

	return &TechnicalEngine{
		registry: registry,
		log:      log.Named("technical"),
	}, nil
}

// Compute returns one technical feature row per (date, symbol), ordered by date then symbol.
func (e *TechnicalEngine) Compute(trades []types.Trade) ([]types.TechnicalFeature, error) {
	bars := AggregateDailyBars(trades)
	groups := GroupBySymbol(bars)

	symbols := make([]string, 0, len(groups))
	for symbol := range groups {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	out := make([]types.TechnicalFeature, 0, len(bars))

	for _, symbol := range symbols {
		rows, err := e.computeSymbol(groups[symbol])
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeIndicatorCalculation, err, "failed to compute technical features for %s", symbol)
		}

		out = append(out, rows...)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Key().Less(out[j].Key()) })

	e.log.Info("Calculated technical features",
		zap.Int("symbols", len(symbols)),
		zap.Int("rows", len(out)),
	)

	return out, nil
}

func (e *TechnicalEngine) computeSymbol(series []types.DailyBar) ([]types.TechnicalFeature, error) {
	closes := make([]float64, len(series))
	for i, bar := range series {
		closes[i] = bar.Close
	}

	values := make(map[types.IndicatorType][]float64, 4)

	for _, name := range []types.IndicatorType{types.IndicatorTypeMA, types.IndicatorTypeSTD, types.IndicatorTypeRSI, types.IndicatorTypeReturn} {
		ind, err := e.registry.GetIndicator(name)
		if err != nil {
			return nil, err
		}

		computed, err := ind.Compute(closes)
		if err != nil {
			return nil, err
		}

		values[name] = computed
	}

	rows := make([]types.TechnicalFeature, len(series))

	for i, bar := range series {
		ma := values[types.IndicatorTypeMA][i]
		std := values[types.IndicatorTypeSTD][i]

		volatility := 0.0
		if ma != 0 {
			volatility = std / ma
		}

		rows[i] = types.TechnicalFeature{
			Date:        bar.Date,
			Symbol:      bar.Symbol,
			Close:       bar.Close,
			MA5:         finite(ma),
			STD14:       finite(std),
			RSI14:       finite(values[types.IndicatorTypeRSI][i]),
			Volatility:  finite(volatility),
			DailyReturn: finite(values[types.IndicatorTypeReturn][i]),
			Volume:      bar.Volume,
		}
	}

	return rows, nil
}

// finite maps NaN and infinities to 0 so no non-finite value reaches a persisted table.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	return v
}
