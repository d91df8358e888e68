package features

import (
	"math"
	"sort"

	"github.com/rxtech-lab/floorsheet-signals/internal/config"
	"github.com/rxtech-lab/floorsheet-signals/internal/logger"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"go.uber.org/zap"
)

// relativeEpsilon keeps relative net strength defined for brokers with no volume.
const relativeEpsilon = 1e-6

type BrokerEngine struct {
	mode                types.BrokerMode
	largeTradeThreshold float64
	log                 *logger.Logger
}

func NewBrokerEngine(cfg *config.Config, log *logger.Logger) (*BrokerEngine, error) {
	return NewBrokerEngineWithMode(cfg.Training.BrokerMode, cfg.Ingestion.LargeTradeThreshold, log)
}

func NewBrokerEngineWithMode(mode types.BrokerMode, largeTradeThreshold float64, log *logger.Logger) (*BrokerEngine, error) {
	if !mode.IsValid() {
		return nil, errors.Newf(errors.ErrCodeInvalidBrokerMode, "unsupported broker mode %q", string(mode))
	}

	if largeTradeThreshold <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "large trade threshold must be positive, got %v", largeTradeThreshold)
	}

	return &BrokerEngine{
		mode:                mode,
		largeTradeThreshold: largeTradeThreshold,
		log:                 log.Named("broker"),
	}, nil
}

// Mode returns the net strength mode the engine computes.
func (e *BrokerEngine) Mode() types.BrokerMode {
	return e.mode
}

type brokerKey struct {
	key    types.Key
	broker string
}

// NetStrength scales a broker's buy and sell volume according to mode.
func NetStrength(mode types.BrokerMode, buy, sell int64) float64 {
	diff := float64(buy - sell)
	if mode == types.BrokerModeAbsolute {
		return diff
	}

	return diff / (float64(buy+sell) + relativeEpsilon)
}

// HHI is the Herfindahl index of absolute net strengths. A group whose strengths are all 0 yields 0.
func HHI(strengths []float64) float64 {
	total := 0.0
	for _, s := range strengths {
		total += math.Abs(s)
	}

	if total == 0 {
		return 0
	}

	hhi := 0.0

	for _, s := range strengths {
		share := math.Abs(s) / total
		hhi += share * share
	}

	return hhi
}

// Compute aggregates broker activity per (date, symbol, broker) and concentration per (date, symbol).
// Every trade adds its quantity to the buyer's buy volume and to the seller's sell volume when the
// respective broker is known.
func (e *BrokerEngine) Compute(trades []types.Trade) (types.BrokerFeatures, error) {
	volumes := make(map[brokerKey]*types.BrokerActivity)
	large := make(map[types.Key]int64)

	activity := func(k types.Key, broker string) *types.BrokerActivity {
		bk := brokerKey{key: k, broker: broker}

		a, ok := volumes[bk]
		if !ok {
			a = &types.BrokerActivity{Date: k.Date, Symbol: k.Symbol, Broker: broker}
			volumes[bk] = a
		}

		return a
	}

	for _, t := range trades {
		k := types.Key{Date: t.Date, Symbol: t.Symbol}

		if t.HasBuyer() {
			activity(k, t.Buyer).BuyVolume += t.Quantity
		}

		if t.HasSeller() {
			activity(k, t.Seller).SellVolume += t.Quantity
		}

		if t.Notional() > e.largeTradeThreshold {
			large[k]++
		}
	}

	rows := make([]types.BrokerActivity, 0, len(volumes))
	for _, a := range volumes {
		a.NetStrength = NetStrength(e.mode, a.BuyVolume, a.SellVolume)
		rows = append(rows, *a)
	}

	sort.Slice(rows, func(i, j int) bool {
		ki := types.Key{Date: rows[i].Date, Symbol: rows[i].Symbol}
		kj := types.Key{Date: rows[j].Date, Symbol: rows[j].Symbol}

		if ki != kj {
			return ki.Less(kj)
		}

		return rows[i].Broker < rows[j].Broker
	})

	concentration := make([]types.BrokerConcentration, 0)

	for start := 0; start < len(rows); {
		k := types.Key{Date: rows[start].Date, Symbol: rows[start].Symbol}

		end := start
		strengths := make([]float64, 0)

		for end < len(rows) && rows[end].Date.Equal(k.Date) && rows[end].Symbol == k.Symbol {
			strengths = append(strengths, rows[end].NetStrength)
			end++
		}

		concentration = append(concentration, types.BrokerConcentration{
			Date:             k.Date,
			Symbol:           k.Symbol,
			BrokerHHI:        finite(HHI(strengths)),
			LargeTradesCount: large[k],
			ActiveBrokers:    end - start,
		})

		start = end
	}

	e.log.Info("Calculated broker features",
		zap.String("mode", string(e.mode)),
		zap.Int("activity_rows", len(rows)),
		zap.Int("concentration_rows", len(concentration)),
	)

	return types.BrokerFeatures{
		Mode:          e.mode,
		Activity:      rows,
		Concentration: concentration,
	}, nil
}
