package types

// Signal is the three-class label the classifier predicts.
type Signal string

const (
	// SignalBuy means the forward return exceeded the buy threshold.
	SignalBuy Signal = "Buy"
	// SignalSell means the forward return fell below the sell threshold.
	SignalSell Signal = "Sell"
	// SignalHold means the forward return stayed between both thresholds.
	SignalHold Signal = "Hold"
	// SignalUnavailable is returned by the predictor when no features exist for a symbol.
	SignalUnavailable Signal = "Unavailable"
)

// AllSignals is the canonical, sorted class list. Label codes are indexes into it.
var AllSignals = []Signal{SignalBuy, SignalHold, SignalSell}

// IsValid reports whether s is one of the trainable classes.
func (s Signal) IsValid() bool {
	switch s {
	case SignalBuy, SignalSell, SignalHold:
		return true
	default:
		return false
	}
}

// TargetLabel is the label of one symbol on one day for a single horizon.
type TargetLabel struct {
	Date          Date    `json:"date"`
	Symbol        string  `json:"symbol"`
	Target        Signal  `json:"target"`
	ForwardReturn float64 `json:"forward_return"`
}

func (t TargetLabel) Key() Key {
	return Key{Date: t.Date, Symbol: t.Symbol}
}
