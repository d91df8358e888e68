package types

import "fmt"

// Horizon is how far ahead a target label looks.
type Horizon string

const (
	HorizonNextDay  Horizon = "next_day"
	HorizonThreeDay Horizon = "3day"
	HorizonWeekly   Horizon = "weekly"
)

// AllHorizons lists every supported horizon.
var AllHorizons = []Horizon{HorizonNextDay, HorizonThreeDay, HorizonWeekly}

// Periods returns the number of trading rows the horizon looks ahead.
func (h Horizon) Periods() (int, error) {
	switch h {
	case HorizonNextDay:
		return 1, nil
	case HorizonThreeDay:
		return 3, nil
	case HorizonWeekly:
		return 5, nil
	default:
		return 0, fmt.Errorf("unsupported horizon %q", string(h))
	}
}

// BrokerMode selects how broker net strength is scaled.
type BrokerMode string

const (
	// BrokerModeRelative normalizes net strength to (buy-sell)/(buy+sell+eps).
	BrokerModeRelative BrokerMode = "relative"
	// BrokerModeAbsolute keeps the raw (buy-sell) share difference.
	BrokerModeAbsolute BrokerMode = "absolute"
)

// AllBrokerModes lists every supported broker mode.
var AllBrokerModes = []BrokerMode{BrokerModeRelative, BrokerModeAbsolute}

func (m BrokerMode) IsValid() bool {
	return m == BrokerModeRelative || m == BrokerModeAbsolute
}
