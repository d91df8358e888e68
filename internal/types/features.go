package types

// DailyBar is the OHLCV summary of one symbol on one trading day.
type DailyBar struct {
	Date   Date
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// TechnicalFeature is one row of the technical feature table, keyed by (Date, Symbol).
type TechnicalFeature struct {
	Date        Date    `json:"date"`
	Symbol      string  `json:"symbol"`
	Close       float64 `json:"close"`
	MA5         float64 `json:"ma_5"`
	STD14       float64 `json:"std_14"`
	RSI14       float64 `json:"rsi_14"`
	Volatility  float64 `json:"volatility"`
	DailyReturn float64 `json:"daily_return"`
	Volume      int64   `json:"volume"`
}

func (f TechnicalFeature) Key() Key {
	return Key{Date: f.Date, Symbol: f.Symbol}
}

// BrokerActivity is one broker's net position in one symbol on one day.
type BrokerActivity struct {
	Date        Date    `json:"date"`
	Symbol      string  `json:"symbol"`
	Broker      string  `json:"broker"`
	BuyVolume   int64   `json:"buy_volume"`
	SellVolume  int64   `json:"sell_volume"`
	NetStrength float64 `json:"net_strength"`
}

// BrokerConcentration summarizes broker behavior for one symbol on one day.
type BrokerConcentration struct {
	Date             Date    `json:"date"`
	Symbol           string  `json:"symbol"`
	BrokerHHI        float64 `json:"broker_hhi"`
	LargeTradesCount int64   `json:"large_trades_count"`
	ActiveBrokers    int     `json:"active_brokers"`
}

func (c BrokerConcentration) Key() Key {
	return Key{Date: c.Date, Symbol: c.Symbol}
}

// BrokerFeatures bundles both broker tables produced from one set of trades.
type BrokerFeatures struct {
	Mode          BrokerMode
	Activity      []BrokerActivity
	Concentration []BrokerConcentration
}

// Model input columns, in the order the first artifact freezes them.
const (
	ColumnMA5              = "ma_5"
	ColumnSTD14            = "std_14"
	ColumnRSI14            = "rsi_14"
	ColumnVolatility       = "volatility"
	ColumnDailyReturn      = "daily_return"
	ColumnVolume           = "volume"
	ColumnBrokerHHI        = "broker_hhi"
	ColumnLargeTradesCount = "large_trades_count"
)

// FeatureColumns is the model input layout produced by this build.
var FeatureColumns = []string{
	ColumnMA5,
	ColumnSTD14,
	ColumnRSI14,
	ColumnVolatility,
	ColumnDailyReturn,
	ColumnVolume,
	ColumnBrokerHHI,
	ColumnLargeTradesCount,
}

// FeatureRow is the technical and broker feature set of one (date, symbol).
type FeatureRow struct {
	Technical TechnicalFeature
	Broker    BrokerConcentration
}

func (r FeatureRow) Key() Key {
	return r.Technical.Key()
}

// Values returns the row keyed by model column name.
func (r FeatureRow) Values() map[string]float64 {
	return map[string]float64{
		ColumnMA5:              r.Technical.MA5,
		ColumnSTD14:            r.Technical.STD14,
		ColumnRSI14:            r.Technical.RSI14,
		ColumnVolatility:       r.Technical.Volatility,
		ColumnDailyReturn:      r.Technical.DailyReturn,
		ColumnVolume:           float64(r.Technical.Volume),
		ColumnBrokerHHI:        r.Broker.BrokerHHI,
		ColumnLargeTradesCount: float64(r.Broker.LargeTradesCount),
	}
}

// LabeledRow is a feature row joined with its target label.
type LabeledRow struct {
	FeatureRow
	Target Signal
}
