package mocks

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
)

// FloorSheetGenerator produces synthetic floor sheets for tests.
type FloorSheetGenerator struct {
	rng *rand.Rand
}

// NewFloorSheetGenerator creates a generator. The same seed always yields the same sheets.
func NewFloorSheetGenerator(seed int64) *FloorSheetGenerator {
	return &FloorSheetGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures the generated market.
type GeneratorConfig struct {
	Symbols []string
	// Brokers are numbered 1..Brokers.
	Brokers   int
	StartDate types.Date
	// Days is the number of consecutive trading days.
	Days int
	// TradesPerDay is the number of trades per symbol per day.
	TradesPerDay int
	InitialPrice float64
	// Volatility is the daily standard deviation of the log return.
	Volatility float64
	// MaxQuantity bounds the share count of a single trade.
	MaxQuantity int64
}

// DefaultConfig returns a small market that still produces every label class.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbols:      []string{"NABIL", "NICA", "UPPER"},
		Brokers:      12,
		StartDate:    types.MustParseDate("2024-01-01"),
		Days:         30,
		TradesPerDay: 20,
		InitialPrice: 500,
		Volatility:   0.03,
		MaxQuantity:  500,
	}
}

// Generate returns the trades of every day, ordered by date, then symbol, then sequence number.
func (g *FloorSheetGenerator) Generate(config GeneratorConfig) map[types.Date][]types.Trade {
	out := make(map[types.Date][]types.Trade, config.Days)
	prices := make(map[string]float64, len(config.Symbols))

	for _, symbol := range config.Symbols {
		prices[symbol] = config.InitialPrice * (0.8 + g.rng.Float64()*0.4)
	}

	for day := 0; day < config.Days; day++ {
		date := config.StartDate.AddDays(day)
		sn := int64(1)

		for _, symbol := range config.Symbols {
			// Box-Muller
			u1 := 1 - g.rng.Float64()
			u2 := g.rng.Float64()
			z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
			prices[symbol] *= math.Exp(config.Volatility * z)

			for i := 0; i < config.TradesPerDay; i++ {
				rate := roundToDecimals(prices[symbol]*(1+(g.rng.Float64()*2-1)*0.005), 2)
				quantity := 1 + g.rng.Int63n(config.MaxQuantity)
				buyer := 1 + g.rng.Intn(config.Brokers)
				seller := 1 + g.rng.Intn(config.Brokers)

				out[date] = append(out[date], types.Trade{
					SN:         sn,
					ContractNo: fmt.Sprintf("%s%06d", date.Compact(), sn),
					Symbol:     symbol,
					Buyer:      strconv.Itoa(buyer),
					Seller:     strconv.Itoa(seller),
					Quantity:   quantity,
					Rate:       rate,
					Amount:     roundToDecimals(float64(quantity)*rate, 2),
					Date:       date,
				})
				sn++
			}
		}
	}

	return out
}

// WriteRawSheets writes one raw floor sheet per day into dir, using the exported column names.
func (g *FloorSheetGenerator) WriteRawSheets(dir string, config GeneratorConfig) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	sheets := g.Generate(config)
	paths := make([]string, 0, config.Days)

	for day := 0; day < config.Days; day++ {
		date := config.StartDate.AddDays(day)
		path := filepath.Join(dir, "floor_sheet_data_"+date.String()+".csv")

		if err := WriteRawSheet(path, sheets[date]); err != nil {
			return nil, err
		}

		paths = append(paths, path)
	}

	return paths, nil
}

// WriteRawSheet writes trades as a raw floor sheet.
func WriteRawSheet(path string, trades []types.Trade) error {
	rows := make([]types.RawTrade, len(trades))
	for i, t := range trades {
		rows[i] = types.RawTrade{
			SN:         strconv.FormatInt(t.SN, 10),
			ContractNo: t.ContractNo,
			Symbol:     t.Symbol,
			Buyer:      t.Buyer,
			Seller:     t.Seller,
			Quantity:   strconv.FormatInt(t.Quantity, 10),
			Rate:       strconv.FormatFloat(t.Rate, 'f', 2, 64),
			Amount:     strconv.FormatFloat(t.Amount, 'f', 2, 64),
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gocsv.MarshalFile(&rows, f)
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
