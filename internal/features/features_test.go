package features

import (
	"testing"

	"github.com/rxtech-lab/floorsheet-signals/internal/config"
	"github.com/rxtech-lab/floorsheet-signals/internal/logger"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"github.com/stretchr/testify/suite"
)

func trade(date, symbol, buyer, seller string, qty int64, rate float64) types.Trade {
	return types.Trade{
		Date:     types.MustParseDate(date),
		Symbol:   symbol,
		Buyer:    buyer,
		Seller:   seller,
		Quantity: qty,
		Rate:     rate,
		Amount:   float64(qty) * rate,
	}
}

type FeaturesTestSuite struct {
	suite.Suite
	cfg *config.Config
	log *logger.Logger
}

func TestFeaturesSuite(t *testing.T) {
	suite.Run(t, new(FeaturesTestSuite))
}

func (suite *FeaturesTestSuite) SetupTest() {
	cfg, err := config.Default()
	suite.Require().NoError(err)

	suite.cfg = cfg
	suite.log = logger.NewNopLogger()
}

func (suite *FeaturesTestSuite) TestAggregateDailyBars() {
	trades := []types.Trade{
		trade("2024-01-02", "NABIL", "1", "2", 10, 100),
		trade("2024-01-02", "NABIL", "1", "2", 5, 110),
		trade("2024-01-02", "NABIL", "1", "2", 5, 95),
		trade("2024-01-02", "ADBL", "1", "2", 7, 300),
		trade("2024-01-03", "NABIL", "1", "2", 1, 105),
	}

	bars := AggregateDailyBars(trades)
	suite.Require().Len(bars, 3)

	suite.Equal("ADBL", bars[0].Symbol)

	nabil := bars[1]
	suite.Equal(100.0, nabil.Open)
	suite.Equal(110.0, nabil.High)
	suite.Equal(95.0, nabil.Low)
	suite.Equal(95.0, nabil.Close)
	suite.Equal(int64(20), nabil.Volume)

	suite.Equal("2024-01-03", bars[2].Date.String())
}

func (suite *FeaturesTestSuite) TestTechnicalFeatures() {
	engine, err := NewTechnicalEngine(suite.cfg, suite.log)
	suite.Require().NoError(err)

	trades := []types.Trade{
		trade("2024-01-02", "NABIL", "1", "2", 10, 100),
		trade("2024-01-03", "NABIL", "1", "2", 10, 103),
		trade("2024-01-04", "NABIL", "1", "2", 10, 99),
		trade("2024-01-03", "ADBL", "1", "2", 4, 50),
	}

	rows, err := engine.Compute(trades)
	suite.Require().NoError(err)
	suite.Require().Len(rows, 4)

	// ordered by date then symbol
	suite.Equal("NABIL", rows[0].Symbol)
	suite.Equal("ADBL", rows[1].Symbol)
	suite.Equal("NABIL", rows[2].Symbol)

	first := rows[0]
	suite.Equal(100.0, first.MA5)
	suite.Equal(0.0, first.STD14)
	suite.Equal(50.0, first.RSI14)
	suite.Equal(0.0, first.Volatility)
	suite.Equal(0.0, first.DailyReturn)
	suite.Equal(int64(10), first.Volume)

	second := rows[2]
	suite.Equal(101.5, second.MA5)
	suite.InDelta(2.12132, second.STD14, 1e-5)
	suite.Equal(100.0, second.RSI14)
	suite.InDelta(0.03, second.DailyReturn, 1e-12)
	suite.InDelta(second.STD14/second.MA5, second.Volatility, 1e-12)

	third := rows[3]
	suite.InDelta(-4.0/103.0, third.DailyReturn, 1e-12)
	suite.GreaterOrEqual(third.RSI14, 0.0)
	suite.LessOrEqual(third.RSI14, 100.0)
}

func (suite *FeaturesTestSuite) TestTechnicalFeaturesAreDeterministic() {
	engine, err := NewTechnicalEngine(suite.cfg, suite.log)
	suite.Require().NoError(err)

	trades := []types.Trade{
		trade("2024-01-02", "B", "1", "2", 10, 10),
		trade("2024-01-02", "A", "1", "2", 10, 20),
		trade("2024-01-03", "B", "1", "2", 10, 11),
		trade("2024-01-03", "A", "1", "2", 10, 19),
	}

	first, err := engine.Compute(trades)
	suite.Require().NoError(err)

	second, err := engine.Compute(trades)
	suite.Require().NoError(err)
	suite.Equal(first, second)
}

func (suite *FeaturesTestSuite) TestInvalidPeriods() {
	suite.cfg.Features.MAPeriod = 0

	_, err := NewTechnicalEngine(suite.cfg, suite.log)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
}

func (suite *FeaturesTestSuite) TestNetStrength() {
	suite.InDelta(0.4, NetStrength(types.BrokerModeRelative, 700, 300), 1e-6)
	suite.Equal(400.0, NetStrength(types.BrokerModeAbsolute, 700, 300))
	suite.Equal(0.0, NetStrength(types.BrokerModeRelative, 0, 0))
	suite.InDelta(-1.0, NetStrength(types.BrokerModeRelative, 0, 50), 1e-6)
}

func (suite *FeaturesTestSuite) TestHHI() {
	suite.Equal(0.0, HHI(nil))
	suite.Equal(0.0, HHI([]float64{0, 0}))
	suite.Equal(1.0, HHI([]float64{-5}))
	suite.InDelta(0.5, HHI([]float64{3, -3}), 1e-12)
}

func (suite *FeaturesTestSuite) TestBrokerFeatures() {
	engine, err := NewBrokerEngine(suite.cfg, suite.log)
	suite.Require().NoError(err)

	trades := []types.Trade{
		trade("2024-01-02", "NABIL", "21", "45", 700, 1000),
		trade("2024-01-02", "NABIL", "45", "21", 300, 1000),
		trade("2024-01-02", "NABIL", "17", "", 2000, 1000),
		trade("2024-01-02", "ADBL", "", "9", 10, 100),
	}

	out, err := engine.Compute(trades)
	suite.Require().NoError(err)
	suite.Equal(types.BrokerModeRelative, out.Mode)

	// ADBL/9, NABIL/17, NABIL/21, NABIL/45
	suite.Require().Len(out.Activity, 4)
	suite.Equal("ADBL", out.Activity[0].Symbol)
	suite.Equal(int64(0), out.Activity[0].BuyVolume)
	suite.Equal(int64(10), out.Activity[0].SellVolume)

	broker21 := out.Activity[2]
	suite.Equal("21", broker21.Broker)
	suite.Equal(int64(700), broker21.BuyVolume)
	suite.Equal(int64(300), broker21.SellVolume)
	suite.InDelta(0.4, broker21.NetStrength, 1e-6)

	suite.Require().Len(out.Concentration, 2)

	nabil := out.Concentration[1]
	suite.Equal("NABIL", nabil.Symbol)
	suite.Equal(3, nabil.ActiveBrokers)
	// only the 2000 x 1000 trade exceeds one million
	suite.Equal(int64(1), nabil.LargeTradesCount)
	suite.GreaterOrEqual(nabil.BrokerHHI, 0.0)
	suite.LessOrEqual(nabil.BrokerHHI, 1.0)

	suite.Equal(int64(0), out.Concentration[0].LargeTradesCount)
}

func (suite *FeaturesTestSuite) TestBrokerAbsoluteMode() {
	engine, err := NewBrokerEngineWithMode(types.BrokerModeAbsolute, 1_000_000, suite.log)
	suite.Require().NoError(err)

	out, err := engine.Compute([]types.Trade{
		trade("2024-01-02", "NABIL", "21", "45", 700, 10),
		trade("2024-01-02", "NABIL", "45", "21", 300, 10),
	})
	suite.Require().NoError(err)
	suite.Equal(400.0, out.Activity[0].NetStrength)
	suite.Equal(-400.0, out.Activity[1].NetStrength)
	suite.InDelta(0.5, out.Concentration[0].BrokerHHI, 1e-12)
}

func (suite *FeaturesTestSuite) TestBrokerEngineValidation() {
	_, err := NewBrokerEngineWithMode("mixed", 1, suite.log)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidBrokerMode))

	_, err = NewBrokerEngineWithMode(types.BrokerModeRelative, 0, suite.log)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}
