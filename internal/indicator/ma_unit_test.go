package indicator

import (
	"testing"

	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/stretchr/testify/suite"
)

type MAUnitTestSuite struct {
	suite.Suite
}

func TestMAUnitSuite(t *testing.T) {
	suite.Run(t, new(MAUnitTestSuite))
}

func (suite *MAUnitTestSuite) TestNewMA() {
	ma := NewMA()
	suite.NotNil(ma)

	// Cast to *MA to check default values
	maImpl := ma.(*MA)
	suite.Equal(5, maImpl.period)
	suite.Equal(types.IndicatorTypeMA, ma.Name())
}

func (suite *MAUnitTestSuite) TestConfigValid() {
	ma := NewMA()
	maImpl := ma.(*MA)

	suite.NoError(ma.Config(10))
	suite.Equal(10, maImpl.period)

	// MA supports float64 conversion
	suite.NoError(ma.Config(15.0))
	suite.Equal(15, maImpl.period)
}

func (suite *MAUnitTestSuite) TestConfigInvalid() {
	ma := NewMA()

	err := ma.Config()
	suite.Error(err)
	suite.Contains(err.Error(), "expects 1 parameter")

	suite.Error(ma.Config(10, 20))
	suite.Error(ma.Config("ten"))
	suite.Error(ma.Config(0))
	suite.Error(ma.Config(-3))
}

func (suite *MAUnitTestSuite) TestComputeMinPeriods() {
	ma := NewMA()
	suite.Require().NoError(ma.Config(3))

	out, err := ma.Compute([]float64{1, 2, 3, 4, 5})
	suite.Require().NoError(err)
	suite.Equal([]float64{1, 1.5, 2, 3, 4}, out)
}

func (suite *MAUnitTestSuite) TestComputeEmpty() {
	out, err := NewMA().Compute(nil)
	suite.NoError(err)
	suite.Empty(out)
}
