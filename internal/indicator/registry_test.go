package indicator

import (
	"testing"

	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/mocks"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

// mockIndicator is a simple mock indicator for testing the registry
type mockIndicator struct {
	name types.IndicatorType
}

func newMockIndicator(name types.IndicatorType) *mockIndicator {
	return &mockIndicator{name: name}
}

func (m *mockIndicator) Name() types.IndicatorType {
	return m.name
}

func (m *mockIndicator) Compute(values []float64) ([]float64, error) {
	return make([]float64, len(values)), nil
}

func (m *mockIndicator) Config(params ...any) error {
	return nil
}

type RegistryTestSuite struct {
	suite.Suite
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) TestNewIndicatorRegistry() {
	registry := NewIndicatorRegistry()
	suite.NotNil(registry)
}

func (suite *RegistryTestSuite) TestRegisterIndicator() {
	registry := NewIndicatorRegistry()

	indicator := newMockIndicator(types.IndicatorTypeRSI)
	err := registry.RegisterIndicator(indicator)
	suite.NoError(err)

	// Verify the indicator is registered
	retrieved, err := registry.GetIndicator(types.IndicatorTypeRSI)
	suite.NoError(err)
	suite.Equal(indicator, retrieved)
}

func (suite *RegistryTestSuite) TestRegisterIndicatorDuplicate() {
	registry := NewIndicatorRegistry()

	err := registry.RegisterIndicator(newMockIndicator(types.IndicatorTypeRSI))
	suite.NoError(err)

	// Trying to register another indicator with the same name should fail
	err = registry.RegisterIndicator(newMockIndicator(types.IndicatorTypeRSI))
	suite.Error(err)
	suite.Contains(err.Error(), "already registered")
	suite.True(errors.HasCode(err, errors.ErrCodeIndicatorAlreadyExists))
}

func (suite *RegistryTestSuite) TestGetIndicatorNotFound() {
	registry := NewIndicatorRegistry()

	_, err := registry.GetIndicator(types.IndicatorTypeRSI)
	suite.Error(err)
	suite.Contains(err.Error(), "not found")
	suite.True(errors.HasCode(err, errors.ErrCodeIndicatorNotFound))
}

func (suite *RegistryTestSuite) TestListIndicatorsSorted() {
	registry := NewIndicatorRegistry()
	suite.Empty(registry.ListIndicators())

	suite.Require().NoError(registry.RegisterIndicator(newMockIndicator(types.IndicatorTypeSTD)))
	suite.Require().NoError(registry.RegisterIndicator(newMockIndicator(types.IndicatorTypeMA)))
	suite.Require().NoError(registry.RegisterIndicator(newMockIndicator(types.IndicatorTypeRSI)))

	suite.Equal([]types.IndicatorType{types.IndicatorTypeMA, types.IndicatorTypeRSI, types.IndicatorTypeSTD}, registry.ListIndicators())
}

func (suite *RegistryTestSuite) TestConcurrentAccess() {
	registry := NewIndicatorRegistry()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(idx int) {
			indicatorType := types.IndicatorType(string(rune('A' + idx)))
			_ = registry.RegisterIndicator(newMockIndicator(indicatorType))
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	suite.Len(registry.ListIndicators(), 10)
}

func (suite *RegistryTestSuite) TestNewTechnicalRegistry() {
	registry, err := NewTechnicalRegistry(5, 14, 14)
	suite.Require().NoError(err)
	suite.Len(registry.ListIndicators(), 4)

	ma, err := registry.GetIndicator(types.IndicatorTypeMA)
	suite.Require().NoError(err)
	suite.Equal(5, ma.(*MA).period)

	_, err = NewTechnicalRegistry(0, 14, 14)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
}

func (suite *RegistryTestSuite) TestRegisteredIndicatorIsReturnedAsIs() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	ind := mocks.NewMockIndicator(ctrl)
	ind.EXPECT().Name().Return(types.IndicatorType("custom")).AnyTimes()
	ind.EXPECT().Compute([]float64{1, 2}).Return([]float64{1.5, 1.5}, nil)

	registry := NewIndicatorRegistry()
	suite.Require().NoError(registry.RegisterIndicator(ind))

	got, err := registry.GetIndicator("custom")
	suite.Require().NoError(err)

	out, err := got.Compute([]float64{1, 2})
	suite.Require().NoError(err)
	suite.Equal([]float64{1.5, 1.5}, out)
}
