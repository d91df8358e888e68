package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestDefaults() {
	cfg, err := Default()
	suite.Require().NoError(err)

	suite.Equal("data/raw", cfg.Data.RawPath)
	suite.Equal("models", cfg.Models.BasePath)
	suite.True(cfg.Models.KeepSnapshots)
	suite.Equal("info", cfg.Logs.Level)
	suite.Equal(types.HorizonNextDay, cfg.Training.Horizon)
	suite.Equal(types.BrokerModeRelative, cfg.Training.BrokerMode)
	suite.Equal(0.2, cfg.Training.TestSize)
	suite.Equal(int64(42), cfg.Training.RandomState)
	suite.Equal(100, cfg.Training.BaseEstimators)
	suite.Equal(10, cfg.Training.EstimatorIncrement)
	suite.Equal(5, cfg.Features.MAPeriod)
	suite.Equal(14, cfg.Features.RSIPeriod)
	suite.Equal(1_000_000.0, cfg.Ingestion.LargeTradeThreshold)
	suite.Equal(Threshold{Buy: 0.02, Sell: -0.02}, cfg.Training.Thresholds.NextDay)
	suite.Equal(Threshold{Buy: 0.03, Sell: -0.03}, cfg.Training.Thresholds.ThreeDay)
	suite.Equal(Threshold{Buy: 0.05, Sell: -0.05}, cfg.Training.Thresholds.Weekly)

	_, ok := cfg.Training.TrainingWindow.Days()
	suite.False(ok)
	suite.NoError(cfg.Validate())
}

func (suite *ConfigTestSuite) TestParseOverridesDefaults() {
	cfg, err := Parse([]byte(`
training:
  horizon: weekly
  broker_mode: absolute
  training_window: 90
  thresholds:
    weekly:
      buy: 0.08
ingestion:
  strict: true
`))
	suite.Require().NoError(err)

	suite.Equal(types.HorizonWeekly, cfg.Training.Horizon)
	suite.Equal(types.BrokerModeAbsolute, cfg.Training.BrokerMode)
	suite.True(cfg.Ingestion.Strict)
	suite.Equal(0.08, cfg.Training.Thresholds.Weekly.Buy)
	// unspecified side keeps its default
	suite.Equal(-0.05, cfg.Training.Thresholds.Weekly.Sell)

	days, ok := cfg.Training.TrainingWindow.Days()
	suite.True(ok)
	suite.Equal(90, days)
}

func (suite *ConfigTestSuite) TestTrainingWindowAll() {
	cfg, err := Parse([]byte("training:\n  training_window: all\n"))
	suite.Require().NoError(err)
	suite.True(cfg.Training.TrainingWindow.Option().IsNone())
	suite.Equal("all", cfg.Training.TrainingWindow.String())
}

func (suite *ConfigTestSuite) TestInvalidConfigs() {
	tests := []struct {
		name string
		yaml string
		code errors.ErrorCode
	}{
		{"unknown horizon", "training:\n  horizon: monthly\n", errors.ErrCodeInvalidHorizon},
		{"unknown broker mode", "training:\n  broker_mode: mixed\n", errors.ErrCodeInvalidBrokerMode},
		{"inverted thresholds", "training:\n  thresholds:\n    3day:\n      buy: -0.1\n      sell: 0.1\n", errors.ErrCodeInvalidThreshold},
		{"test size out of range", "training:\n  test_size: 1.5\n", errors.ErrCodeInvalidConfiguration},
		{"negative window", "training:\n  training_window: -3\n", errors.ErrCodeInvalidConfiguration},
		{"bad window", "training:\n  training_window: forever\n", errors.ErrCodeInvalidConfiguration},
		{"bad log level", "logs:\n  level: loud\n", errors.ErrCodeInvalidConfiguration},
		{"malformed yaml", "training: [", errors.ErrCodeInvalidConfiguration},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			_, err := Parse([]byte(tc.yaml))
			suite.Error(err)
			suite.True(errors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func (suite *ConfigTestSuite) TestLoad() {
	path := filepath.Join(suite.T().TempDir(), "config.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte("models:\n  base_path: /tmp/models\n"), 0o644))

	cfg, err := Load(path)
	suite.Require().NoError(err)
	suite.Equal("/tmp/models/random_forest/3day/latest_model.json", cfg.ModelPath(types.HorizonThreeDay))
	suite.Equal("/tmp/models/random_forest/3day/.run.lock", cfg.LockPath(types.HorizonThreeDay))
	suite.Equal(filepath.Join(cfg.Data.ProcessedPath, ".data.lock"), cfg.DataLockPath())

	_, err = Load(filepath.Join(suite.T().TempDir(), "missing.yaml"))
	suite.Error(err)

	cfg, err = Load("")
	suite.Require().NoError(err)
	suite.Equal("logs/evaluation_history.csv", cfg.HistoryPath())
}

func (suite *ConfigTestSuite) TestThresholdsFor() {
	cfg, err := Default()
	suite.Require().NoError(err)

	t, err := cfg.Training.Thresholds.For(types.HorizonWeekly)
	suite.Require().NoError(err)
	suite.Equal(0.05, t.Buy)

	_, err = cfg.Training.Thresholds.For("monthly")
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidHorizon))
}

func (suite *ConfigTestSuite) TestTrainingWindowEncoding() {
	b, err := json.Marshal(WindowDays(30))
	suite.Require().NoError(err)
	suite.Equal("30", string(b))

	b, err = json.Marshal(WindowAll())
	suite.Require().NoError(err)
	suite.Equal(`"all"`, string(b))

	var w TrainingWindow
	suite.Require().NoError(json.Unmarshal([]byte("14"), &w))
	days, ok := w.Days()
	suite.True(ok)
	suite.Equal(14, days)

	out, err := yaml.Marshal(struct {
		Window TrainingWindow `yaml:"window"`
	}{WindowDays(7)})
	suite.Require().NoError(err)
	suite.Equal("window: 7\n", string(out))
}

func (suite *ConfigTestSuite) TestSchema() {
	schema, err := Schema()
	suite.Require().NoError(err)

	var decoded map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schema), &decoded))
	suite.Contains(schema, "training_window")
	suite.Contains(schema, "large_trade_threshold")
	suite.Contains(schema, "oneOf")
}
