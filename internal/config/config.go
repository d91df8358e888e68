// Package config loads the YAML run configuration. The resulting Config is passed explicitly to
// every stage constructor; nothing reads configuration from globals.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Data      DataConfig      `yaml:"data" json:"data" jsonschema:"title=Data,description=Locations of raw, normalized and derived tables"`
	Models    ModelsConfig    `yaml:"models" json:"models" jsonschema:"title=Models"`
	Logs      LogsConfig      `yaml:"logs" json:"logs" jsonschema:"title=Logs"`
	Features  FeaturesConfig  `yaml:"features" json:"features" jsonschema:"title=Features"`
	Training  TrainingConfig  `yaml:"training" json:"training" jsonschema:"title=Training"`
	Ingestion IngestionConfig `yaml:"ingestion" json:"ingestion" jsonschema:"title=Ingestion"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics" jsonschema:"title=Metrics"`
	Server    ServerConfig    `yaml:"server" json:"server" jsonschema:"title=Server"`
}

type DataConfig struct {
	RawPath       string `yaml:"raw_path" json:"raw_path" default:"data/raw" validate:"required" jsonschema:"title=Raw Path,description=Directory holding floor_sheet_data_YYYY-MM-DD.csv files"`
	ProcessedPath string `yaml:"processed_path" json:"processed_path" default:"data/processed" validate:"required" jsonschema:"title=Processed Path,description=Directory for clean_sheet_data_YYYY-MM-DD.csv files"`
	FeaturesPath  string `yaml:"features_path" json:"features_path" default:"data/features" validate:"required" jsonschema:"title=Features Path"`
	TargetsPath   string `yaml:"targets_path" json:"targets_path" default:"data/targets" validate:"required" jsonschema:"title=Targets Path"`
}

type ModelsConfig struct {
	BasePath      string `yaml:"base_path" json:"base_path" default:"models" validate:"required" jsonschema:"title=Base Path"`
	KeepSnapshots bool   `yaml:"keep_snapshots" json:"keep_snapshots" default:"true" jsonschema:"title=Keep Snapshots,description=Write a dated model_YYYYMMDD.json next to latest_model.json"`
}

type LogsConfig struct {
	LogDir string `yaml:"log_dir" json:"log_dir" default:"logs" validate:"required" jsonschema:"title=Log Directory,description=Holds pipeline.log and the evaluation history"`
	Level  string `yaml:"level" json:"level" default:"info" validate:"oneof=debug info warn error" jsonschema:"title=Level,enum=debug,enum=info,enum=warn,enum=error"`
}

type FeaturesConfig struct {
	MAPeriod  int `yaml:"ma_period" json:"ma_period" default:"5" validate:"gte=1" jsonschema:"title=MA Period"`
	STDPeriod int `yaml:"std_period" json:"std_period" default:"14" validate:"gte=1" jsonschema:"title=STD Period"`
	RSIPeriod int `yaml:"rsi_period" json:"rsi_period" default:"14" validate:"gte=1" jsonschema:"title=RSI Period"`
}

// Threshold is the forward-return band of one horizon. Returns above Buy are labeled Buy,
// returns below Sell are labeled Sell.
type Threshold struct {
	Buy  float64 `yaml:"buy" json:"buy"`
	Sell float64 `yaml:"sell" json:"sell"`
}

type Thresholds struct {
	NextDay  Threshold `yaml:"next_day" json:"next_day" default:"{\"buy\":0.02,\"sell\":-0.02}"`
	ThreeDay Threshold `yaml:"3day" json:"3day" default:"{\"buy\":0.03,\"sell\":-0.03}"`
	Weekly   Threshold `yaml:"weekly" json:"weekly" default:"{\"buy\":0.05,\"sell\":-0.05}"`
}

// For returns the threshold configured for a horizon.
func (t Thresholds) For(h types.Horizon) (Threshold, error) {
	switch h {
	case types.HorizonNextDay:
		return t.NextDay, nil
	case types.HorizonThreeDay:
		return t.ThreeDay, nil
	case types.HorizonWeekly:
		return t.Weekly, nil
	default:
		return Threshold{}, errors.Newf(errors.ErrCodeInvalidHorizon, "unsupported horizon %q", string(h))
	}
}

type TrainingConfig struct {
	Horizon            types.Horizon    `yaml:"horizon" json:"horizon" default:"next_day" validate:"required" jsonschema:"title=Horizon,enum=next_day,enum=3day,enum=weekly"`
	BrokerMode         types.BrokerMode `yaml:"broker_mode" json:"broker_mode" default:"relative" validate:"required" jsonschema:"title=Broker Mode,enum=relative,enum=absolute"`
	TrainingWindow     TrainingWindow   `yaml:"training_window" json:"training_window" jsonschema:"title=Training Window,description=Trailing number of days to train on or all"`
	TestSize           float64          `yaml:"test_size" json:"test_size" default:"0.2" validate:"gt=0,lt=1" jsonschema:"title=Test Size"`
	RandomState        int64            `yaml:"random_state" json:"random_state" default:"42" jsonschema:"title=Random State"`
	BaseEstimators     int              `yaml:"base_estimators" json:"base_estimators" default:"100" validate:"gte=1" jsonschema:"title=Base Estimators"`
	EstimatorIncrement int              `yaml:"estimator_increment" json:"estimator_increment" default:"10" validate:"gte=1" jsonschema:"title=Estimator Increment"`
	MaxDepth           int              `yaml:"max_depth" json:"max_depth" validate:"gte=0" jsonschema:"title=Max Depth,description=0 grows trees until leaves are pure"`
	MinSamplesLeaf     int              `yaml:"min_samples_leaf" json:"min_samples_leaf" default:"1" validate:"gte=1" jsonschema:"title=Min Samples Leaf"`
	Thresholds         Thresholds       `yaml:"thresholds" json:"thresholds" jsonschema:"title=Thresholds"`
}

type IngestionConfig struct {
	Strict              bool    `yaml:"strict" json:"strict" jsonschema:"title=Strict,description=Fail a whole file on its first malformed row"`
	LargeTradeThreshold float64 `yaml:"large_trade_threshold" json:"large_trade_threshold" default:"1000000" validate:"gt=0" jsonschema:"title=Large Trade Threshold"`
	ShowProgress        bool    `yaml:"show_progress" json:"show_progress" jsonschema:"title=Show Progress"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile" json:"textfile" jsonschema:"title=Textfile,description=Prometheus textfile written after each run"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr" default:":8080" validate:"required" jsonschema:"title=Address"`
}

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to apply defaults", err)
	}

	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads and parses a YAML config file. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg, err := Default()
		if err != nil {
			return nil, err
		}

		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return Parse(data)
}

// Validate checks the configuration. Horizon, broker mode and threshold problems carry their own codes.
func (c *Config) Validate() error {
	if _, err := c.Training.Horizon.Periods(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidHorizon, "invalid training.horizon", err)
	}

	if !c.Training.BrokerMode.IsValid() {
		return errors.Newf(errors.ErrCodeInvalidBrokerMode, "invalid training.broker_mode %q", string(c.Training.BrokerMode))
	}

	for _, h := range types.AllHorizons {
		t, _ := c.Training.Thresholds.For(h)
		if t.Buy <= t.Sell {
			return errors.Newf(errors.ErrCodeInvalidThreshold, "training.thresholds.%s: buy (%v) must be greater than sell (%v)", h, t.Buy, t.Sell)
		}
	}

	if days, ok := c.Training.TrainingWindow.Days(); ok && days <= 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "training.training_window must be positive, got %d", days)
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	return nil
}

// ModelDir is the directory holding the artifacts of one horizon.
func (c *Config) ModelDir(h types.Horizon) string {
	return filepath.Join(c.Models.BasePath, "random_forest", string(h))
}

// ModelPath is the path of the latest artifact of one horizon.
func (c *Config) ModelPath(h types.Horizon) string {
	return filepath.Join(c.ModelDir(h), "latest_model.json")
}

// DataLockPath guards the normalized sheets and feature tables every horizon shares.
func (c *Config) DataLockPath() string {
	return filepath.Join(c.Data.ProcessedPath, ".data.lock")
}

// LockPath is the run lock of one horizon.
func (c *Config) LockPath(h types.Horizon) string {
	return filepath.Join(c.ModelDir(h), ".run.lock")
}

// HistoryPath is the append-only evaluation history.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Logs.LogDir, "evaluation_history.csv")
}

// String renders the config as YAML for debug logging.
func (c *Config) String() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}

	return string(out)
}
