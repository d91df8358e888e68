package trainer

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/floorsheet-signals/internal/config"
	"github.com/rxtech-lab/floorsheet-signals/internal/logger"
	"github.com/rxtech-lab/floorsheet-signals/internal/model"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/mocks"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type TrainerTestSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	source    *mocks.MockDataSource
	artifacts *mocks.MockArtifactRepository
	recorder  *mocks.MockRecorder
	cfg       *config.Config
}

func TestTrainerSuite(t *testing.T) {
	suite.Run(t, new(TrainerTestSuite))
}

func (suite *TrainerTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.source = mocks.NewMockDataSource(suite.ctrl)
	suite.artifacts = mocks.NewMockArtifactRepository(suite.ctrl)
	suite.recorder = mocks.NewMockRecorder(suite.ctrl)

	cfg, err := config.Default()
	suite.Require().NoError(err)
	cfg.Training.BaseEstimators = 5
	cfg.Training.EstimatorIncrement = 2
	suite.cfg = cfg
}

func (suite *TrainerTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *TrainerTestSuite) newTrainer() *Trainer {
	return NewTrainer(suite.cfg, suite.source, suite.artifacts, suite.recorder, logger.NewNopLogger(),
		WithClock(func() time.Time { return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC) }))
}

// fixture returns days*len(symbols) aligned rows whose target follows the sign of DailyReturn.
func fixture(days int, symbols ...string) ([]types.TechnicalFeature, []types.BrokerConcentration, []types.TargetLabel) {
	var (
		technical []types.TechnicalFeature
		broker    []types.BrokerConcentration
		targets   []types.TargetLabel
	)

	start := types.MustParseDate("2024-01-01")

	for d := 0; d < days; d++ {
		date := start.AddDays(d)

		for i, symbol := range symbols {
			ret := float64((d+i)%3-1) * 0.05
			technical = append(technical, types.TechnicalFeature{
				Date: date, Symbol: symbol, Close: 100, MA5: 100, STD14: 1, RSI14: 50 + ret*100,
				DailyReturn: ret, Volume: int64(1000 + d),
			})
			broker = append(broker, types.BrokerConcentration{Date: date, Symbol: symbol, BrokerHHI: 0.2, LargeTradesCount: 1})

			target := types.SignalHold
			if ret > 0 {
				target = types.SignalBuy
			} else if ret < 0 {
				target = types.SignalSell
			}

			targets = append(targets, types.TargetLabel{Date: date, Symbol: symbol, Target: target, ForwardReturn: ret})
		}
	}

	return technical, broker, targets
}

func (suite *TrainerTestSuite) expectData(days int) {
	technical, broker, targets := fixture(days, "AAA", "BBB")
	suite.source.EXPECT().ReadTechnical(gomock.Any(), gomock.Any()).Return(technical, nil)
	suite.source.EXPECT().ReadBrokerConcentration(gomock.Any(), types.BrokerModeRelative, gomock.Any()).Return(broker, nil)
	suite.source.EXPECT().ReadTargets(gomock.Any(), types.HorizonNextDay, gomock.Any()).Return(targets, nil)
}

func (suite *TrainerTestSuite) TestMergeIsInnerJoin() {
	technical, broker, targets := fixture(3, "AAA", "BBB")

	rows := Merge(technical, broker[1:], targets[:len(targets)-1])
	suite.Len(rows, 4)

	for i := 1; i < len(rows); i++ {
		suite.False(rows[i].Key().Less(rows[i-1].Key()))
	}

	for _, row := range rows {
		suite.Equal(row.Technical.Key(), row.Broker.Key())
	}
}

func (suite *TrainerTestSuite) TestApplyWindow() {
	technical, broker, targets := fixture(10, "AAA")
	rows := Merge(technical, broker, targets)

	suite.Len(ApplyWindow(rows, config.WindowAll()), 10)

	windowed := ApplyWindow(rows, config.WindowDays(3))
	suite.Len(windowed, 3)
	suite.Equal("2024-01-08", windowed[0].Technical.Date.String())
}

func (suite *TrainerTestSuite) TestSplitIndex() {
	suite.Equal(8, SplitIndex(10, 0.2))
	suite.Equal(7, SplitIndex(9, 0.2))
	suite.Equal(0, SplitIndex(1, 0.2))
	suite.Equal(0, SplitIndex(0, 0.2))
}

func (suite *TrainerTestSuite) TestColdStart() {
	suite.expectData(10)
	suite.artifacts.EXPECT().Load().Return(nil, errors.New(errors.ErrCodeArtifactNotFound, "missing"))

	var saved *model.Artifact
	suite.artifacts.EXPECT().Save(gomock.Any()).DoAndReturn(func(a *model.Artifact) error {
		saved = a

		return nil
	})

	var recorded types.EvaluationReport
	suite.recorder.EXPECT().Record(gomock.Any()).DoAndReturn(func(r types.EvaluationReport) error {
		recorded = r

		return nil
	})

	result, err := suite.newTrainer().Train(context.Background())
	suite.Require().NoError(err)

	suite.True(result.Cold)
	suite.Require().NotNil(saved)
	suite.Equal(7, saved.Forest.Fitted())
	suite.Equal(1, saved.Runs)
	suite.Equal("2024-02-01", saved.Version())
	suite.Equal(types.FeatureColumns, saved.Schema.Columns)
	suite.Equal(16, recorded.TrainRows)
	suite.Equal(4, recorded.TestRows)
	suite.Equal(7, recorded.Estimators)
	suite.Equal(result.RunID, recorded.RunID)
	suite.NotEmpty(result.RunID)
}

func (suite *TrainerTestSuite) TestWarmStartGrowsForest() {
	existing := model.NewArtifact(types.HorizonNextDay, types.BrokerModeRelative, types.FeatureColumns, 5, model.Params{RandomState: 42})
	existing.Runs = 1

	technical, broker, targets := fixture(10, "AAA", "BBB")
	ds, _, err := Encode(Merge(technical, broker, targets), existing.Schema, existing.Labels)
	suite.Require().NoError(err)
	_, err = existing.Forest.Fit(context.Background(), ds.X, ds.Y)
	suite.Require().NoError(err)

	first := existing.Forest.Trees[0]

	suite.expectData(10)
	suite.artifacts.EXPECT().Load().Return(existing, nil)
	suite.artifacts.EXPECT().Save(gomock.Any()).Return(nil)
	suite.recorder.EXPECT().Record(gomock.Any()).Return(nil)

	result, err := suite.newTrainer().Train(context.Background())
	suite.Require().NoError(err)

	suite.False(result.Cold)
	suite.Equal(7, result.Artifact.Forest.Fitted())
	suite.Equal(2, result.Artifact.Runs)
	suite.Same(first, result.Artifact.Forest.Trees[0])
}

func (suite *TrainerTestSuite) TestCorruptArtifactStartsCold() {
	suite.expectData(10)
	suite.artifacts.EXPECT().Load().Return(nil, errors.New(errors.ErrCodeArtifactCorrupt, "bad json"))
	suite.artifacts.EXPECT().Save(gomock.Any()).Return(nil)
	suite.recorder.EXPECT().Record(gomock.Any()).Return(nil)

	result, err := suite.newTrainer().Train(context.Background())
	suite.Require().NoError(err)
	suite.True(result.Cold)
}

func (suite *TrainerTestSuite) TestBrokerModeMismatch() {
	existing := model.NewArtifact(types.HorizonNextDay, types.BrokerModeAbsolute, types.FeatureColumns, 5, model.Params{})

	suite.expectData(10)
	suite.artifacts.EXPECT().Load().Return(existing, nil)

	_, err := suite.newTrainer().Train(context.Background())
	suite.True(errors.HasCode(err, errors.ErrCodeArtifactIncompatible))
}

func (suite *TrainerTestSuite) TestNoTrainingData() {
	suite.source.EXPECT().ReadTechnical(gomock.Any(), gomock.Any()).
		Return(nil, errors.New(errors.ErrCodeDataNotFound, "no technical table"))

	_, err := suite.newTrainer().Train(context.Background())
	suite.True(errors.HasCode(err, errors.ErrCodeNoTrainingData))
}

func (suite *TrainerTestSuite) TestEmptyMerge() {
	technical, broker, _ := fixture(5, "AAA")
	suite.source.EXPECT().ReadTechnical(gomock.Any(), gomock.Any()).Return(technical, nil)
	suite.source.EXPECT().ReadBrokerConcentration(gomock.Any(), gomock.Any(), gomock.Any()).Return(broker, nil)
	suite.source.EXPECT().ReadTargets(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := suite.newTrainer().Train(context.Background())
	suite.True(errors.HasCode(err, errors.ErrCodeNoTrainingData))
}

func (suite *TrainerTestSuite) TestEmptyTrainingSplit() {
	technical, broker, targets := fixture(1, "AAA")
	suite.source.EXPECT().ReadTechnical(gomock.Any(), gomock.Any()).Return(technical, nil)
	suite.source.EXPECT().ReadBrokerConcentration(gomock.Any(), gomock.Any(), gomock.Any()).Return(broker, nil)
	suite.source.EXPECT().ReadTargets(gomock.Any(), gomock.Any(), gomock.Any()).Return(targets, nil)
	suite.artifacts.EXPECT().Load().Return(nil, errors.New(errors.ErrCodeArtifactNotFound, "missing"))

	_, err := suite.newTrainer().Train(context.Background())
	suite.True(errors.HasCode(err, errors.ErrCodeNoTrainingData))
}

func (suite *TrainerTestSuite) TestRecordFailureSavesNothing() {
	suite.expectData(10)
	suite.artifacts.EXPECT().Load().Return(nil, errors.New(errors.ErrCodeArtifactNotFound, "missing"))
	suite.recorder.EXPECT().Record(gomock.Any()).Return(errors.New(errors.ErrCodeHistoryWriteFailed, "disk full"))
	suite.artifacts.EXPECT().Save(gomock.Any()).Times(0)

	_, err := suite.newTrainer().Train(context.Background())
	suite.True(errors.HasCode(err, errors.ErrCodeHistoryWriteFailed))
}

func (suite *TrainerTestSuite) TestSaveFailureAfterRecord() {
	suite.expectData(10)
	suite.artifacts.EXPECT().Load().Return(nil, errors.New(errors.ErrCodeArtifactNotFound, "missing"))

	gomock.InOrder(
		suite.recorder.EXPECT().Record(gomock.Any()).Return(nil),
		suite.artifacts.EXPECT().Save(gomock.Any()).Return(errors.New(errors.ErrCodeWriteFailed, "read-only")),
	)

	_, err := suite.newTrainer().Train(context.Background())
	suite.True(errors.HasCode(err, errors.ErrCodeWriteFailed))
}

func (suite *TrainerTestSuite) TestSplitIsChronological() {
	// 6 days x 3 symbols with 4 held out: day 5 is split between both sides.
	technical, broker, targets := fixture(6, "AAA", "BBB", "CCC")
	schema := model.NewFeatureSchema(types.FeatureColumns)

	ds, _, err := Encode(Merge(technical, broker, targets), schema, model.NewLabelEncoder())
	suite.Require().NoError(err)

	train, test := Split(ds, 0.2)
	suite.Equal(14, train.Len())
	suite.Equal(4, test.Len())

	_, trainEnd := train.DateRange()
	for _, row := range test.Rows {
		suite.False(row.Technical.Date.Before(trainEnd), "test row %s %s precedes training end", row.Technical.Symbol, row.Technical.Date)
	}

	for _, row := range train.Rows {
		suite.False(row.Technical.Date.After(trainEnd))
	}

	suite.Equal("2024-01-05", trainEnd.String())
	suite.Equal("2024-01-05", test.Rows[0].Technical.Date.String())
	suite.Equal("CCC", test.Rows[0].Technical.Symbol)
}

func (suite *TrainerTestSuite) TestTrainReportsSplitBoundary() {
	technical, broker, targets := fixture(6, "AAA", "BBB", "CCC")
	suite.source.EXPECT().ReadTechnical(gomock.Any(), gomock.Any()).Return(technical, nil)
	suite.source.EXPECT().ReadBrokerConcentration(gomock.Any(), gomock.Any(), gomock.Any()).Return(broker, nil)
	suite.source.EXPECT().ReadTargets(gomock.Any(), gomock.Any(), gomock.Any()).Return(targets, nil)
	suite.artifacts.EXPECT().Load().Return(nil, errors.New(errors.ErrCodeArtifactNotFound, "missing"))
	suite.recorder.EXPECT().Record(gomock.Any()).Return(nil)
	suite.artifacts.EXPECT().Save(gomock.Any()).Return(nil)

	result, err := suite.newTrainer().Train(context.Background())
	suite.Require().NoError(err)

	suite.Equal("2024-01-05", result.TrainEnd.String())
	suite.Equal("2024-01-05", result.TestStart.String())
	suite.Equal(14, result.Report.TrainRows)
	suite.Equal(4, result.Report.TestRows)
}

func (suite *TrainerTestSuite) TestFrozenEncodingAcrossRuns() {
	artifacts := model.NewArtifactStore(suite.T().TempDir(), false, logger.NewNopLogger())
	suite.recorder.EXPECT().Record(gomock.Any()).Return(nil).Times(2)

	run := func(technical []types.TechnicalFeature, broker []types.BrokerConcentration, targets []types.TargetLabel) *model.Artifact {
		suite.source.EXPECT().ReadTechnical(gomock.Any(), gomock.Any()).Return(technical, nil)
		suite.source.EXPECT().ReadBrokerConcentration(gomock.Any(), gomock.Any(), gomock.Any()).Return(broker, nil)
		suite.source.EXPECT().ReadTargets(gomock.Any(), gomock.Any(), gomock.Any()).Return(targets, nil)

		trainer := NewTrainer(suite.cfg, suite.source, artifacts, suite.recorder, logger.NewNopLogger())
		_, err := trainer.Train(context.Background())
		suite.Require().NoError(err)

		stored, err := artifacts.Load()
		suite.Require().NoError(err)

		return stored
	}

	// first run sees all three classes
	technical, broker, targets := fixture(10, "AAA", "BBB")
	first := run(technical, broker, targets)
	sellCode, err := first.Labels.Encode(types.SignalSell)
	suite.Require().NoError(err)

	// second run sees Sell only
	for i := range targets {
		targets[i].Target = types.SignalSell
	}

	second := run(technical, broker, targets)

	suite.Equal(first.Labels.Classes, second.Labels.Classes)
	suite.Equal(types.AllSignals, second.Labels.Classes)

	code, err := second.Labels.Encode(types.SignalSell)
	suite.Require().NoError(err)
	suite.Equal(sellCode, code)
	suite.Equal(2, second.Runs)
}
