package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/floorsheet-signals/internal/config"
	"github.com/rxtech-lab/floorsheet-signals/internal/lock"
	"github.com/rxtech-lab/floorsheet-signals/internal/logger"
	"github.com/rxtech-lab/floorsheet-signals/internal/store"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/mocks"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type PipelineTestSuite struct {
	suite.Suite
	dir string
	cfg *config.Config
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}

func (suite *PipelineTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()

	cfg, err := config.Default()
	suite.Require().NoError(err)

	cfg.Data.RawPath = filepath.Join(suite.dir, "raw")
	cfg.Data.ProcessedPath = filepath.Join(suite.dir, "processed")
	cfg.Data.FeaturesPath = filepath.Join(suite.dir, "features")
	cfg.Data.TargetsPath = filepath.Join(suite.dir, "targets")
	cfg.Models.BasePath = filepath.Join(suite.dir, "models")
	cfg.Logs.LogDir = filepath.Join(suite.dir, "logs")
	cfg.Metrics.Textfile = filepath.Join(suite.dir, "metrics", "floorsheet.prom")
	cfg.Training.BaseEstimators = 4
	cfg.Training.EstimatorIncrement = 2
	suite.cfg = cfg

	gen := mocks.NewFloorSheetGenerator(42)
	_, err = gen.WriteRawSheets(cfg.Data.RawPath, mocks.DefaultConfig())
	suite.Require().NoError(err)
}

func (suite *PipelineTestSuite) newPipeline() *Pipeline {
	p, err := New(suite.cfg, logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.T().Cleanup(func() { _ = p.Close() })

	return p
}

func (suite *PipelineTestSuite) TestRunEndToEnd() {
	p := suite.newPipeline()

	summary, err := p.Run(context.Background())
	suite.Require().NoError(err)

	suite.Equal(30, summary.Ingestion.Processed)
	suite.False(summary.Features.Skipped)
	suite.Equal(90, summary.Features.TechnicalRows)
	suite.Equal(87, summary.Targets.Rows)
	suite.Empty(summary.Targets.ShortSymbols)
	suite.True(summary.Training.Cold)
	suite.Equal(6, summary.Training.Artifact.Forest.Fitted())
	suite.FileExists(suite.cfg.ModelPath(types.HorizonNextDay))
	suite.FileExists(suite.cfg.Metrics.Textfile)
	suite.True(p.Store().Exists(store.TechnicalTable))
	suite.True(p.Store().Exists(store.BrokerTable(types.BrokerModeRelative)))
	suite.True(p.Store().Exists(store.TargetsTable(types.HorizonNextDay)))

	history, err := p.Evaluator().ReadHistory()
	suite.Require().NoError(err)
	suite.Len(history, 1)
	suite.Equal(summary.Training.RunID, history[0].RunID)
}

func (suite *PipelineTestSuite) TestSecondRunSkipsAndGrows() {
	_, err := suite.newPipeline().Run(context.Background())
	suite.Require().NoError(err)

	summary, err := suite.newPipeline().Run(context.Background())
	suite.Require().NoError(err)

	suite.Equal(30, summary.Ingestion.Skipped)
	suite.True(summary.Features.Skipped)
	suite.True(summary.Targets.Skipped)
	suite.False(summary.Training.Cold)
	suite.Equal(8, summary.Training.Artifact.Forest.Fitted())
	suite.Equal(2, summary.Training.Artifact.Runs)
}

func (suite *PipelineTestSuite) TestNewRawFileRebuildsFeatures() {
	_, err := suite.newPipeline().Run(context.Background())
	suite.Require().NoError(err)

	extra := mocks.DefaultConfig()
	extra.StartDate = types.MustParseDate("2024-01-31")
	extra.Days = 1
	_, err = mocks.NewFloorSheetGenerator(9).WriteRawSheets(suite.cfg.Data.RawPath, extra)
	suite.Require().NoError(err)

	summary, err := suite.newPipeline().Run(context.Background())
	suite.Require().NoError(err)
	suite.Equal(1, summary.Ingestion.Processed)
	suite.False(summary.Features.Skipped)
	suite.Equal(93, summary.Features.TechnicalRows)
}

func (suite *PipelineTestSuite) TestRunIsLockedPerHorizon() {
	held, err := lock.Acquire(suite.cfg.LockPath(types.HorizonNextDay))
	suite.Require().NoError(err)
	defer held.Release()

	_, err = suite.newPipeline().Run(context.Background())
	suite.True(errors.HasCode(err, errors.ErrCodeRunLocked))
	suite.NoFileExists(suite.cfg.ModelPath(types.HorizonNextDay))
}

func (suite *PipelineTestSuite) TestSharedStagesWaitForDataLock() {
	held, err := lock.Acquire(suite.cfg.DataLockPath())
	suite.Require().NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = suite.newPipeline().Ingest(ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeRunLocked))

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = held.Release()
	}()

	summary, err := suite.newPipeline().Ingest(context.Background())
	suite.Require().NoError(err)
	suite.Equal(30, summary.Processed)
}

func (suite *PipelineTestSuite) TestTargetsWithoutFeatures() {
	_, err := suite.newPipeline().BuildTargets(context.Background())
	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}

func (suite *PipelineTestSuite) TestFeaturesWithoutCleanSheets() {
	_, err := suite.newPipeline().BuildFeatures(context.Background())
	suite.True(errors.HasCode(err, errors.ErrCodeNoRawData))
}

func (suite *PipelineTestSuite) TestPredictAfterRun() {
	p := suite.newPipeline()
	_, err := p.Run(context.Background())
	suite.Require().NoError(err)

	predictions, err := p.Predictor().PredictBatch(context.Background(), []string{"NABIL", "MISSING"})
	suite.Require().NoError(err)
	suite.Require().Len(predictions, 2)
	suite.Contains([]types.Signal{types.SignalBuy, types.SignalHold, types.SignalSell}, predictions[0].Signal)
	suite.Equal("2024-01-30", predictions[0].FeatureDate)
	suite.Equal(types.SignalUnavailable, predictions[1].Signal)
}

func (suite *PipelineTestSuite) TestInvalidConfig() {
	suite.cfg.Training.BrokerMode = "sideways"

	_, err := New(suite.cfg, logger.NewNopLogger())
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidBrokerMode))
}

func (suite *PipelineTestSuite) TestFailedRunLeavesNoArtifact() {
	suite.Require().NoError(os.RemoveAll(suite.cfg.Data.RawPath))

	_, err := suite.newPipeline().Run(context.Background())
	suite.Error(err)
	suite.NoFileExists(suite.cfg.ModelPath(types.HorizonNextDay))
}
