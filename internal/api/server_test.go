package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rxtech-lab/floorsheet-signals/internal/logger"
	"github.com/rxtech-lab/floorsheet-signals/internal/metrics"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type fakePredictor struct {
	err error
}

func (f *fakePredictor) Predict(_ context.Context, symbol string) (types.Prediction, error) {
	if f.err != nil {
		return types.Prediction{}, f.err
	}

	return types.Prediction{Symbol: symbol, Signal: types.SignalBuy, Confidence: 0.7}, nil
}

func (f *fakePredictor) PredictBatch(ctx context.Context, symbols []string) ([]types.Prediction, error) {
	out := make([]types.Prediction, 0, len(symbols))

	for _, s := range symbols {
		p, err := f.Predict(ctx, s)
		if err != nil {
			return nil, err
		}

		out = append(out, p)
	}

	return out, nil
}

type fakeHistory struct {
	rows []types.EvaluationHistoryRow
}

func (f *fakeHistory) ReadHistory() ([]types.EvaluationHistoryRow, error) {
	return f.rows, nil
}

type ServerTestSuite struct {
	suite.Suite
	predictor *fakePredictor
	history   *fakeHistory
	server    *Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (suite *ServerTestSuite) SetupTest() {
	suite.predictor = &fakePredictor{}
	suite.history = &fakeHistory{rows: []types.EvaluationHistoryRow{
		{RunID: "a", Horizon: "next_day", Accuracy: 0.5},
		{RunID: "b", Horizon: "weekly", Accuracy: 0.6},
		{RunID: "c", Horizon: "next_day", Accuracy: 0.7},
	}}
	suite.server = NewServer(types.HorizonNextDay, suite.predictor, suite.history, metrics.New(), logger.NewNopLogger())
}

func (suite *ServerTestSuite) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	suite.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec
}

func (suite *ServerTestSuite) TestHealth() {
	rec := suite.get("/healthz")
	suite.Equal(http.StatusOK, rec.Code)
	suite.Contains(rec.Body.String(), `"status":"ok"`)
}

func (suite *ServerTestSuite) TestPrediction() {
	rec := suite.get("/api/v1/predictions/NABIL")
	suite.Require().Equal(http.StatusOK, rec.Code)

	var p types.Prediction
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &p))
	suite.Equal("NABIL", p.Symbol)
	suite.Equal(types.SignalBuy, p.Signal)
}

func (suite *ServerTestSuite) TestBatchPredictions() {
	rec := suite.get("/api/v1/predictions?symbols=NABIL,%20NICA,,")
	suite.Require().Equal(http.StatusOK, rec.Code)

	var out []types.Prediction
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	suite.Len(out, 2)
	suite.Equal("NICA", out[1].Symbol)
}

func (suite *ServerTestSuite) TestBatchPredictionsRequiresSymbols() {
	rec := suite.get("/api/v1/predictions")
	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *ServerTestSuite) TestModelUnavailable() {
	suite.predictor.err = errors.New(errors.ErrCodeModelUnavailable, "no model")

	rec := suite.get("/api/v1/predictions/NABIL")
	suite.Equal(http.StatusServiceUnavailable, rec.Code)

	var body errorResponse
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	suite.Equal(int(errors.ErrCodeModelUnavailable), body.Code)
}

func (suite *ServerTestSuite) TestEvaluations() {
	rec := suite.get("/api/v1/evaluations?horizon=next_day&limit=1")
	suite.Require().Equal(http.StatusOK, rec.Code)

	var rows []types.EvaluationHistoryRow
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &rows))
	suite.Require().Len(rows, 1)
	suite.Equal("c", rows[0].RunID)

	suite.Equal(http.StatusBadRequest, suite.get("/api/v1/evaluations?limit=x").Code)
}

func (suite *ServerTestSuite) TestEmptyEvaluations() {
	suite.history.rows = nil

	rec := suite.get("/api/v1/evaluations")
	suite.Equal(http.StatusOK, rec.Code)
	suite.JSONEq(`[]`, rec.Body.String())
}

func (suite *ServerTestSuite) TestMetricsCountPredictions() {
	suite.get("/api/v1/predictions/NABIL")

	rec := suite.get("/metrics")
	suite.Equal(http.StatusOK, rec.Code)
	suite.Contains(rec.Body.String(), `floorsheet_predictions_total{horizon="next_day",signal="Buy"} 1`)
}
