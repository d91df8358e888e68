// Package predictor turns the latest persisted features of a symbol into a trading signal using
// the stored model of a horizon.
package predictor

import (
	"context"
	"strings"
	"time"

	"github.com/rxtech-lab/floorsheet-signals/internal/config"
	"github.com/rxtech-lab/floorsheet-signals/internal/logger"
	"github.com/rxtech-lab/floorsheet-signals/internal/model"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"go.uber.org/zap"
)

// FeatureSource reads the feature rows of the most recent trading day.
type FeatureSource interface {
	ReadLatestFeatures(ctx context.Context, mode types.BrokerMode, symbols []string) ([]types.FeatureRow, error)
}

type ArtifactLoader interface {
	Load() (*model.Artifact, error)
}

type Predictor struct {
	horizon   types.Horizon
	source    FeatureSource
	artifacts ArtifactLoader
	log       *logger.Logger
	now       func() time.Time
}

func NewPredictor(cfg *config.Config, source FeatureSource, artifacts ArtifactLoader, log *logger.Logger) *Predictor {
	return &Predictor{
		horizon:   cfg.Training.Horizon,
		source:    source,
		artifacts: artifacts,
		log:       log.Named("predictor"),
		now:       time.Now,
	}
}

// Predict returns the signal of one symbol.
func (p *Predictor) Predict(ctx context.Context, symbol string) (types.Prediction, error) {
	predictions, err := p.PredictBatch(ctx, []string{symbol})
	if err != nil {
		return types.Prediction{}, err
	}

	return predictions[0], nil
}

// PredictBatch returns one prediction per requested symbol, in request order. Symbols without
// features on the latest trading day get SignalUnavailable.
func (p *Predictor) PredictBatch(ctx context.Context, symbols []string) ([]types.Prediction, error) {
	if len(symbols) == 0 {
		return nil, errors.New(errors.ErrCodeMissingParameter, "no symbols to predict")
	}

	normalized := make([]string, len(symbols))
	for i, s := range symbols {
		normalized[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	artifact, err := p.artifacts.Load()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeModelUnavailable, err, "no usable model for horizon %s", p.horizon)
	}

	rows, err := p.source.ReadLatestFeatures(ctx, artifact.BrokerMode, normalized)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeDataNotFound) {
			return nil, errors.Wrap(errors.ErrCodeFeaturesUnavailable, "no persisted features", err)
		}

		return nil, err
	}

	bySymbol := make(map[string]types.FeatureRow, len(rows))
	for _, row := range rows {
		bySymbol[row.Technical.Symbol] = row
	}

	now := p.now()
	out := make([]types.Prediction, len(normalized))

	for i, symbol := range normalized {
		row, ok := bySymbol[symbol]
		if !ok {
			out[i] = types.Prediction{
				Symbol:       symbol,
				Signal:       types.SignalUnavailable,
				Timestamp:    now,
				ModelVersion: artifact.Version(),
			}

			continue
		}

		out[i] = p.predictRow(artifact, row, now)
	}

	return out, nil
}

func (p *Predictor) predictRow(artifact *model.Artifact, row types.FeatureRow, now time.Time) types.Prediction {
	values := row.Values()

	vector, rec := artifact.Schema.Reconcile(values)
	if !rec.Clean() {
		p.log.Warn("Feature set differs from model schema",
			zap.String("symbol", row.Technical.Symbol),
			zap.Strings("missing", rec.Missing),
			zap.Strings("unexpected", rec.Unexpected),
		)
	}

	proba := artifact.Forest.PredictProba(vector)
	best := 0

	for c, v := range proba {
		if v > proba[best] {
			best = c
		}
	}

	signal, err := artifact.Labels.Decode(best)
	if err != nil {
		signal = types.SignalUnavailable
	}

	probabilities := make(map[types.Signal]float64, len(proba))
	for c, v := range proba {
		probabilities[artifact.Labels.Classes[c]] = v
	}

	features := make(map[string]float64, len(artifact.Schema.Columns))
	for i, col := range artifact.Schema.Columns {
		features[col] = vector[i]
	}

	return types.Prediction{
		Symbol:        row.Technical.Symbol,
		Signal:        signal,
		Confidence:    proba[best],
		Probabilities: probabilities,
		Features:      features,
		FeatureDate:   row.Technical.Date.String(),
		Timestamp:     now,
		ModelVersion:  artifact.Version(),
	}
}
