package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
)

var featureRowColumns = []string{
	"t.date", "t.symbol", "t.close", "t.ma_5", "t.std_14", "t.rsi_14", "t.volatility", "t.daily_return", "t.volume",
	"b.broker_hhi", "b.large_trades_count", "b.active_brokers",
}

// featureJoin inner-joins the technical table with the broker table of a mode on (date, symbol).
func (s *Store) featureJoin(mode types.BrokerMode) (squirrel.SelectBuilder, error) {
	for _, table := range []string{TechnicalTable, BrokerTable(mode)} {
		if !s.Exists(table) {
			return squirrel.SelectBuilder{}, errors.Newf(errors.ErrCodeDataNotFound, "table %s has not been written", table)
		}
	}

	return s.sq.
		Select(featureRowColumns...).
		From(fmt.Sprintf("read_parquet('%s') t", escapeLiteral(s.Path(TechnicalTable)))).
		Join(fmt.Sprintf("read_parquet('%s') b ON t.date = b.date AND t.symbol = b.symbol", escapeLiteral(s.Path(BrokerTable(mode))))).
		OrderBy("t.date", "t.symbol"), nil
}

// ReadFeatureRows reads technical and broker features present for the same (date, symbol).
func (s *Store) ReadFeatureRows(ctx context.Context, mode types.BrokerMode, q Query) ([]types.FeatureRow, error) {
	builder, err := s.featureJoin(mode)
	if err != nil {
		return nil, err
	}

	if len(q.Symbols) > 0 {
		builder = builder.Where(squirrel.Eq{"t.symbol": q.Symbols})
	}

	if q.From.IsSome() {
		builder = builder.Where(squirrel.GtOrEq{"t.date": q.From.Unwrap().Time})
	}

	if q.To.IsSome() {
		builder = builder.Where(squirrel.LtOrEq{"t.date": q.To.Unwrap().Time})
	}

	return s.scanFeatureRows(ctx, builder)
}

// ReadLatestFeatures reads the feature rows of the most recent date that has both technical and
// broker features, restricted to symbols when given.
func (s *Store) ReadLatestFeatures(ctx context.Context, mode types.BrokerMode, symbols []string) ([]types.FeatureRow, error) {
	builder, err := s.featureJoin(mode)
	if err != nil {
		return nil, err
	}

	sub, _, err := s.sq.
		Select("max(t.date)").
		From(fmt.Sprintf("read_parquet('%s') t", escapeLiteral(s.Path(TechnicalTable)))).
		Join(fmt.Sprintf("read_parquet('%s') b ON t.date = b.date AND t.symbol = b.symbol", escapeLiteral(s.Path(BrokerTable(mode))))).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build latest date query", err)
	}

	builder = builder.Where(fmt.Sprintf("t.date = (%s)", sub))

	if len(symbols) > 0 {
		builder = builder.Where(squirrel.Eq{"t.symbol": symbols})
	}

	return s.scanFeatureRows(ctx, builder)
}

func (s *Store) scanFeatureRows(ctx context.Context, builder squirrel.SelectBuilder) ([]types.FeatureRow, error) {
	rows, err := s.query(ctx, builder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.FeatureRow

	for rows.Next() {
		var (
			date time.Time
			t    types.TechnicalFeature
			b    types.BrokerConcentration
		)

		if err := rows.Scan(&date, &t.Symbol, &t.Close, &t.MA5, &t.STD14, &t.RSI14, &t.Volatility, &t.DailyReturn, &t.Volume,
			&b.BrokerHHI, &b.LargeTradesCount, &b.ActiveBrokers); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan feature row", err)
		}

		t.Date = toDate(date)
		b.Date = t.Date
		b.Symbol = t.Symbol
		out = append(out, types.FeatureRow{Technical: t, Broker: b})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read feature rows", err)
	}

	return out, nil
}
