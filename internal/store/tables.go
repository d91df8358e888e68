package store

import (
	"context"
	"time"

	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
)

var technicalColumns = []column{
	{"date", "TIMESTAMP"},
	{"symbol", "VARCHAR"},
	{"close", "DOUBLE"},
	{"ma_5", "DOUBLE"},
	{"std_14", "DOUBLE"},
	{"rsi_14", "DOUBLE"},
	{"volatility", "DOUBLE"},
	{"daily_return", "DOUBLE"},
	{"volume", "BIGINT"},
}

var brokerActivityColumns = []column{
	{"date", "TIMESTAMP"},
	{"symbol", "VARCHAR"},
	{"broker", "VARCHAR"},
	{"buy_volume", "BIGINT"},
	{"sell_volume", "BIGINT"},
	{"net_strength", "DOUBLE"},
}

var brokerColumns = []column{
	{"date", "TIMESTAMP"},
	{"symbol", "VARCHAR"},
	{"broker_hhi", "DOUBLE"},
	{"large_trades_count", "BIGINT"},
	{"active_brokers", "INTEGER"},
}

var targetColumns = []column{
	{"date", "TIMESTAMP"},
	{"symbol", "VARCHAR"},
	{"target", "VARCHAR"},
	{"forward_return", "DOUBLE"},
}

func names(columns []column) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.name
	}

	return out
}

// WriteTechnical replaces the technical feature table.
func (s *Store) WriteTechnical(ctx context.Context, rows []types.TechnicalFeature) error {
	return s.writeTable(ctx, TechnicalTable, technicalColumns, "date, symbol", len(rows), func(i int) []any {
		r := rows[i]

		return []any{r.Date.Time, r.Symbol, r.Close, r.MA5, r.STD14, r.RSI14, r.Volatility, r.DailyReturn, r.Volume}
	})
}

// ReadTechnical reads technical features ordered by date then symbol.
func (s *Store) ReadTechnical(ctx context.Context, q Query) ([]types.TechnicalFeature, error) {
	builder, err := s.selectFrom(TechnicalTable, q, names(technicalColumns)...)
	if err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, builder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.TechnicalFeature

	for rows.Next() {
		var (
			date time.Time
			r    types.TechnicalFeature
		)

		if err := rows.Scan(&date, &r.Symbol, &r.Close, &r.MA5, &r.STD14, &r.RSI14, &r.Volatility, &r.DailyReturn, &r.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan technical row", err)
		}

		r.Date = toDate(date)
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read technical rows", err)
	}

	return out, nil
}

// WriteBrokerFeatures replaces both broker tables of the features' mode.
func (s *Store) WriteBrokerFeatures(ctx context.Context, features types.BrokerFeatures) error {
	activity := features.Activity
	if err := s.writeTable(ctx, BrokerActivityTable(features.Mode), brokerActivityColumns, "date, symbol, broker", len(activity), func(i int) []any {
		r := activity[i]

		return []any{r.Date.Time, r.Symbol, r.Broker, r.BuyVolume, r.SellVolume, r.NetStrength}
	}); err != nil {
		return err
	}

	concentration := features.Concentration

	return s.writeTable(ctx, BrokerTable(features.Mode), brokerColumns, "date, symbol", len(concentration), func(i int) []any {
		r := concentration[i]

		return []any{r.Date.Time, r.Symbol, r.BrokerHHI, r.LargeTradesCount, r.ActiveBrokers}
	})
}

// ReadBrokerActivity reads per-broker activity ordered by date, symbol, broker.
func (s *Store) ReadBrokerActivity(ctx context.Context, mode types.BrokerMode, q Query) ([]types.BrokerActivity, error) {
	builder, err := s.selectFrom(BrokerActivityTable(mode), q, names(brokerActivityColumns)...)
	if err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, builder.OrderBy("broker"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.BrokerActivity

	for rows.Next() {
		var (
			date time.Time
			r    types.BrokerActivity
		)

		if err := rows.Scan(&date, &r.Symbol, &r.Broker, &r.BuyVolume, &r.SellVolume, &r.NetStrength); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan broker activity row", err)
		}

		r.Date = toDate(date)
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read broker activity rows", err)
	}

	return out, nil
}

// ReadBrokerConcentration reads per-(date, symbol) broker concentration.
func (s *Store) ReadBrokerConcentration(ctx context.Context, mode types.BrokerMode, q Query) ([]types.BrokerConcentration, error) {
	builder, err := s.selectFrom(BrokerTable(mode), q, names(brokerColumns)...)
	if err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, builder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.BrokerConcentration

	for rows.Next() {
		var (
			date time.Time
			r    types.BrokerConcentration
		)

		if err := rows.Scan(&date, &r.Symbol, &r.BrokerHHI, &r.LargeTradesCount, &r.ActiveBrokers); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan broker row", err)
		}

		r.Date = toDate(date)
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read broker rows", err)
	}

	return out, nil
}

// WriteTargets replaces the label table of a horizon.
func (s *Store) WriteTargets(ctx context.Context, horizon types.Horizon, labels []types.TargetLabel) error {
	return s.writeTable(ctx, TargetsTable(horizon), targetColumns, "date, symbol", len(labels), func(i int) []any {
		r := labels[i]

		return []any{r.Date.Time, r.Symbol, string(r.Target), r.ForwardReturn}
	})
}

// ReadTargets reads the labels of a horizon.
func (s *Store) ReadTargets(ctx context.Context, horizon types.Horizon, q Query) ([]types.TargetLabel, error) {
	builder, err := s.selectFrom(TargetsTable(horizon), q, names(targetColumns)...)
	if err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, builder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.TargetLabel

	for rows.Next() {
		var (
			date   time.Time
			target string
			r      types.TargetLabel
		)

		if err := rows.Scan(&date, &r.Symbol, &target, &r.ForwardReturn); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan target row", err)
		}

		r.Date = toDate(date)
		r.Target = types.Signal(target)
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read target rows", err)
	}

	return out, nil
}
