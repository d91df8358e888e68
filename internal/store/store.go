// Package store persists the derived tables as Parquet files through an in-memory DuckDB instance.
// Every table is staged in DuckDB, copied to a temporary Parquet file and renamed into place, and
// accompanied by a JSON manifest describing what it was built from.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/floorsheet-signals/internal/config"
	"github.com/rxtech-lab/floorsheet-signals/internal/logger"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"go.uber.org/zap"
)

// Query narrows a table read. Empty Symbols means every symbol.
type Query struct {
	Symbols []string
	From    optional.Option[types.Date]
	To      optional.Option[types.Date]
}

type Store struct {
	db          *sql.DB
	sq          squirrel.StatementBuilderType
	featuresDir string
	targetsDir  string
	log         *logger.Logger
	mu          sync.Mutex
}

func NewStore(cfg *config.Config, log *logger.Logger) (*Store, error) {
	return Open(cfg.Data.FeaturesPath, cfg.Data.TargetsPath, log)
}

// Open creates a store writing features under featuresDir and targets under targetsDir.
func Open(featuresDir, targetsDir string, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to open DuckDB connection", err)
	}

	return &Store{
		db:          db,
		sq:          squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		featuresDir: featuresDir,
		targetsDir:  targetsDir,
		log:         log.Named("store"),
		mu:          sync.Mutex{},
	}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil

	return nil
}

// Table names. Broker tables are per net-strength mode, targets per horizon.
const TechnicalTable = "technical"

func BrokerActivityTable(mode types.BrokerMode) string {
	return "broker_activity_" + string(mode)
}

func BrokerTable(mode types.BrokerMode) string {
	return "broker_" + string(mode)
}

func TargetsTable(h types.Horizon) string {
	return "targets_" + string(h)
}

// Path returns the Parquet file of a table.
func (s *Store) Path(table string) string {
	dir := s.featuresDir
	if strings.HasPrefix(table, "targets_") {
		dir = s.targetsDir
	}

	return filepath.Join(dir, table+".parquet")
}

// Exists reports whether the table has been written.
func (s *Store) Exists(table string) bool {
	_, err := os.Stat(s.Path(table))

	return err == nil
}

type column struct {
	name string
	kind string
}

// writeTable stages rows in DuckDB and swaps the table's Parquet file atomically.
func (s *Store) writeTable(ctx context.Context, table string, columns []column, orderBy string, n int, row func(i int) []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(table)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to create directory for %s", table)
	}

	stage := "stage_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	defs := make([]string, len(columns))
	names := make([]string, len(columns))
	placeholders := make([]string, len(columns))

	for i, c := range columns {
		defs[i] = c.name + " " + c.kind
		names[i] = c.name
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %s (%s)`, stage, strings.Join(defs, ", "))); err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to create staging table for %s", table)
	}

	defer func() {
		if _, err := s.db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, stage)); err != nil {
			s.log.Warn("Failed to drop staging table", zap.String("table", stage), zap.Error(err))
		}
	}()

	if err := s.insertRows(ctx, stage, names, placeholders, n, row); err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to stage %s", table)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+table+".tmp-"+uuid.NewString()+".parquet")

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		COPY (SELECT * FROM %s ORDER BY %s)
		TO '%s' (FORMAT PARQUET)
	`, stage, orderBy, escapeLiteral(tmp)))
	if err != nil {
		_ = os.Remove(tmp)

		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to export %s to parquet", table)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)

		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to move %s into place", table)
	}

	s.log.Debug("Wrote table", zap.String("table", table), zap.Int("rows", n), zap.String("path", path))

	return nil
}

func (s *Store) insertRows(ctx context.Context, stage string, names, placeholders []string, n int, row func(i int) []any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		stage, strings.Join(names, ", "), strings.Join(placeholders, ", ")))
	if err != nil {
		_ = tx.Rollback()

		return err
	}

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()

			return err
		}
	}

	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()

		return err
	}

	return tx.Commit()
}

// selectFrom builds a read over a table's Parquet file with the query's filters applied.
func (s *Store) selectFrom(table string, q Query, columns ...string) (squirrel.SelectBuilder, error) {
	path := s.Path(table)
	if _, err := os.Stat(path); err != nil {
		return squirrel.SelectBuilder{}, errors.Wrapf(errors.ErrCodeDataNotFound, err, "table %s has not been written", table)
	}

	builder := s.sq.
		Select(columns...).
		From(fmt.Sprintf("read_parquet('%s')", escapeLiteral(path))).
		OrderBy("date", "symbol")

	return applyQuery(builder, q), nil
}

func applyQuery(builder squirrel.SelectBuilder, q Query) squirrel.SelectBuilder {
	if len(q.Symbols) > 0 {
		builder = builder.Where(squirrel.Eq{"symbol": q.Symbols})
	}

	if q.From.IsSome() {
		builder = builder.Where(squirrel.GtOrEq{"date": q.From.Unwrap().Time})
	}

	if q.To.IsSome() {
		builder = builder.Where(squirrel.LtOrEq{"date": q.To.Unwrap().Time})
	}

	return builder
}

func (s *Store) query(ctx context.Context, builder squirrel.SelectBuilder) (*sql.Rows, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to execute query", err)
	}

	return rows, nil
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func toDate(t time.Time) types.Date {
	return types.NewDate(t)
}
