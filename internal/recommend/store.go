package recommend

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/tierlab/splitbuy/internal/logger"
	"github.com/tierlab/splitbuy/internal/types"
	"github.com/tierlab/splitbuy/pkg/errors"
	"go.uber.org/zap"
)

// Store persists recommendation records in DuckDB, keyed by (ticker, date).
// Saving an existing key overwrites it: recomputation is idempotent, so the
// last writer wins by design of the write, not by locking.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// NewStore opens (or creates) the DuckDB database at dbPath and ensures the
// recommendations table exists.
func NewStore(dbPath string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to open recommendation store", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS recommendations (
			ticker VARCHAR NOT NULL,
			date DATE NOT NULL,
			strategy VARCHAR NOT NULL,
			reason VARCHAR NOT NULL,
			metrics VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (ticker, date)
		)
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to create recommendations table", err)
	}

	return &Store{db: db, log: log}, nil
}

// Save upserts one record.
func (s *Store) Save(ctx context.Context, record types.RecommendationRecord) error {
	metrics, err := json.Marshal(record.Metrics)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to encode metrics", err)
	}

	query, args, err := sq.Insert("recommendations").
		Options("OR REPLACE").
		Columns("ticker", "date", "strategy", "reason", "metrics", "created_at").
		Values(record.Ticker, record.Date.Format(types.DateLayout), record.Strategy, record.Reason, string(metrics), time.Now().UTC()).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build save query", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err,
			"failed to save recommendation for %s at %s", record.Ticker, record.Date.Format(types.DateLayout))
	}

	s.log.Debug("recommendation saved",
		zap.String("ticker", record.Ticker),
		zap.String("date", record.Date.Format(types.DateLayout)),
		zap.String("strategy", record.Strategy),
	)

	return nil
}

// Get loads the record for (ticker, date). The second return value is false
// when no record exists.
func (s *Store) Get(ctx context.Context, ticker string, date time.Time) (types.RecommendationRecord, bool, error) {
	query, args, err := sq.Select("strategy", "reason", "metrics").
		From("recommendations").
		Where(sq.Eq{"ticker": ticker, "date": date.Format(types.DateLayout)}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return types.RecommendationRecord{}, false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build get query", err)
	}

	var strategy, reason, metricsJSON string

	row := s.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&strategy, &reason, &metricsJSON); err != nil {
		if err == sql.ErrNoRows {
			return types.RecommendationRecord{}, false, nil
		}

		return types.RecommendationRecord{}, false, errors.Wrapf(errors.ErrCodeQueryFailed, err,
			"failed to load recommendation for %s at %s", ticker, date.Format(types.DateLayout))
	}

	var metrics types.IndicatorSnapshot
	if err := json.Unmarshal([]byte(metricsJSON), &metrics); err != nil {
		return types.RecommendationRecord{}, false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to decode metrics", err)
	}

	return types.RecommendationRecord{
		Ticker:   ticker,
		Date:     date,
		Strategy: strategy,
		Reason:   reason,
		Metrics:  metrics,
	}, true, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
