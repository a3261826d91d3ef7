package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/shopspring/decimal"
	"github.com/tierlab/splitbuy/internal/logger"
	"github.com/tierlab/splitbuy/internal/types"
	"github.com/tierlab/splitbuy/pkg/errors"
	"go.uber.org/zap"
)

const priceView = "prices"

// DuckDBStore reads daily bars from parquet files through an in-memory DuckDB
// view. The parquet files are the ones the market data downloader writes; the
// store never modifies them.
type DuckDBStore struct {
	db  *sql.DB
	log *logger.Logger
}

// NewDuckDBStore opens an in-memory DuckDB and maps the parquet glob (for
// example "data/*.parquet") as the price view.
func NewDuckDBStore(parquetGlob string, log *logger.Logger) (*DuckDBStore, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to open duckdb", err)
	}

	view := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet('%s')", priceView, parquetGlob)
	if _, err := db.Exec(view); err != nil {
		db.Close()

		return nil, errors.Wrapf(errors.ErrCodeStoreUnavailable, err, "failed to map parquet files at %s", parquetGlob)
	}

	log.Debug("duckdb price store opened", zap.String("glob", parquetGlob))

	return &DuckDBStore{db: db, log: log}, nil
}

func (s *DuckDBStore) GetPriceRange(ctx context.Context, ticker string, start, end time.Time) (*types.PriceSeries, error) {
	builder := s.selectBars().
		Where(sq.Eq{"ticker": ticker}).
		Where(sq.GtOrEq{"date": start.Format(types.DateLayout)}).
		Where(sq.LtOrEq{"date": end.Format(types.DateLayout)}).
		OrderBy("date ASC")

	points, err := s.queryBars(ctx, builder)
	if err != nil {
		return nil, err
	}

	if len(points) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no bars for %s between %s and %s",
			ticker, start.Format(types.DateLayout), end.Format(types.DateLayout))
	}

	return types.NewPriceSeries(ticker, points)
}

func (s *DuckDBStore) GetAllPrices(ctx context.Context, ticker string) (*types.PriceSeries, error) {
	builder := s.selectBars().
		Where(sq.Eq{"ticker": ticker}).
		OrderBy("date ASC")

	points, err := s.queryBars(ctx, builder)
	if err != nil {
		return nil, err
	}

	if len(points) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no bars for %s", ticker)
	}

	return types.NewPriceSeries(ticker, points)
}

func (s *DuckDBStore) GetLatestPrices(ctx context.Context, ticker string, limit int) ([]types.PricePoint, error) {
	if limit <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "limit must be positive, got %d", limit)
	}

	builder := s.selectBars().
		Where(sq.Eq{"ticker": ticker}).
		OrderBy("date DESC").
		Limit(uint64(limit))

	return s.queryBars(ctx, builder)
}

func (s *DuckDBStore) Count(ctx context.Context, ticker string) (int64, error) {
	query, args, err := sq.Select("COUNT(*)").
		From(priceView).
		Where(sq.Eq{"ticker": ticker}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to count bars for %s", ticker)
	}

	return count, nil
}

func (s *DuckDBStore) Tickers(ctx context.Context) ([]string, error) {
	query, _, err := sq.Select("DISTINCT ticker").
		From(priceView).
		OrderBy("ticker ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build tickers query", err)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to list tickers", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan ticker", err)
		}

		tickers = append(tickers, ticker)
	}

	return tickers, rows.Err()
}

func (s *DuckDBStore) Close() error {
	return s.db.Close()
}

func (s *DuckDBStore) selectBars() sq.SelectBuilder {
	return sq.Select("date", "open", "high", "low", "close", "adj_close", "volume").
		From(priceView).
		PlaceholderFormat(sq.Question)
}

func (s *DuckDBStore) queryBars(ctx context.Context, builder sq.SelectBuilder) ([]types.PricePoint, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build bar query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err)
	}
	defer rows.Close()

	var points []types.PricePoint

	for rows.Next() {
		var (
			date                              time.Time
			open, high, low, close_, adjClose float64
			volume                            float64
		)

		if err := rows.Scan(&date, &open, &high, &low, &close_, &adjClose, &volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
		}

		points = append(points, types.PricePoint{
			Date:     date,
			Open:     decimal.NewFromFloat(open),
			High:     decimal.NewFromFloat(high),
			Low:      decimal.NewFromFloat(low),
			Close:    decimal.NewFromFloat(close_),
			AdjClose: decimal.NewFromFloat(adjClose),
			Volume:   volume,
		})
	}

	return points, rows.Err()
}
