// Package datasource loads daily price history for the backtest, the
// recommender and the live order flow. The production store reads the parquet
// files produced by the market data downloader through DuckDB; the in-memory
// store backs tests and precomputed batches.
package datasource

import (
	"context"
	"time"

	"github.com/tierlab/splitbuy/internal/types"
)

// PriceStore is the read interface over daily bars.
type PriceStore interface {
	// GetPriceRange returns the bars for ticker with dates in [start, end],
	// oldest first.
	GetPriceRange(ctx context.Context, ticker string, start, end time.Time) (*types.PriceSeries, error)
	// GetAllPrices returns every bar for ticker, oldest first.
	GetAllPrices(ctx context.Context, ticker string) (*types.PriceSeries, error)
	// GetLatestPrices returns up to limit bars ending at the most recent
	// trading day, most recent first.
	GetLatestPrices(ctx context.Context, ticker string, limit int) ([]types.PricePoint, error)
	// Count returns the number of stored bars for ticker.
	Count(ctx context.Context, ticker string) (int64, error)
	// Tickers lists the distinct tickers with stored bars.
	Tickers(ctx context.Context) ([]string, error)
	// Close releases the underlying resources.
	Close() error
}
