package datasource

import (
	"context"
	"sort"
	"time"

	"github.com/tierlab/splitbuy/internal/types"
	"github.com/tierlab/splitbuy/pkg/errors"
)

// InMemoryStore serves price series held in memory. It backs tests and batch
// precomputation runs where the series are loaded once up front.
type InMemoryStore struct {
	series map[string]*types.PriceSeries
}

// NewInMemoryStore creates a store over the given series, keyed by ticker.
func NewInMemoryStore(series map[string]*types.PriceSeries) *InMemoryStore {
	if series == nil {
		series = make(map[string]*types.PriceSeries)
	}

	return &InMemoryStore{series: series}
}

func (s *InMemoryStore) GetPriceRange(_ context.Context, ticker string, start, end time.Time) (*types.PriceSeries, error) {
	full, ok := s.series[ticker]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no bars for %s", ticker)
	}

	var points []types.PricePoint
	for i := 0; i < full.Len(); i++ {
		point := full.At(i)
		if point.Date.Before(start) || point.Date.After(end) {
			continue
		}

		points = append(points, point)
	}

	if len(points) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no bars for %s between %s and %s",
			ticker, start.Format(types.DateLayout), end.Format(types.DateLayout))
	}

	return types.NewPriceSeries(ticker, points)
}

func (s *InMemoryStore) GetAllPrices(_ context.Context, ticker string) (*types.PriceSeries, error) {
	full, ok := s.series[ticker]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no bars for %s", ticker)
	}

	return full, nil
}

func (s *InMemoryStore) GetLatestPrices(_ context.Context, ticker string, limit int) ([]types.PricePoint, error) {
	if limit <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "limit must be positive, got %d", limit)
	}

	full, ok := s.series[ticker]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no bars for %s", ticker)
	}

	n := full.Len()
	if limit > n {
		limit = n
	}

	points := make([]types.PricePoint, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		points = append(points, full.At(i))
	}

	return points, nil
}

func (s *InMemoryStore) Count(_ context.Context, ticker string) (int64, error) {
	full, ok := s.series[ticker]
	if !ok {
		return 0, nil
	}

	return int64(full.Len()), nil
}

func (s *InMemoryStore) Tickers(_ context.Context) ([]string, error) {
	tickers := make([]string, 0, len(s.series))
	for ticker := range s.series {
		tickers = append(tickers, ticker)
	}

	sort.Strings(tickers)

	return tickers, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
