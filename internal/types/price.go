package types

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tierlab/splitbuy/pkg/errors"
)

// DateLayout is the calendar-day format used for all date keys.
const DateLayout = "2006-01-02"

// PricePoint is a single daily bar. AdjClose is the basis for all indicator
// and trading math; the raw close is used only for live order execution.
type PricePoint struct {
	Date     time.Time       `yaml:"date" json:"date"`
	Open     decimal.Decimal `yaml:"open" json:"open"`
	High     decimal.Decimal `yaml:"high" json:"high"`
	Low      decimal.Decimal `yaml:"low" json:"low"`
	Close    decimal.Decimal `yaml:"close" json:"close"`
	AdjClose decimal.Decimal `yaml:"adj_close" json:"adj_close"`
	Volume   float64         `yaml:"volume" json:"volume"`
}

// DateKey returns the calendar-day key for the bar.
func (p PricePoint) DateKey() string {
	return p.Date.Format(DateLayout)
}

// PriceSeries is an ordered daily price history for one ticker with O(1)
// date-to-index lookup. Construct via NewPriceSeries, which enforces unique,
// strictly increasing dates.
type PriceSeries struct {
	Ticker string
	Points []PricePoint

	index map[string]int
}

// NewPriceSeries validates and indexes an ordered price history.
func NewPriceSeries(ticker string, points []PricePoint) (*PriceSeries, error) {
	if ticker == "" {
		return nil, errors.New(errors.ErrCodeUnknownTicker, "ticker must not be empty")
	}

	index := make(map[string]int, len(points))

	for i, p := range points {
		if i > 0 && !points[i-1].Date.Before(p.Date) {
			return nil, errors.Newf(errors.ErrCodeInvalidSeries,
				"price series for %s is not strictly increasing at index %d (%s)",
				ticker, i, p.DateKey())
		}

		index[p.DateKey()] = i
	}

	return &PriceSeries{
		Ticker: ticker,
		Points: points,
		index:  index,
	}, nil
}

// Len returns the number of trading days in the series.
func (s *PriceSeries) Len() int {
	return len(s.Points)
}

// At returns the bar at index i.
func (s *PriceSeries) At(i int) PricePoint {
	return s.Points[i]
}

// IndexOf returns the index of the bar for the given calendar day.
func (s *PriceSeries) IndexOf(date time.Time) (int, bool) {
	i, ok := s.index[date.Format(DateLayout)]

	return i, ok
}

// Truncate returns a sub-series containing bars [0, end] inclusive. The
// returned series shares the backing array; it is used to hide future bars
// from the recommender (no look-ahead).
func (s *PriceSeries) Truncate(end int) (*PriceSeries, error) {
	if end < 0 || end >= len(s.Points) {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "truncate index %d out of range [0, %d)", end, len(s.Points))
	}

	return NewPriceSeries(s.Ticker, s.Points[:end+1])
}

// RoundMoney applies the fixed-precision monetary rounding rule: round
// half-up to 2 decimal places. It is the only rounding applied to prices and
// cash, and only at storage/presentation boundaries.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
