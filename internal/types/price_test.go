package types

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/tierlab/splitbuy/pkg/errors"
)

type PriceSeriesTestSuite struct {
	suite.Suite
}

func TestPriceSeriesSuite(t *testing.T) {
	suite.Run(t, new(PriceSeriesTestSuite))
}

func (suite *PriceSeriesTestSuite) makePoints(prices ...string) []PricePoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]PricePoint, len(prices))

	for i, p := range prices {
		value := decimal.RequireFromString(p)
		points[i] = PricePoint{
			Date:     start.AddDate(0, 0, i),
			Open:     value,
			High:     value,
			Low:      value,
			Close:    value,
			AdjClose: value,
			Volume:   1000,
		}
	}

	return points
}

func (suite *PriceSeriesTestSuite) TestNewPriceSeries() {
	series, err := NewPriceSeries("SOXL", suite.makePoints("10", "11", "12"))
	suite.NoError(err)
	suite.Equal(3, series.Len())

	idx, ok := series.IndexOf(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	suite.True(ok)
	suite.Equal(1, idx)
}

func (suite *PriceSeriesTestSuite) TestNewPriceSeriesRejectsUnordered() {
	points := suite.makePoints("10", "11", "12")
	points[2].Date = points[0].Date

	_, err := NewPriceSeries("SOXL", points)
	suite.Error(err)
	suite.Equal(errors.ErrCodeInvalidSeries, errors.GetCode(err))
}

func (suite *PriceSeriesTestSuite) TestNewPriceSeriesRejectsEmptyTicker() {
	_, err := NewPriceSeries("", suite.makePoints("10"))
	suite.Error(err)
}

func (suite *PriceSeriesTestSuite) TestTruncateHidesFutureBars() {
	series, err := NewPriceSeries("SOXL", suite.makePoints("10", "11", "12", "13"))
	suite.Require().NoError(err)

	truncated, err := series.Truncate(1)
	suite.NoError(err)
	suite.Equal(2, truncated.Len())

	_, ok := truncated.IndexOf(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	suite.False(ok)
}

func (suite *PriceSeriesTestSuite) TestTruncateOutOfRange() {
	series, err := NewPriceSeries("SOXL", suite.makePoints("10", "11"))
	suite.Require().NoError(err)

	_, err = series.Truncate(5)
	suite.Error(err)

	_, err = series.Truncate(-1)
	suite.Error(err)
}

func (suite *PriceSeriesTestSuite) TestRoundMoney() {
	suite.True(RoundMoney(decimal.RequireFromString("10.005")).Equal(decimal.RequireFromString("10.01")))
	suite.True(RoundMoney(decimal.RequireFromString("10.004")).Equal(decimal.RequireFromString("10.00")))
	suite.True(RoundMoney(decimal.RequireFromString("99.994")).Equal(decimal.RequireFromString("99.99")))
}
