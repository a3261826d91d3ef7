package datasource

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/tierlab/splitbuy/internal/types"
	"github.com/tierlab/splitbuy/pkg/errors"
)

type InMemoryStoreTestSuite struct {
	suite.Suite

	store *InMemoryStore
	start time.Time
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreTestSuite))
}

func (suite *InMemoryStoreTestSuite) SetupTest() {
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.ctx = context.Background()

	points := make([]types.PricePoint, 10)
	for i := range points {
		value := decimal.NewFromInt(int64(100 + i))
		points[i] = types.PricePoint{
			Date:     suite.start.AddDate(0, 0, i),
			Open:     value,
			High:     value,
			Low:      value,
			Close:    value,
			AdjClose: value,
			Volume:   1000,
		}
	}

	series, err := types.NewPriceSeries("SOXL", points)
	suite.Require().NoError(err)

	suite.store = NewInMemoryStore(map[string]*types.PriceSeries{"SOXL": series})
}

func (suite *InMemoryStoreTestSuite) TestGetPriceRange() {
	series, err := suite.store.GetPriceRange(suite.ctx, "SOXL", suite.start.AddDate(0, 0, 2), suite.start.AddDate(0, 0, 5))
	suite.Require().NoError(err)
	suite.Equal(4, series.Len())
	suite.True(series.At(0).AdjClose.Equal(decimal.NewFromInt(102)))
}

func (suite *InMemoryStoreTestSuite) TestGetPriceRangeUnknownTicker() {
	_, err := suite.store.GetPriceRange(suite.ctx, "TQQQ", suite.start, suite.start.AddDate(0, 0, 5))
	suite.Error(err)
	suite.Equal(errors.ErrCodeDataNotFound, errors.GetCode(err))
}

func (suite *InMemoryStoreTestSuite) TestGetLatestPricesMostRecentFirst() {
	points, err := suite.store.GetLatestPrices(suite.ctx, "SOXL", 3)
	suite.Require().NoError(err)
	suite.Require().Len(points, 3)

	suite.True(points[0].AdjClose.Equal(decimal.NewFromInt(109)))
	suite.True(points[2].AdjClose.Equal(decimal.NewFromInt(107)))
}

func (suite *InMemoryStoreTestSuite) TestGetLatestPricesLimitClamped() {
	points, err := suite.store.GetLatestPrices(suite.ctx, "SOXL", 100)
	suite.Require().NoError(err)
	suite.Len(points, 10)
}

func (suite *InMemoryStoreTestSuite) TestCount() {
	count, err := suite.store.Count(suite.ctx, "SOXL")
	suite.NoError(err)
	suite.Equal(int64(10), count)

	count, err = suite.store.Count(suite.ctx, "TQQQ")
	suite.NoError(err)
	suite.Equal(int64(0), count)
}

func (suite *InMemoryStoreTestSuite) TestTickers() {
	tickers, err := suite.store.Tickers(suite.ctx)
	suite.NoError(err)
	suite.Equal([]string{"SOXL"}, tickers)
}
