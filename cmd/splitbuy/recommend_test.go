package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/tierlab/splitbuy/internal/indicator"
	"github.com/tierlab/splitbuy/mocks"
	"github.com/tierlab/splitbuy/pkg/errors"
	"go.uber.org/mock/gomock"
)

type PrecomputeTestSuite struct {
	suite.Suite
}

func TestPrecomputeSuite(t *testing.T) {
	suite.Run(t, new(PrecomputeTestSuite))
}

func (suite *PrecomputeTestSuite) TestCollectJobsSkipsShortHistory() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	gen := mocks.NewDataGenerator(42)
	config := mocks.DefaultConfig()
	config.Ticker = "SOXL"
	config.Count = 100

	series, err := gen.GenerateSeries(config)
	suite.Require().NoError(err)

	store := mocks.NewMockPriceStore(ctrl)
	store.EXPECT().GetAllPrices(gomock.Any(), "SOXL").Return(series, nil)

	jobs, err := collectJobs(context.Background(), store, []string{"SOXL"},
		series.At(0).Date, series.At(series.Len()-1).Date)
	suite.Require().NoError(err)

	// Days without the minimum trailing history produce no jobs. The lookback
	// counts the reference day, so index MinLookback-1 is the first job.
	suite.Len(jobs, series.Len()-indicator.MinLookback+1)

	for _, job := range jobs {
		suite.GreaterOrEqual(job.idx, indicator.MinLookback-1)
	}
	suite.Equal(indicator.MinLookback-1, jobs[0].idx)
}

func (suite *PrecomputeTestSuite) TestCollectJobsLimitsToDateRange() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	gen := mocks.NewDataGenerator(42)
	config := mocks.DefaultConfig()
	config.Ticker = "SOXL"
	config.Count = 100

	series, err := gen.GenerateSeries(config)
	suite.Require().NoError(err)

	store := mocks.NewMockPriceStore(ctrl)
	store.EXPECT().GetAllPrices(gomock.Any(), "SOXL").Return(series, nil)

	start := series.At(70).Date
	end := series.At(79).Date

	jobs, err := collectJobs(context.Background(), store, []string{"SOXL"}, start, end)
	suite.Require().NoError(err)
	suite.Len(jobs, 10)

	for _, job := range jobs {
		date := series.At(job.idx).Date
		suite.False(date.Before(start))
		suite.False(date.After(end))
	}
}

func (suite *PrecomputeTestSuite) TestCollectJobsPropagatesStoreErrors() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	storeErr := errors.New(errors.ErrCodeDataNotFound, "no data for NOPE")

	store := mocks.NewMockPriceStore(ctrl)
	store.EXPECT().GetAllPrices(gomock.Any(), "NOPE").Return(nil, storeErr)

	_, err := collectJobs(context.Background(), store, []string{"NOPE"},
		mocks.DefaultConfig().StartDate, mocks.DefaultConfig().StartDate)
	suite.ErrorIs(err, storeErr)
}
