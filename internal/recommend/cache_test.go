package recommend

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/tierlab/splitbuy/internal/types"
	"github.com/tierlab/splitbuy/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite

	cache *Cache
	date  time.Time
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func (suite *CacheTestSuite) SetupTest() {
	suite.cache = NewCache()
	suite.date = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
}

func (suite *CacheTestSuite) record(strategy string) types.RecommendationRecord {
	return types.RecommendationRecord{
		Ticker:   "SOXL",
		Date:     suite.date,
		Strategy: strategy,
		Reason:   "test",
	}
}

func (suite *CacheTestSuite) TestGetOrComputeMemoizes() {
	calls := 0
	compute := func() (types.RecommendationRecord, error) {
		calls++

		return suite.record(types.StrategyPro2), nil
	}

	first, err := suite.cache.GetOrCompute("SOXL", suite.date, compute)
	suite.NoError(err)

	second, err := suite.cache.GetOrCompute("SOXL", suite.date, compute)
	suite.NoError(err)

	suite.Equal(first, second)
	suite.Equal(1, calls)
	suite.Equal(1, suite.cache.Len())
}

func (suite *CacheTestSuite) TestGetOrComputeConcurrentSingleFlight() {
	var calls atomic.Int32

	compute := func() (types.RecommendationRecord, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)

		return suite.record(types.StrategyPro3), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			record, err := suite.cache.GetOrCompute("SOXL", suite.date, compute)
			suite.NoError(err)
			suite.Equal(types.StrategyPro3, record.Strategy)
		}()
	}
	wg.Wait()

	suite.Equal(int32(1), calls.Load())
}

func (suite *CacheTestSuite) TestErrorsAreNotCached() {
	calls := 0
	failing := func() (types.RecommendationRecord, error) {
		calls++

		return types.RecommendationRecord{}, errors.New(errors.ErrCodeRecommendationFailed, "boom")
	}

	_, err := suite.cache.GetOrCompute("SOXL", suite.date, failing)
	suite.Error(err)
	suite.Equal(0, suite.cache.Len())

	_, err = suite.cache.GetOrCompute("SOXL", suite.date, failing)
	suite.Error(err)
	suite.Equal(2, calls)
}

func (suite *CacheTestSuite) TestKeysAreTickerAndDateScoped() {
	suite.cache.Put(suite.record(types.StrategyPro1))

	_, ok := suite.cache.Get("SOXL", suite.date.AddDate(0, 0, 1))
	suite.False(ok)

	_, ok = suite.cache.Get("TQQQ", suite.date)
	suite.False(ok)

	record, ok := suite.cache.Get("SOXL", suite.date)
	suite.True(ok)
	suite.Equal(types.StrategyPro1, record.Strategy)
}

func (suite *CacheTestSuite) TestClear() {
	suite.cache.Put(suite.record(types.StrategyPro1))
	suite.Equal(1, suite.cache.Len())

	suite.cache.Clear()
	suite.Equal(0, suite.cache.Len())
}
