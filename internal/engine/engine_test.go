package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/tierlab/splitbuy/internal/types"
	"github.com/tierlab/splitbuy/pkg/errors"
)

type EngineTestSuite struct {
	suite.Suite
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

// twoTierConfig keeps the arithmetic small: 2 tiers, full allocation, 5% dip,
// 10% peak, stop-loss after 3 days.
func (suite *EngineTestSuite) twoTierConfig() types.StrategyConfig {
	return types.StrategyConfig{
		Name:         "test",
		SplitCount:   2,
		DipPercent:   decimal.RequireFromString("0.05"),
		PeakPercent:  decimal.RequireFromString("0.1"),
		InvestRatio:  decimal.NewFromInt(1),
		StopLossDays: 3,
		MaxBuyCount:  4,
	}
}

func (suite *EngineTestSuite) newEngine(cfg types.StrategyConfig, capital string) *TieredPositionEngine {
	engine, err := NewTieredPositionEngine(cfg, decimal.RequireFromString(capital), nil)
	suite.Require().NoError(err)

	return engine
}

// run steps the engine through consecutive trading days at the given prices
// and returns every day's result.
func (suite *EngineTestSuite) run(engine *TieredPositionEngine, prices ...string) []DayResult {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	results := make([]DayResult, 0, len(prices))

	for i, p := range prices {
		result, err := engine.Step(start.AddDate(0, 0, i), decimal.RequireFromString(p))
		suite.Require().NoError(err)
		results = append(results, result)
	}

	return results
}

func (suite *EngineTestSuite) allTrades(results []DayResult) []types.Trade {
	var trades []types.Trade
	for _, r := range results {
		trades = append(trades, r.Trades...)
	}

	return trades
}

func (suite *EngineTestSuite) TestRejectsNonPositiveCapital() {
	_, err := NewTieredPositionEngine(suite.twoTierConfig(), decimal.Zero, nil)
	suite.Error(err)
	suite.Equal(errors.ErrCodeInvalidCapital, errors.GetCode(err))
}

func (suite *EngineTestSuite) TestFlatSeriesProducesNoTrades() {
	engine := suite.newEngine(suite.twoTierConfig(), "10000")

	results := suite.run(engine, "100", "100", "100", "100", "100", "100", "100", "100", "100", "100")

	suite.Empty(suite.allTrades(results))
	suite.True(engine.IsFlat())
	suite.True(engine.Cash().Equal(decimal.NewFromInt(10000)))
}

func (suite *EngineTestSuite) TestLadderBuysChainReferences() {
	engine := suite.newEngine(suite.twoTierConfig(), "10000")

	// Day 0 anchors the reference at 100. Day 1 hits 100 x 0.95, day 2 hits
	// 95 x 0.95 = 90.25.
	results := suite.run(engine, "100", "95", "90.25")

	trades := suite.allTrades(results)
	suite.Require().Len(trades, 2)

	suite.Equal(types.TradeTypeBuy, trades[0].Type)
	suite.Equal(0, trades[0].Tier)
	suite.True(trades[0].Price.Equal(decimal.NewFromInt(95)))
	// tier budget 5000: floor(5000 / 95) = 52 shares
	suite.Equal(int64(52), trades[0].Shares)

	suite.Equal(1, trades[1].Tier)
	suite.True(trades[1].Price.Equal(decimal.RequireFromString("90.25")))
	suite.Equal(int64(55), trades[1].Shares)

	suite.True(results[1].CycleStarted)
	suite.False(results[2].CycleStarted)
}

func (suite *EngineTestSuite) TestAtMostOneBuyPerDay() {
	engine := suite.newEngine(suite.twoTierConfig(), "10000")

	// A crash through several tier triggers at once still buys a single tier.
	results := suite.run(engine, "100", "50")

	trades := suite.allTrades(results)
	suite.Require().Len(trades, 1)
	suite.Equal(0, trades[0].Tier)
	suite.Equal(1, engine.Position().NextEmptyTier())
}

func (suite *EngineTestSuite) TestNoBuyBeforeReferenceAnchors() {
	engine := suite.newEngine(suite.twoTierConfig(), "10000")

	// First ever day: no previous execution price exists, so even a deep
	// dip cannot trigger.
	results := suite.run(engine, "50")
	suite.Empty(suite.allTrades(results))
}

func (suite *EngineTestSuite) TestReferenceReAnchorsDailyWhileFlat() {
	engine := suite.newEngine(suite.twoTierConfig(), "10000")

	// Against the day-0 anchor of 100 the trigger would be 95; 104.4 only
	// triggers because the anchor moved up to 110 on day 1.
	results := suite.run(engine, "100", "110", "104.4")

	trades := suite.allTrades(results)
	suite.Require().Len(trades, 1)
	suite.Equal(types.TradeTypeBuy, trades[0].Type)
	suite.True(trades[0].Price.Equal(decimal.RequireFromString("104.4")))
}

func (suite *EngineTestSuite) TestSellAtPeakClosesCycle() {
	engine := suite.newEngine(suite.twoTierConfig(), "10000")

	// Buy 52 shares at 95, sell all at 95 x 1.1 = 104.5.
	results := suite.run(engine, "100", "95", "104.5")

	trades := suite.allTrades(results)
	suite.Require().Len(trades, 2)
	suite.Equal(types.TradeTypeSell, trades[1].Type)
	suite.Equal(int64(52), trades[1].Shares)

	suite.True(results[2].CycleEnded)
	suite.True(engine.IsFlat())

	// 10000 - 52x95 + 52x104.5 = 10494
	suite.True(engine.Cash().Equal(decimal.RequireFromString("10494")))
}

func (suite *EngineTestSuite) TestStopLossForcesUnderwaterSale() {
	engine := suite.newEngine(suite.twoTierConfig(), "10000")

	// Buy at 95 on day 1; the price then sits at 94: below entry, above the
	// next dip trigger (90.25), below the peak (104.5). Three trading days
	// after entry the stop-loss fires.
	results := suite.run(engine, "100", "95", "94", "94", "94")

	trades := suite.allTrades(results)
	suite.Require().Len(trades, 2)
	suite.Equal(types.TradeTypeBuy, trades[0].Type)
	suite.Equal(types.TradeTypeStopLoss, trades[1].Type)
	suite.True(trades[1].Price.Equal(decimal.NewFromInt(94)))

	suite.Empty(results[2].Trades)
	suite.Empty(results[3].Trades)
	suite.Require().Len(results[4].Trades, 1)
	suite.True(results[4].CycleEnded)
}

func (suite *EngineTestSuite) TestStopLossSkipsTierAtOrAboveEntry() {
	engine := suite.newEngine(suite.twoTierConfig(), "10000")

	// Held past the limit but never underwater: no forced sale.
	results := suite.run(engine, "100", "95", "95", "95", "95", "95")

	trades := suite.allTrades(results)
	suite.Require().Len(trades, 1)
	suite.Equal(types.TradeTypeBuy, trades[0].Type)
	suite.False(engine.IsFlat())
}

func (suite *EngineTestSuite) TestAssetConservationOnBuy() {
	engine := suite.newEngine(suite.twoTierConfig(), "10000")

	suite.run(engine, "100", "95")

	position := engine.Position()
	suite.True(position.TotalAsset(decimal.NewFromInt(95)).Equal(decimal.NewFromInt(10000)))
}

func (suite *EngineTestSuite) TestCyclesCompound() {
	engine := suite.newEngine(suite.twoTierConfig(), "10000")
	tracker := NewCycleTracker()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := []string{"100", "95", "104.5", "99.27"}

	for i, p := range prices {
		date := start.AddDate(0, 0, i)
		result, err := engine.Step(date, decimal.RequireFromString(p))
		suite.Require().NoError(err)
		suite.Require().NoError(tracker.Observe(date, result, engine))
	}

	// Cycle 1 closed at 10494; day 3 re-anchored to 104.5 on day 2, and
	// 99.27 <= 104.5 x 0.95 opens cycle 2 with the compounded base.
	cycles := tracker.Cycles()
	suite.Require().Len(cycles, 2)

	suite.False(cycles[0].IsOpen())
	suite.True(cycles[0].FinalAsset.Unwrap().Equal(decimal.RequireFromString("10494")))
	suite.True(cycles[1].IsOpen())
	suite.True(cycles[1].InitialCapital.Equal(decimal.RequireFromString("10494")))

	// New tier budget 10494 / 2 = 5247: floor(5247 / 99.27) = 52 shares.
	holding := engine.Position().HoldingTiers()
	suite.Require().Len(holding, 1)
	suite.Equal(int64(52), holding[0].ShareCount)

	suite.Equal(2, tracker.TotalCycles())
	suite.Equal(2, tracker.CurrentCycleNumber())
	suite.True(tracker.WinRate().Equal(decimal.NewFromInt(1)))
}

func (suite *EngineTestSuite) TestSameDayLiquidationAndRebuy() {
	engine := suite.newEngine(suite.twoTierConfig(), "10000")
	tracker := NewCycleTracker()

	// Buy 52 shares at 95 on day 1. Day 4 fires the stop-loss (3 days held,
	// 89 < 95) and, now flat, re-buys against yesterday's anchor of 94
	// (89 <= 94 x 0.95 = 89.3) within the same step.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := []string{"100", "95", "94", "94", "89"}

	var results []DayResult
	for i, p := range prices {
		date := start.AddDate(0, 0, i)
		result, err := engine.Step(date, decimal.RequireFromString(p))
		suite.Require().NoError(err)
		suite.Require().NoError(tracker.Observe(date, result, engine))
		results = append(results, result)
	}

	last := results[4]
	suite.True(last.CycleEnded)
	suite.True(last.CycleStarted)
	suite.Require().Len(last.Trades, 2)
	suite.Equal(types.TradeTypeStopLoss, last.Trades[0].Type)
	suite.Equal(types.TradeTypeBuy, last.Trades[1].Type)

	// 5060 + 52x89 = 9688 in cash after the forced sale, before the re-buy.
	suite.True(last.LiquidationCash.Equal(decimal.RequireFromString("9688")))

	cycles := tracker.Cycles()
	suite.Require().Len(cycles, 2)

	suite.False(cycles[0].IsOpen())
	suite.True(cycles[0].EndDate.Unwrap().Equal(start.AddDate(0, 0, 4)))
	suite.True(cycles[0].FinalAsset.Unwrap().Equal(decimal.RequireFromString("9688")))

	suite.True(cycles[1].IsOpen())
	suite.True(cycles[1].StartDate.Equal(start.AddDate(0, 0, 4)))
	suite.True(cycles[1].InitialCapital.Equal(decimal.RequireFromString("9688")))

	// New tier budget 9688 / 2 = 4844: floor(4844 / 89) = 54 shares.
	holding := engine.Position().HoldingTiers()
	suite.Require().Len(holding, 1)
	suite.Equal(int64(54), holding[0].ShareCount)

	suite.Equal(2, tracker.CurrentCycleNumber())
}

func (suite *EngineTestSuite) TestSetConfigOnlyWhileFlat() {
	engine := suite.newEngine(suite.twoTierConfig(), "10000")

	suite.run(engine, "100", "95")

	pro3, err := types.PresetByName(types.StrategyPro3)
	suite.Require().NoError(err)

	err = engine.SetConfig(pro3)
	suite.Error(err)
	suite.Equal(errors.ErrCodeStrategySwapMid, errors.GetCode(err))

	// Liquidate, then swapping succeeds.
	suite.run(engine, "104.5")
	suite.NoError(engine.SetConfig(pro3))
	suite.Equal(types.StrategyPro3, engine.Config().Name)
	suite.Len(engine.Position().Tiers, pro3.SplitCount)
}

func (suite *EngineTestSuite) TestMaxBuyCountCapsCycleBuys() {
	cfg := suite.twoTierConfig()
	cfg.MaxBuyCount = 2
	engine := suite.newEngine(cfg, "10000")

	// Two buys fill both tiers. The stop-loss frees tier 0 on day 4 while
	// tier 1 still holds, but the cycle's buy budget is spent, so the dip
	// below the tier-0 trigger cannot refill it.
	results := suite.run(engine, "100", "95", "90.25", "89", "85")

	trades := suite.allTrades(results)

	buys := 0
	stops := 0
	for _, trade := range trades {
		switch trade.Type {
		case types.TradeTypeBuy:
			buys++
		case types.TradeTypeStopLoss:
			stops++
		}
	}

	suite.Equal(2, buys)
	suite.Equal(1, stops)
	suite.False(engine.IsFlat())
	suite.Equal(0, engine.Position().NextEmptyTier())
}

func (suite *EngineTestSuite) TestStepRejectsNonPositivePrice() {
	engine := suite.newEngine(suite.twoTierConfig(), "10000")

	_, err := engine.Step(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), decimal.Zero)
	suite.Error(err)
	suite.Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))
}

func (suite *EngineTestSuite) TestRestorePosition() {
	engine := suite.newEngine(suite.twoTierConfig(), "10000")

	restored := types.CyclePosition{
		Tiers: []types.Tier{
			{Index: 0, EntryDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), EntryPrice: decimal.NewFromInt(95), ShareCount: 52, DaysHeld: 1},
			{Index: 1},
		},
		Cash: decimal.RequireFromString("5060"),
	}

	err := engine.RestorePosition(restored, decimal.NewFromInt(10000), decimal.NewFromInt(95))
	suite.Require().NoError(err)
	suite.False(engine.IsFlat())

	// Tier 1's limit derives from the restored last buy price.
	limit, tier, ok := engine.BuyTrigger()
	suite.True(ok)
	suite.Equal(1, tier)
	suite.True(limit.Equal(decimal.RequireFromString("90.25")))
}

func (suite *EngineTestSuite) TestRestorePositionRejectsTierMismatch() {
	engine := suite.newEngine(suite.twoTierConfig(), "10000")

	err := engine.RestorePosition(types.CyclePosition{Tiers: []types.Tier{{Index: 0}}, Cash: decimal.NewFromInt(100)}, decimal.NewFromInt(100), decimal.Zero)
	suite.Error(err)
	suite.Equal(errors.ErrCodeInconsistentState, errors.GetCode(err))
}
