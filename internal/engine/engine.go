// Package engine implements the tiered split-buy position state machine and
// the cycle tracker that wraps it. The engine owns tier and cash state within
// a cycle; the tracker exclusively owns cycle boundaries.
package engine

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tierlab/splitbuy/internal/logger"
	"github.com/tierlab/splitbuy/internal/types"
	"github.com/tierlab/splitbuy/pkg/errors"
	"go.uber.org/zap"
)

// DayResult reports what one trading day's transitions produced.
type DayResult struct {
	// Trades lists the day's fills in application order: stop-losses first,
	// then sells, then at most one buy.
	Trades []types.Trade
	// CycleStarted is true when the day's buy opened a new cycle.
	CycleStarted bool
	// CycleEnded is true when the day's sells completed a full liquidation.
	// Both flags are set when a dip re-buy follows the liquidation the same
	// day: the old cycle closes and a new one opens within one Step.
	CycleEnded bool
	// LiquidationCash is the cash balance the moment the liquidation
	// completed, before any same-day re-buy. Set only when CycleEnded.
	LiquidationCash decimal.Decimal
}

// TieredPositionEngine advances one strategy instance one trading day at a
// time. Transitions are evaluated in a fixed order each day: stop-loss checks,
// sell checks, then at most one buy, followed by the daysHeld increment.
//
// All fills within a day use the same execution price supplied by the caller
// (adjClose in backtests, raw close in live reconciliation).
type TieredPositionEngine struct {
	config types.StrategyConfig
	log    *logger.Logger

	tiers []types.Tier
	cash  decimal.Decimal

	// cycleCapital is the investable base captured when the current cycle
	// opened; tierBudget is its fixed per-tier share.
	cycleCapital decimal.Decimal
	tierBudget   decimal.Decimal
	buyCount     int

	// prevPrice is the previous trading day's execution price. While flat it
	// is the tier-1 dip reference, re-anchoring every day; cycleRef freezes
	// the reference in force when the current cycle opened.
	prevPrice decimal.Decimal
	cycleRef  decimal.Decimal
	hasPrev   bool

	// lastBuyPrice chains tier references: tier k buys against the most
	// recent buy price of the cycle.
	lastBuyPrice decimal.Decimal
}

// NewTieredPositionEngine creates an engine with the given strategy and
// initial capital. The configuration is validated up front; no partial state
// is created on failure.
func NewTieredPositionEngine(config types.StrategyConfig, initialCapital decimal.Decimal, log *logger.Logger) (*TieredPositionEngine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if initialCapital.Sign() <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidCapital, "initial capital must be positive, got %s", initialCapital)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	engine := &TieredPositionEngine{
		config: config,
		log:    log,
		cash:   initialCapital,
	}
	engine.resetTiers()

	return engine, nil
}

func (e *TieredPositionEngine) resetTiers() {
	e.tiers = make([]types.Tier, e.config.SplitCount)
	for i := range e.tiers {
		e.tiers[i] = types.Tier{Index: i}
	}
}

// Config returns the active strategy configuration.
func (e *TieredPositionEngine) Config() types.StrategyConfig {
	return e.config
}

// Cash returns the current cash balance.
func (e *TieredPositionEngine) Cash() decimal.Decimal {
	return e.cash
}

// CycleCapital returns the investable base captured at the current cycle's
// start. It is meaningful only while a cycle is open.
func (e *TieredPositionEngine) CycleCapital() decimal.Decimal {
	return e.cycleCapital
}

// Position returns a copy of the current tier and cash state.
func (e *TieredPositionEngine) Position() types.CyclePosition {
	tiers := make([]types.Tier, len(e.tiers))
	copy(tiers, e.tiers)

	return types.CyclePosition{Tiers: tiers, Cash: e.cash}
}

// IsFlat reports whether every tier is empty.
func (e *TieredPositionEngine) IsFlat() bool {
	return e.Position().IsFlat()
}

// SetConfig swaps the strategy configuration. Swapping is only legal while
// fully in cash: a cycle's strategy never changes mid-cycle.
func (e *TieredPositionEngine) SetConfig(config types.StrategyConfig) error {
	if !e.IsFlat() {
		return errors.New(errors.ErrCodeStrategySwapMid, "strategy config cannot change while tiers are holding")
	}

	if err := config.Validate(); err != nil {
		return err
	}

	e.config = config
	e.resetTiers()
	e.buyCount = 0

	return nil
}

// RestorePosition loads externally persisted tier state into the engine. Used
// by the live order processor, which keeps tier holdings in its own store
// between trading days.
func (e *TieredPositionEngine) RestorePosition(position types.CyclePosition, cycleCapital decimal.Decimal, lastBuyPrice decimal.Decimal) error {
	if len(position.Tiers) != e.config.SplitCount {
		return errors.Newf(errors.ErrCodeInconsistentState,
			"restored position has %d tiers, strategy expects %d", len(position.Tiers), e.config.SplitCount)
	}

	if position.Cash.IsNegative() {
		return errors.Newf(errors.ErrCodeNegativeCash, "restored cash is negative: %s", position.Cash)
	}

	e.tiers = make([]types.Tier, len(position.Tiers))
	copy(e.tiers, position.Tiers)
	e.cash = position.Cash
	e.cycleCapital = cycleCapital
	e.tierBudget = cycleCapital.Mul(e.config.InvestRatio).Div(decimal.NewFromInt(int64(e.config.SplitCount)))
	e.lastBuyPrice = lastBuyPrice
	// The cycle's opening reference is not persisted; the last buy price is a
	// stricter stand-in for a mid-cycle tier-0 refill.
	e.cycleRef = lastBuyPrice

	e.buyCount = 0
	for _, t := range e.tiers {
		if !t.IsEmpty() {
			e.buyCount++
		}
	}

	return nil
}

// Prime seeds the previous-day execution price so the first processed day can
// evaluate its dip trigger. Without priming, the first day only anchors the
// reference.
func (e *TieredPositionEngine) Prime(price decimal.Decimal) {
	if price.Sign() > 0 {
		e.prevPrice = price
		e.hasPrev = true
	}
}

// BuyTrigger returns the reference price and limit price at which the next
// empty tier would buy, or false when no buy is currently possible. The live
// order generator uses it to compute limit prices without stepping the engine.
func (e *TieredPositionEngine) BuyTrigger() (limit decimal.Decimal, tier int, ok bool) {
	next := e.Position().NextEmptyTier()
	if next == -1 || e.buyCount >= e.config.MaxBuyCount {
		return decimal.Zero, 0, false
	}

	ref, ok := e.referencePrice(next)
	if !ok {
		return decimal.Zero, 0, false
	}

	return ref.Mul(decimal.NewFromInt(1).Sub(e.config.DipPercent)), next, true
}

// referencePrice resolves the dip reference for a tier: the previous day's
// execution price while fully in cash, the cycle's initial reference for
// tier 1 mid-cycle, and the most recent buy price of the cycle otherwise.
func (e *TieredPositionEngine) referencePrice(tier int) (decimal.Decimal, bool) {
	if e.IsFlat() {
		if !e.hasPrev {
			return decimal.Zero, false
		}

		return e.prevPrice, true
	}

	if tier == 0 {
		return e.cycleRef, true
	}

	return e.lastBuyPrice, true
}

// Step applies one trading day at the given execution price and returns the
// day's trades. It aborts with an InconsistentState error rather than produce
// an untrustworthy history.
func (e *TieredPositionEngine) Step(date time.Time, price decimal.Decimal) (DayResult, error) {
	if price.Sign() <= 0 {
		return DayResult{}, errors.Newf(errors.ErrCodeInvalidParameter, "execution price must be positive on %s", date.Format(types.DateLayout))
	}

	wasFlat := e.IsFlat()
	result := DayResult{}

	// 1. Stop-loss: force-sell every tier past its holding limit that is
	// still underwater, regardless of the peak threshold.
	for i := range e.tiers {
		tier := &e.tiers[i]
		if tier.IsEmpty() {
			continue
		}

		if tier.DaysHeld >= e.config.StopLossDays && price.LessThan(tier.EntryPrice) {
			result.Trades = append(result.Trades, e.sellTier(tier, price, types.TradeTypeStopLoss))
		}
	}

	// 2. Sells: any tier at or above its peak-trigger price.
	for i := range e.tiers {
		tier := &e.tiers[i]
		if tier.IsEmpty() {
			continue
		}

		if price.GreaterThanOrEqual(tier.PeakPrice(e.config)) {
			result.Trades = append(result.Trades, e.sellTier(tier, price, types.TradeTypeSell))
		}
	}

	liquidated := !wasFlat && e.IsFlat()
	if liquidated {
		result.CycleEnded = true
		result.LiquidationCash = e.cash
		// The buy cap is per cycle; a buy after full liquidation opens a
		// fresh cycle with a fresh budget.
		e.buyCount = 0
	}

	// 3. Buy: at most one per day, into the lowest empty tier.
	if trade, bought, err := e.tryBuy(date, price); err != nil {
		return DayResult{}, err
	} else if bought {
		result.Trades = append(result.Trades, trade)

		if wasFlat || liquidated {
			result.CycleStarted = true
		}
	}

	// 4. Age all holding tiers.
	for i := range e.tiers {
		if !e.tiers[i].IsEmpty() {
			e.tiers[i].DaysHeld++
		}
	}

	e.prevPrice = price
	e.hasPrev = true

	if e.cash.IsNegative() {
		return DayResult{}, errors.Newf(errors.ErrCodeNegativeCash,
			"cash went negative (%s) on %s", e.cash, date.Format(types.DateLayout))
	}

	return result, nil
}

func (e *TieredPositionEngine) sellTier(tier *types.Tier, price decimal.Decimal, tradeType types.TradeType) types.Trade {
	proceeds := price.Mul(decimal.NewFromInt(tier.ShareCount))
	e.cash = e.cash.Add(proceeds)

	trade := types.Trade{
		Type:   tradeType,
		Tier:   tier.Index,
		Price:  price,
		Shares: tier.ShareCount,
	}

	e.log.Debug("tier sold",
		zap.Int("tier", tier.Index),
		zap.String("type", string(tradeType)),
		zap.String("price", price.String()),
		zap.Int64("shares", tier.ShareCount),
	)

	*tier = types.Tier{Index: tier.Index}

	return trade
}

func (e *TieredPositionEngine) tryBuy(date time.Time, price decimal.Decimal) (types.Trade, bool, error) {
	if e.buyCount >= e.config.MaxBuyCount {
		return types.Trade{}, false, nil
	}

	next := e.Position().NextEmptyTier()
	if next == -1 {
		return types.Trade{}, false, nil
	}

	ref, ok := e.referencePrice(next)
	if !ok {
		// First day of a run: the reference anchors at the end of the day.
		return types.Trade{}, false, nil
	}

	trigger := ref.Mul(decimal.NewFromInt(1).Sub(e.config.DipPercent))
	if price.GreaterThan(trigger) {
		return types.Trade{}, false, nil
	}

	openingCycle := e.IsFlat()
	if openingCycle {
		// Cycles compound: the new cycle's investable base is the current
		// cash balance, not the original seed.
		e.cycleCapital = e.cash
		e.tierBudget = e.cycleCapital.Mul(e.config.InvestRatio).Div(decimal.NewFromInt(int64(e.config.SplitCount)))
		e.cycleRef = ref
		e.buyCount = 0
	}

	shares := e.tierBudget.Div(price).Floor().IntPart()
	if shares <= 0 {
		return types.Trade{}, false, nil
	}

	cost := price.Mul(decimal.NewFromInt(shares))
	if cost.GreaterThan(e.cash) {
		e.log.Warn("buy skipped: insufficient cash",
			zap.Int("tier", next),
			zap.String("cost", cost.String()),
			zap.String("cash", e.cash.String()),
		)

		return types.Trade{}, false, nil
	}

	if !e.tiers[next].IsEmpty() {
		return types.Trade{}, false, errors.Newf(errors.ErrCodeTierOccupied, "tier %d already holding", next)
	}

	e.cash = e.cash.Sub(cost)
	e.tiers[next] = types.Tier{
		Index:      next,
		EntryDate:  date,
		EntryPrice: price,
		ShareCount: shares,
		DaysHeld:   0,
	}
	e.buyCount++
	e.lastBuyPrice = price

	e.log.Debug("tier bought",
		zap.Int("tier", next),
		zap.String("price", price.String()),
		zap.Int64("shares", shares),
	)

	return types.Trade{
		Type:   types.TradeTypeBuy,
		Tier:   next,
		Price:  price,
		Shares: shares,
	}, true, nil
}
