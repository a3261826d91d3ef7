package live

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tierlab/splitbuy/internal/engine"
	"github.com/tierlab/splitbuy/internal/logger"
	"github.com/tierlab/splitbuy/internal/types"
	"github.com/tierlab/splitbuy/pkg/errors"
	"go.uber.org/zap"
)

// Manager drives the daily live-trading pipeline for one account store:
// after each close, ProcessPreviousDayExecution reconciles the outstanding
// order sheet against the realized bar, then GenerateDailyOrders writes the
// sheet for the next trading day.
type Manager struct {
	state *AccountState
	log   *logger.Logger
}

// NewManager creates a manager over the given account store.
func NewManager(state *AccountState, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Manager{state: state, log: log}
}

// GenerateDailyOrders builds the limit order sheet for the given trading day
// from the account's persisted position: one buy at the next tier's dip
// trigger, a sell per holding tier at its peak trigger, and a stop-loss per
// tier that will be past its holding limit.
func (m *Manager) GenerateDailyOrders(ctx context.Context, accountID string, date time.Time) ([]types.DailyOrder, error) {
	account, cfg, positionEngine, err := m.restore(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var orders []types.DailyOrder

	newOrder := func(side types.OrderSide, tier int, limit decimal.Decimal, quantity int64) types.DailyOrder {
		return types.DailyOrder{
			OrderID:    uuid.New().String(),
			AccountID:  accountID,
			Ticker:     account.Ticker,
			Date:       date,
			TierIndex:  tier,
			Side:       side,
			LimitPrice: types.RoundMoney(limit),
			Quantity:   quantity,
			CreatedAt:  now,
		}
	}

	position := positionEngine.Position()

	for _, tier := range position.HoldingTiers() {
		orders = append(orders, newOrder(types.OrderSideSell, tier.Index, tier.PeakPrice(cfg), tier.ShareCount))

		// The engine checks the holding limit against the stored daysHeld
		// before incrementing, so the stored value is already tomorrow's.
		if tier.DaysHeld >= cfg.StopLossDays {
			orders = append(orders, newOrder(types.OrderSideStopLoss, tier.Index, tier.EntryPrice, tier.ShareCount))
		}
	}

	if limit, tier, ok := positionEngine.BuyTrigger(); ok {
		quantity := m.buyQuantity(account, cfg, position, limit)
		if quantity > 0 {
			orders = append(orders, newOrder(types.OrderSideBuy, tier, limit, quantity))
		}
	}

	if err := m.state.InsertOrders(ctx, orders); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeOrderGenerationFailed, err,
			"failed to persist order sheet for %s on %s", accountID, date.Format(types.DateLayout))
	}

	m.log.Info("order sheet generated",
		zap.String("account_id", accountID),
		zap.String("date", date.Format(types.DateLayout)),
		zap.Int("orders", len(orders)),
	)

	return orders, nil
}

// buyQuantity sizes the next tier buy. A flat account's cycle has not started
// yet, so its prospective budget derives from current cash; mid-cycle the
// budget was frozen at cycle start.
func (m *Manager) buyQuantity(account Account, cfg types.StrategyConfig, position types.CyclePosition, limit decimal.Decimal) int64 {
	base := account.CycleCapital
	if position.IsFlat() {
		base = account.Cash
	}

	if base.Sign() <= 0 || limit.Sign() <= 0 {
		return 0
	}

	budget := base.Mul(cfg.InvestRatio).Div(decimal.NewFromInt(int64(cfg.SplitCount)))

	return budget.Div(limit).Floor().IntPart()
}

// ProcessOrderExecution reconciles the pending order sheet against one
// realized bar. Fills execute at the raw close: buys when the close is at or
// below the limit, sells at or above, stop-losses when the close is below the
// entry price. The account position advances through the engine so live state
// and backtest state obey the same transition rules.
func (m *Manager) ProcessOrderExecution(ctx context.Context, accountID string, bar types.PricePoint) ([]types.ExecutionResult, error) {
	account, _, positionEngine, err := m.restore(ctx, accountID)
	if err != nil {
		return nil, err
	}

	pending, err := m.state.PendingOrders(ctx, accountID)
	if err != nil {
		return nil, err
	}

	dayResult, err := positionEngine.Step(bar.Date, bar.Close)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeExecutionFailed, err,
			"failed to advance account %s to %s", accountID, bar.Date.Format(types.DateLayout))
	}

	// Match orders to the engine's trades by side and tier. An order without
	// a matching trade did not fill today.
	type tradeKey struct {
		side types.OrderSide
		tier int
	}

	filled := make(map[tradeKey]types.Trade, len(dayResult.Trades))
	for _, trade := range dayResult.Trades {
		filled[tradeKey{types.OrderSide(trade.Type), trade.Tier}] = trade

		if trade.Type == types.TradeTypeBuy {
			account.LastBuyPrice = trade.Price
		}
	}

	results := make([]types.ExecutionResult, 0, len(pending))

	for _, order := range pending {
		trade, ok := filled[tradeKey{order.Side, order.TierIndex}]
		if !ok {
			results = append(results, types.ExecutionResult{
				Order: order,
				Note:  fmt.Sprintf("close %s did not reach limit %s", bar.Close, order.LimitPrice),
			})

			continue
		}

		delete(filled, tradeKey{order.Side, order.TierIndex})

		if err := m.state.MarkOrderExecuted(ctx, order.OrderID, trade.Price); err != nil {
			return nil, err
		}

		results = append(results, types.ExecutionResult{
			Order:     order,
			Filled:    true,
			FillPrice: trade.Price,
		})
	}

	for key, trade := range filled {
		m.log.Warn("engine trade without a matching order",
			zap.String("account_id", accountID),
			zap.String("side", string(key.side)),
			zap.Int("tier", trade.Tier),
		)
	}

	account.CycleCapital = positionEngine.CycleCapital()
	account.LastClose = bar.Close

	if err := m.state.SaveState(ctx, account, positionEngine.Position()); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeExecutionFailed, err,
			"failed to persist account %s after %s", accountID, bar.Date.Format(types.DateLayout))
	}

	return results, nil
}

// ProcessPreviousDayExecution is the carry-forward step of the daily pipeline:
// it reconciles every outstanding order (including sheets older than the bar,
// if a day was missed) and then drops whatever did not fill, clearing the way
// for the next sheet.
func (m *Manager) ProcessPreviousDayExecution(ctx context.Context, accountID string, bar types.PricePoint) ([]types.ExecutionResult, error) {
	results, err := m.ProcessOrderExecution(ctx, accountID, bar)
	if err != nil {
		return nil, err
	}

	if err := m.state.DeletePendingOrders(ctx, accountID); err != nil {
		return nil, err
	}

	return results, nil
}

// restore rebuilds the position engine for an account from persisted state.
func (m *Manager) restore(ctx context.Context, accountID string) (Account, types.StrategyConfig, *engine.TieredPositionEngine, error) {
	account, err := m.state.GetAccount(ctx, accountID)
	if err != nil {
		return Account{}, types.StrategyConfig{}, nil, err
	}

	cfg, err := types.PresetByName(account.Strategy)
	if err != nil {
		return Account{}, types.StrategyConfig{}, nil, err
	}

	position, err := m.state.GetPosition(ctx, accountID, cfg.SplitCount, account.Cash)
	if err != nil {
		return Account{}, types.StrategyConfig{}, nil, err
	}

	seed := account.Cash
	if seed.Sign() <= 0 {
		seed = account.CycleCapital
	}
	if seed.Sign() <= 0 {
		return Account{}, types.StrategyConfig{}, nil, errors.Newf(errors.ErrCodeInconsistentState,
			"account %s has no cash and no cycle capital", accountID)
	}

	positionEngine, err := engine.NewTieredPositionEngine(cfg, seed, m.log)
	if err != nil {
		return Account{}, types.StrategyConfig{}, nil, err
	}

	if err := positionEngine.RestorePosition(position, account.CycleCapital, account.LastBuyPrice); err != nil {
		return Account{}, types.StrategyConfig{}, nil, err
	}

	positionEngine.Prime(account.LastClose)

	return account, cfg, positionEngine, nil
}
