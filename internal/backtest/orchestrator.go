// Package backtest replays a price series through the tiered position engine
// and aggregates the run statistics. Backtests execute at adjClose; live
// trading is the only consumer of raw close prices.
package backtest

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/tierlab/splitbuy/internal/engine"
	"github.com/tierlab/splitbuy/internal/indicator"
	"github.com/tierlab/splitbuy/internal/logger"
	"github.com/tierlab/splitbuy/internal/types"
	"github.com/tierlab/splitbuy/pkg/errors"
	"go.uber.org/zap"
)

// RunConfig parametrizes one backtest run. Strategy is the fixed strategy for
// Run; RunRecommendDriven ignores it and asks the recommender instead.
type RunConfig struct {
	Ticker         string          `yaml:"ticker" json:"ticker" validate:"required"`
	StartDate      time.Time       `yaml:"start_date" json:"start_date" validate:"required"`
	EndDate        time.Time       `yaml:"end_date" json:"end_date" validate:"required"`
	InitialCapital decimal.Decimal `yaml:"initial_capital" json:"initial_capital"`
	Strategy       types.StrategyConfig `yaml:"strategy" json:"strategy"`
	// WithIndicators attaches the daily indicator snapshot to each history
	// entry. Off by default: it multiplies the output size.
	WithIndicators bool `yaml:"with_indicators" json:"with_indicators"`
}

// Validate checks the run parameters independent of any price data.
func (c RunConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid run config", err)
	}

	if c.EndDate.Before(c.StartDate) {
		return errors.Newf(errors.ErrCodeInvalidDateRange, "end date %s before start date %s",
			c.EndDate.Format(types.DateLayout), c.StartDate.Format(types.DateLayout))
	}

	if c.InitialCapital.Sign() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidCapital, "initial capital must be positive, got %s", c.InitialCapital)
	}

	return nil
}

// Recommender picks a strategy from the price history up to and including the
// given index. Implementations must not read bars past idx.
type Recommender interface {
	RecommendAt(series *types.PriceSeries, idx int) (types.RecommendationRecord, error)
}

// Orchestrator runs backtests over in-memory price series.
type Orchestrator struct {
	log *logger.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Orchestrator{log: log}
}

// Run replays the series through the fixed strategy in cfg and returns the
// aggregated result.
func (o *Orchestrator) Run(series *types.PriceSeries, cfg RunConfig) (*types.BacktestResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	startIdx, endIdx, err := o.resolveRange(series, cfg)
	if err != nil {
		return nil, err
	}

	positionEngine, err := engine.NewTieredPositionEngine(cfg.Strategy, cfg.InitialCapital, o.log)
	if err != nil {
		return nil, err
	}

	if startIdx > 0 {
		positionEngine.Prime(series.At(startIdx - 1).AdjClose)
	}

	run := newRunState(positionEngine, cfg.InitialCapital, cfg.WithIndicators, series)

	for i := startIdx; i <= endIdx; i++ {
		if _, err := run.step(i); err != nil {
			return nil, err
		}
	}

	result := run.result(cfg.InitialCapital)

	o.log.Info("backtest finished",
		zap.String("ticker", cfg.Ticker),
		zap.String("strategy", cfg.Strategy.Name),
		zap.String("final_asset", result.FinalAsset.String()),
		zap.Int("cycles", result.TotalCycles),
	)

	return result, nil
}

// RunRecommendDriven replays the series letting the recommender pick the
// strategy at every cycle boundary. The window before the start date must
// cover the indicator lookback so the very first recommendation can be made.
func (o *Orchestrator) RunRecommendDriven(series *types.PriceSeries, cfg RunConfig, rec Recommender) (*types.RecommendBacktestResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if rec == nil {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "recommender is required")
	}

	startIdx, endIdx, err := o.resolveRange(series, cfg)
	if err != nil {
		return nil, err
	}

	// The first recommendation reads data through the day before the start.
	if startIdx < indicator.MinLookback {
		return nil, errors.NewInsufficientHistoryError(indicator.MinLookback, startIdx, series.Ticker, series.At(startIdx).Date)
	}

	first, err := rec.RecommendAt(series, startIdx-1)
	if err != nil {
		return nil, err
	}

	strategy, err := types.PresetByName(first.Strategy)
	if err != nil {
		return nil, err
	}

	positionEngine, err := engine.NewTieredPositionEngine(strategy, cfg.InitialCapital, o.log)
	if err != nil {
		return nil, err
	}

	positionEngine.Prime(series.At(startIdx - 1).AdjClose)

	run := newRunState(positionEngine, cfg.InitialCapital, cfg.WithIndicators, series)
	lastRec := first

	var cycleStrategies []types.CycleStrategyInfo
	usage := make(map[string]int)

	for i := startIdx; i <= endIdx; i++ {
		// While fully in cash the upcoming cycle's strategy is still
		// swappable: refresh it from data through yesterday.
		if positionEngine.IsFlat() && i > startIdx {
			refreshed, err := rec.RecommendAt(series, i-1)
			if err != nil {
				return nil, err
			}

			if refreshed.Strategy != positionEngine.Config().Name {
				next, err := types.PresetByName(refreshed.Strategy)
				if err != nil {
					return nil, err
				}

				if err := positionEngine.SetConfig(next); err != nil {
					return nil, err
				}
			}

			lastRec = refreshed
		}

		dayResult, err := run.step(i)
		if err != nil {
			return nil, err
		}

		if dayResult.CycleStarted {
			info := types.CycleStrategyInfo{
				CycleNumber:   run.tracker.CurrentCycleNumber(),
				Strategy:      positionEngine.Config().Name,
				Reason:        lastRec.Reason,
				RecommendedAt: lastRec.Date,
			}
			cycleStrategies = append(cycleStrategies, info)
			usage[info.Strategy]++
		}
	}

	result := run.result(cfg.InitialCapital)

	o.log.Info("recommend-driven backtest finished",
		zap.String("ticker", cfg.Ticker),
		zap.String("final_asset", result.FinalAsset.String()),
		zap.Int("cycles", result.TotalCycles),
		zap.Any("strategy_usage", usage),
	)

	return &types.RecommendBacktestResult{
		BacktestResult:  *result,
		CycleStrategies: cycleStrategies,
		StrategyUsage:   usage,
	}, nil
}

func (o *Orchestrator) resolveRange(series *types.PriceSeries, cfg RunConfig) (int, int, error) {
	if series == nil || series.Len() == 0 {
		return 0, 0, errors.Newf(errors.ErrCodeDataNotFound, "no price data for %s", cfg.Ticker)
	}

	startIdx := -1
	endIdx := -1

	for i := 0; i < series.Len(); i++ {
		date := series.At(i).Date
		if date.Before(cfg.StartDate) {
			continue
		}

		if date.After(cfg.EndDate) {
			break
		}

		if startIdx == -1 {
			startIdx = i
		}
		endIdx = i
	}

	if startIdx == -1 {
		return 0, 0, errors.Newf(errors.ErrCodeDataNotFound,
			"no trading days for %s between %s and %s",
			cfg.Ticker, cfg.StartDate.Format(types.DateLayout), cfg.EndDate.Format(types.DateLayout))
	}

	return startIdx, endIdx, nil
}

// runState carries the per-day bookkeeping shared by both run modes.
type runState struct {
	engine  *engine.TieredPositionEngine
	tracker *engine.CycleTracker
	series  *types.PriceSeries
	calc    *indicator.Calculator

	history     []types.DailySnapshot
	peak        decimal.Decimal
	maxDrawdown decimal.Decimal
	lastTotal   decimal.Decimal
}

func newRunState(positionEngine *engine.TieredPositionEngine, initialCapital decimal.Decimal, withIndicators bool, series *types.PriceSeries) *runState {
	run := &runState{
		engine:    positionEngine,
		tracker:   engine.NewCycleTracker(),
		series:    series,
		peak:      initialCapital,
		lastTotal: initialCapital,
	}

	if withIndicators {
		run.calc = indicator.NewCalculator(series)
	}

	return run
}

func (r *runState) step(i int) (engine.DayResult, error) {
	point := r.series.At(i)

	dayResult, err := r.engine.Step(point.Date, point.AdjClose)
	if err != nil {
		return engine.DayResult{}, err
	}

	if err := r.tracker.Observe(point.Date, dayResult, r.engine); err != nil {
		return engine.DayResult{}, err
	}

	position := r.engine.Position()
	total := position.TotalAsset(point.AdjClose)
	r.lastTotal = total

	if total.GreaterThan(r.peak) {
		r.peak = total
	} else if r.peak.Sign() > 0 {
		drawdown := r.peak.Sub(total).Div(r.peak)
		if drawdown.GreaterThan(r.maxDrawdown) {
			r.maxDrawdown = drawdown
		}
	}

	snapshot := types.DailySnapshot{
		Date:          point.Date,
		Close:         point.Close,
		AdjClose:      point.AdjClose,
		CycleNumber:   r.tracker.CurrentCycleNumber(),
		Strategy:      r.engine.Config().Name,
		Cash:          types.RoundMoney(position.Cash),
		HoldingsValue: types.RoundMoney(position.HoldingsValue(point.AdjClose)),
		TotalAsset:    types.RoundMoney(total),
		Trades:        dayResult.Trades,
	}

	if r.calc != nil {
		snapshot.Indicators = optional.Some(r.calc.SnapshotAt(i))
	}

	r.history = append(r.history, snapshot)

	return dayResult, nil
}

func (r *runState) result(initialCapital decimal.Decimal) *types.BacktestResult {
	return &types.BacktestResult{
		FinalAsset:   types.RoundMoney(r.lastTotal),
		ReturnRate:   r.lastTotal.Div(initialCapital).Sub(decimal.NewFromInt(1)),
		MaxDrawdown:  r.maxDrawdown,
		TotalCycles:  r.tracker.TotalCycles(),
		WinRate:      r.tracker.WinRate(),
		DailyHistory: r.history,
		Cycles:       r.tracker.Cycles(),
	}
}
