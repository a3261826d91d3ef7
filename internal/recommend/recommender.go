// Package recommend selects the strategy preset for a (ticker, date) from
// technical indicators plus a retrospective score of each candidate over the
// recent past. Recommendations are pure: identical inputs always produce the
// identical record.
package recommend

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tierlab/splitbuy/internal/backtest"
	"github.com/tierlab/splitbuy/internal/indicator"
	"github.com/tierlab/splitbuy/internal/logger"
	"github.com/tierlab/splitbuy/internal/types"
	"github.com/tierlab/splitbuy/pkg/errors"
	"go.uber.org/zap"
)

const (
	// ScoreWindowDays is the trailing window each candidate is replayed over.
	ScoreWindowDays = 120
	// ScoreNotional is the synthetic capital used for scoring runs. Only the
	// relative scores matter; the notional merely keeps share counts sane.
	ScoreNotional = 10000
)

// Downgrade thresholds. Each regime signal that fires moves the pick one
// preset more conservative.
var (
	volatilityDowngradeAbove = decimal.NewFromInt(4)
	rsiDowngradeAt           = decimal.NewFromInt(75)
	disparityDowngradeAbove  = decimal.NewFromInt(10)
)

// Recommender scores the presets and applies the regime downgrade rules.
type Recommender struct {
	log          *logger.Logger
	orchestrator *backtest.Orchestrator
}

// NewRecommender creates a recommender.
func NewRecommender(log *logger.Logger) *Recommender {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Recommender{
		log:          log,
		orchestrator: backtest.NewOrchestrator(log),
	}
}

// RecommendAt recommends for the reference date at index idx, reading only
// bars up to and including idx. It implements backtest.Recommender.
func (r *Recommender) RecommendAt(series *types.PriceSeries, idx int) (types.RecommendationRecord, error) {
	truncated, err := series.Truncate(idx)
	if err != nil {
		return types.RecommendationRecord{}, err
	}

	return r.Recommend(truncated)
}

// Recommend recommends for the last trading day of the series. The minimum
// history counts the reference day itself: a series of indicator.MinLookback
// bars, that is MinLookback-1 prior days plus the reference day, is enough.
func (r *Recommender) Recommend(series *types.PriceSeries) (types.RecommendationRecord, error) {
	if series == nil || series.Len() == 0 {
		return types.RecommendationRecord{}, errors.New(errors.ErrCodeDataNotFound, "empty price series")
	}

	idx := series.Len() - 1
	refDate := series.At(idx).Date

	if series.Len() < indicator.MinLookback {
		return types.RecommendationRecord{}, errors.Wrapf(errors.ErrCodeInsufficientHistory,
			errors.NewInsufficientHistoryError(indicator.MinLookback, series.Len(), series.Ticker, refDate),
			"cannot recommend for %s", series.Ticker)
	}

	snapshot := indicator.NewCalculator(series).SnapshotAt(idx)

	candidates, excluded := r.candidates(snapshot)

	pick, score, anomaly, err := r.pickByScore(series, candidates)
	if err != nil {
		return types.RecommendationRecord{}, err
	}

	reasons := append([]string{}, excluded...)

	if anomaly {
		reasons = append(reasons, "all candidates excluded, falling back to the least conservative preset")
	} else {
		reasons = append(reasons, fmt.Sprintf("highest retrospective score %s (%s)", pick.Name, score.StringFixed(4)))
	}

	pick, reasons = r.applyDowngrades(pick, snapshot, reasons)

	record := types.RecommendationRecord{
		Ticker:   series.Ticker,
		Date:     refDate,
		Strategy: pick.Name,
		Reason:   strings.Join(reasons, "; "),
		Metrics:  snapshot,
	}

	r.log.Debug("recommendation computed",
		zap.String("ticker", record.Ticker),
		zap.String("date", refDate.Format(types.DateLayout)),
		zap.String("strategy", record.Strategy),
		zap.String("reason", record.Reason),
	)

	return record, nil
}

// candidates filters the presets by the exclusion rules. Pro1 assumes a
// range-bound market and is excluded while a golden cross signals momentum.
func (r *Recommender) candidates(snapshot types.IndicatorSnapshot) ([]types.StrategyConfig, []string) {
	var kept []types.StrategyConfig
	var excluded []string

	for _, preset := range types.Presets() {
		if preset.Name == types.StrategyPro1 && snapshot.IsGoldenCross {
			excluded = append(excluded, fmt.Sprintf("%s excluded: golden cross active", preset.Name))

			continue
		}

		kept = append(kept, preset)
	}

	return kept, excluded
}

// pickByScore replays each candidate over the trailing score window and keeps
// the best average score. Ties keep the more aggressive preset. When every
// preset was excluded it falls back to the least conservative one and flags
// the anomaly.
func (r *Recommender) pickByScore(series *types.PriceSeries, candidates []types.StrategyConfig) (types.StrategyConfig, decimal.Decimal, bool, error) {
	if len(candidates) == 0 {
		return types.Presets()[0], decimal.Zero, true, nil
	}

	idx := series.Len() - 1
	windowStart := idx - ScoreWindowDays + 1
	if windowStart < 0 {
		windowStart = 0
	}

	best := candidates[0]
	bestScore := decimal.Decimal{}
	haveBest := false

	for _, candidate := range candidates {
		score, err := r.scoreStrategy(series, candidate, windowStart, idx)
		if err != nil {
			return types.StrategyConfig{}, decimal.Zero, false, errors.Wrapf(errors.ErrCodeRecommendationFailed, err,
				"scoring %s for %s failed", candidate.Name, series.Ticker)
		}

		if !haveBest || score.GreaterThan(bestScore) {
			best = candidate
			bestScore = score
			haveBest = true
		}
	}

	return best, bestScore, false, nil
}

// scoreStrategy runs one fixed-strategy backtest over the window and returns
// returnRate - maxDrawdown/2: reward net of half the pain.
func (r *Recommender) scoreStrategy(series *types.PriceSeries, strategy types.StrategyConfig, startIdx, endIdx int) (decimal.Decimal, error) {
	cfg := backtest.RunConfig{
		Ticker:         series.Ticker,
		StartDate:      series.At(startIdx).Date,
		EndDate:        series.At(endIdx).Date,
		InitialCapital: decimal.NewFromInt(ScoreNotional),
		Strategy:       strategy,
	}

	result, err := r.orchestrator.Run(series, cfg)
	if err != nil {
		return decimal.Zero, err
	}

	return result.ReturnRate.Sub(result.MaxDrawdown.Div(decimal.NewFromInt(2))), nil
}

// applyDowngrades moves the pick one preset more conservative per firing
// regime signal, recording each step.
func (r *Recommender) applyDowngrades(pick types.StrategyConfig, snapshot types.IndicatorSnapshot, reasons []string) (types.StrategyConfig, []string) {
	var fired []string

	if vol := snapshot.Volatility20; vol.IsSome() && vol.Unwrap().GreaterThan(volatilityDowngradeAbove) {
		fired = append(fired, fmt.Sprintf("volatility %s above %s", vol.Unwrap().StringFixed(2), volatilityDowngradeAbove))
	}

	if rsi := snapshot.RSI14; rsi.IsSome() && rsi.Unwrap().GreaterThanOrEqual(rsiDowngradeAt) {
		fired = append(fired, fmt.Sprintf("RSI %s at or above %s", rsi.Unwrap().StringFixed(2), rsiDowngradeAt))
	}

	if disp := snapshot.Disparity; disp.IsSome() && disp.Unwrap().GreaterThan(disparityDowngradeAbove) {
		fired = append(fired, fmt.Sprintf("disparity %s above %s", disp.Unwrap().StringFixed(2), disparityDowngradeAbove))
	}

	for _, signal := range fired {
		downgraded := pick.Downgrade()
		if downgraded.Name == pick.Name {
			reasons = append(reasons, fmt.Sprintf("%s, already at most conservative preset", signal))

			continue
		}

		reasons = append(reasons, fmt.Sprintf("downgraded %s to %s: %s", pick.Name, downgraded.Name, signal))
		pick = downgraded
	}

	return pick, reasons
}
