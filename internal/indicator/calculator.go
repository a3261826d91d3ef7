// Package indicator computes the daily technical metrics that feed strategy
// selection: moving averages, golden-cross value, moving-average slope,
// disparity, RSI, rate-of-change and rolling volatility.
//
// Fixed method choices:
//   - RSI uses Wilder smoothing, seeded with a simple average over the first
//     `period` deltas of a fixed 2x`period` trailing window. The fixed window
//     keeps the value independent of how much extra history the series carries.
//   - Volatility is the sample standard deviation of simple daily percentage
//     returns; the square root is the only step computed through float64.
//
// Every metric returns None when the trailing history is shorter than its
// lookback.
package indicator

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/tierlab/splitbuy/internal/types"
)

// Lookback periods. MinLookback is the number of trailing trading days that
// must exist before a complete snapshot (and therefore any recommendation or
// recommend-driven backtest) can be computed.
const (
	MAShortPeriod    = 20
	MALongPeriod     = 60
	SlopeLookback    = 10
	RSIPeriod        = 14
	ROCPeriod        = 12
	VolatilityPeriod = 20
	MinLookback      = 60
)

var hundred = decimal.NewFromInt(100)

// Calculator computes metrics over one price series. It is a pure function
// library: it never mutates the series and holds no per-day state.
type Calculator struct {
	series *types.PriceSeries
}

// NewCalculator creates a calculator over the given series.
func NewCalculator(series *types.PriceSeries) *Calculator {
	return &Calculator{series: series}
}

// MA returns the simple moving average of adjClose over the trailing period
// ending at idx.
func (c *Calculator) MA(idx, period int) optional.Option[decimal.Decimal] {
	if idx >= c.series.Len() || idx-period+1 < 0 {
		return optional.None[decimal.Decimal]()
	}

	sum := decimal.Zero
	for i := idx - period + 1; i <= idx; i++ {
		sum = sum.Add(c.series.At(i).AdjClose)
	}

	return optional.Some(sum.Div(decimal.NewFromInt(int64(period))))
}

// GoldenCrossValue returns (MA20 - MA60) / MA60 x 100.
func (c *Calculator) GoldenCrossValue(idx int) optional.Option[decimal.Decimal] {
	maShort := c.MA(idx, MAShortPeriod)
	maLong := c.MA(idx, MALongPeriod)

	if maShort.IsNone() || maLong.IsNone() {
		return optional.None[decimal.Decimal]()
	}

	long := maLong.Unwrap()
	if long.IsZero() {
		return optional.None[decimal.Decimal]()
	}

	return optional.Some(maShort.Unwrap().Sub(long).Div(long).Mul(hundred))
}

// MASlope returns the percent change of MA20 versus MA20 ten trading days
// earlier.
func (c *Calculator) MASlope(idx int) optional.Option[decimal.Decimal] {
	current := c.MA(idx, MAShortPeriod)
	previous := c.MA(idx-SlopeLookback, MAShortPeriod)

	if current.IsNone() || previous.IsNone() {
		return optional.None[decimal.Decimal]()
	}

	prev := previous.Unwrap()
	if prev.IsZero() {
		return optional.None[decimal.Decimal]()
	}

	return optional.Some(current.Unwrap().Sub(prev).Div(prev).Mul(hundred))
}

// Disparity returns (adjClose / MA20 - 1) x 100.
func (c *Calculator) Disparity(idx int) optional.Option[decimal.Decimal] {
	ma := c.MA(idx, MAShortPeriod)
	if ma.IsNone() {
		return optional.None[decimal.Decimal]()
	}

	base := ma.Unwrap()
	if base.IsZero() {
		return optional.None[decimal.Decimal]()
	}

	return optional.Some(c.series.At(idx).AdjClose.Div(base).Sub(decimal.NewFromInt(1)).Mul(hundred))
}

// RSI returns the relative-strength index over adjClose deltas with Wilder
// smoothing. The calculation window is fixed at 2x period trailing deltas.
func (c *Calculator) RSI(idx, period int) optional.Option[decimal.Decimal] {
	windowDeltas := 2 * period
	if idx >= c.series.Len() || idx-windowDeltas < 0 {
		return optional.None[decimal.Decimal]()
	}

	periodDec := decimal.NewFromInt(int64(period))
	avgGain := decimal.Zero
	avgLoss := decimal.Zero

	// Seed with a simple average over the first `period` deltas of the window.
	start := idx - windowDeltas
	for i := start + 1; i <= start+period; i++ {
		change := c.series.At(i).AdjClose.Sub(c.series.At(i - 1).AdjClose)
		if change.Sign() > 0 {
			avgGain = avgGain.Add(change)
		} else {
			avgLoss = avgLoss.Add(change.Neg())
		}
	}

	avgGain = avgGain.Div(periodDec)
	avgLoss = avgLoss.Div(periodDec)

	// Wilder smoothing over the remaining deltas.
	smoothing := periodDec.Sub(decimal.NewFromInt(1))
	for i := start + period + 1; i <= idx; i++ {
		change := c.series.At(i).AdjClose.Sub(c.series.At(i - 1).AdjClose)

		gain := decimal.Zero
		loss := decimal.Zero

		if change.Sign() > 0 {
			gain = change
		} else {
			loss = change.Neg()
		}

		avgGain = avgGain.Mul(smoothing).Add(gain).Div(periodDec)
		avgLoss = avgLoss.Mul(smoothing).Add(loss).Div(periodDec)
	}

	if avgLoss.IsZero() {
		return optional.Some(hundred)
	}

	rs := avgGain.Div(avgLoss)

	return optional.Some(hundred.Sub(hundred.Div(decimal.NewFromInt(1).Add(rs))))
}

// ROC returns the percent change of adjClose versus `period` trading days
// earlier.
func (c *Calculator) ROC(idx, period int) optional.Option[decimal.Decimal] {
	if idx >= c.series.Len() || idx-period < 0 {
		return optional.None[decimal.Decimal]()
	}

	base := c.series.At(idx - period).AdjClose
	if base.IsZero() {
		return optional.None[decimal.Decimal]()
	}

	return optional.Some(c.series.At(idx).AdjClose.Div(base).Sub(decimal.NewFromInt(1)).Mul(hundred))
}

// Volatility returns the sample standard deviation of simple daily percentage
// returns over the trailing `period` returns (period+1 prices).
func (c *Calculator) Volatility(idx, period int) optional.Option[decimal.Decimal] {
	if idx >= c.series.Len() || idx-period < 0 || period < 2 {
		return optional.None[decimal.Decimal]()
	}

	returns := make([]decimal.Decimal, 0, period)

	for i := idx - period + 1; i <= idx; i++ {
		prev := c.series.At(i - 1).AdjClose
		if prev.IsZero() {
			return optional.None[decimal.Decimal]()
		}

		returns = append(returns, c.series.At(i).AdjClose.Div(prev).Sub(decimal.NewFromInt(1)).Mul(hundred))
	}

	mean := decimal.Avg(returns[0], returns[1:]...)
	sumSquares := decimal.Zero

	for _, r := range returns {
		diff := r.Sub(mean)
		sumSquares = sumSquares.Add(diff.Mul(diff))
	}

	variance := sumSquares.Div(decimal.NewFromInt(int64(period - 1)))
	stddev, _ := variance.Float64()

	return optional.Some(decimal.NewFromFloat(math.Sqrt(stddev)))
}

// SnapshotAt builds the full indicator snapshot for one index of the series.
// Missing lookbacks yield None fields; IsGoldenCross is false unless the
// golden-cross value is computable and strictly positive.
func (c *Calculator) SnapshotAt(idx int) types.IndicatorSnapshot {
	gcv := c.GoldenCrossValue(idx)

	isGolden := false
	if gcv.IsSome() {
		isGolden = gcv.Unwrap().Sign() > 0
	}

	return types.IndicatorSnapshot{
		MA20:             c.MA(idx, MAShortPeriod),
		MA60:             c.MA(idx, MALongPeriod),
		GoldenCrossValue: gcv,
		IsGoldenCross:    isGolden,
		MASlope:          c.MASlope(idx),
		Disparity:        c.Disparity(idx),
		RSI14:            c.RSI(idx, RSIPeriod),
		ROC12:            c.ROC(idx, ROCPeriod),
		Volatility20:     c.Volatility(idx, VolatilityPeriod),
	}
}
