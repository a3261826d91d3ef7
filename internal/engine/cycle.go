package engine

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/tierlab/splitbuy/internal/types"
	"github.com/tierlab/splitbuy/pkg/errors"
)

// CycleTracker records cycle boundaries from the engine's day results. It is
// the single owner of cycle numbering: the engine reports starts and ends, the
// tracker turns them into the cycle ledger.
type CycleTracker struct {
	cycles []types.Cycle
}

// NewCycleTracker creates an empty tracker.
func NewCycleTracker() *CycleTracker {
	return &CycleTracker{}
}

// Observe consumes one day's result. Call it after every Step with the engine
// that produced the result. Ends are applied before starts so a same-day
// liquidation-plus-rebuy closes cycle N and opens cycle N+1 in one call.
func (t *CycleTracker) Observe(date time.Time, result DayResult, engine *TieredPositionEngine) error {
	if result.CycleEnded {
		if !t.hasOpenCycle() {
			return errors.Newf(errors.ErrCodeInconsistentState,
				"cycle end reported on %s with no open cycle", date.Format(types.DateLayout))
		}

		current := &t.cycles[len(t.cycles)-1]
		current.EndDate = optional.Some(date)
		current.FinalAsset = optional.Some(result.LiquidationCash)
	}

	if result.CycleStarted {
		if t.hasOpenCycle() {
			return errors.Newf(errors.ErrCodeInconsistentState,
				"cycle start reported on %s while cycle %d is still open", date.Format(types.DateLayout), t.cycles[len(t.cycles)-1].Number)
		}

		t.cycles = append(t.cycles, types.Cycle{
			Number:         len(t.cycles) + 1,
			StartDate:      date,
			Strategy:       engine.Config().Name,
			InitialCapital: engine.CycleCapital(),
		})
	}

	return nil
}

func (t *CycleTracker) hasOpenCycle() bool {
	return len(t.cycles) > 0 && t.cycles[len(t.cycles)-1].IsOpen()
}

// Cycles returns a copy of the cycle ledger, oldest first.
func (t *CycleTracker) Cycles() []types.Cycle {
	cycles := make([]types.Cycle, len(t.cycles))
	copy(cycles, t.cycles)

	return cycles
}

// CurrentCycleNumber returns the number of the open cycle, or zero while fully
// in cash between cycles.
func (t *CycleTracker) CurrentCycleNumber() int {
	if !t.hasOpenCycle() {
		return 0
	}

	return t.cycles[len(t.cycles)-1].Number
}

// TotalCycles returns how many cycles have started.
func (t *CycleTracker) TotalCycles() int {
	return len(t.cycles)
}

// WinRate returns the fraction of closed cycles that ended with a positive
// return, or zero when no cycle has closed.
func (t *CycleTracker) WinRate() decimal.Decimal {
	closed := 0
	wins := 0

	for _, cycle := range t.cycles {
		if cycle.IsOpen() {
			continue
		}

		closed++
		if ret := cycle.Return(); ret.IsSome() && ret.Unwrap().Sign() > 0 {
			wins++
		}
	}

	if closed == 0 {
		return decimal.Zero
	}

	return decimal.NewFromInt(int64(wins)).Div(decimal.NewFromInt(int64(closed)))
}
