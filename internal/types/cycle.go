package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// Cycle is one full accumulation-to-liquidation round trip: it starts when
// the first buy occurs after all tiers were empty, and ends the day all tiers
// become empty again. Cycles compound: a cycle's initial capital equals the
// prior cycle's final asset.
type Cycle struct {
	Number         int                              `yaml:"number" json:"number"`
	StartDate      time.Time                        `yaml:"start_date" json:"start_date"`
	EndDate        optional.Option[time.Time]       `yaml:"end_date" json:"end_date"`
	Strategy       string                           `yaml:"strategy" json:"strategy"`
	InitialCapital decimal.Decimal                  `yaml:"initial_capital" json:"initial_capital"`
	FinalAsset     optional.Option[decimal.Decimal] `yaml:"final_asset" json:"final_asset"`
}

// IsOpen reports whether the cycle has not yet fully liquidated.
func (c Cycle) IsOpen() bool {
	return c.EndDate.IsNone()
}

// Return returns the cycle's realized return rate (final/initial - 1), or
// None while the cycle is open.
func (c Cycle) Return() optional.Option[decimal.Decimal] {
	if c.FinalAsset.IsNone() || c.InitialCapital.Sign() <= 0 {
		return optional.None[decimal.Decimal]()
	}

	return optional.Some(c.FinalAsset.Unwrap().Div(c.InitialCapital).Sub(decimal.NewFromInt(1)))
}

// CycleStrategyInfo records which strategy a recommend-driven backtest used
// for a cycle and the recommender's stated reason, for later audit.
type CycleStrategyInfo struct {
	CycleNumber   int       `yaml:"cycle_number" json:"cycle_number"`
	Strategy      string    `yaml:"strategy" json:"strategy"`
	Reason        string    `yaml:"reason" json:"reason"`
	RecommendedAt time.Time `yaml:"recommended_at" json:"recommended_at"`
}
