package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tier is one fixed-size slot of a split-buy position. A tier is empty when
// ShareCount is zero; once bought its share count never changes until the tier
// sells its entire holding atomically.
type Tier struct {
	Index      int             `yaml:"index" json:"index"`
	EntryDate  time.Time       `yaml:"entry_date" json:"entry_date"`
	EntryPrice decimal.Decimal `yaml:"entry_price" json:"entry_price"`
	ShareCount int64           `yaml:"share_count" json:"share_count"`
	DaysHeld   int             `yaml:"days_held" json:"days_held"`
}

// IsEmpty reports whether the tier holds nothing.
func (t Tier) IsEmpty() bool {
	return t.ShareCount == 0
}

// MarketValue returns the tier's holding valued at the given price.
func (t Tier) MarketValue(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(t.ShareCount))
}

// PeakPrice returns the sell-trigger price for the tier under the given
// strategy: entry price x (1 + peakPercent).
func (t Tier) PeakPrice(cfg StrategyConfig) decimal.Decimal {
	return t.EntryPrice.Mul(decimal.NewFromInt(1).Add(cfg.PeakPercent))
}

// CyclePosition aggregates all tiers plus cash for one strategy instance.
// Invariant: cash + sum of tier market values equals total asset, and cash is
// never negative.
type CyclePosition struct {
	Tiers []Tier          `yaml:"tiers" json:"tiers"`
	Cash  decimal.Decimal `yaml:"cash" json:"cash"`
}

// HoldingTiers returns the non-empty tiers in index order.
func (p CyclePosition) HoldingTiers() []Tier {
	holding := make([]Tier, 0, len(p.Tiers))

	for _, t := range p.Tiers {
		if !t.IsEmpty() {
			holding = append(holding, t)
		}
	}

	return holding
}

// IsFlat reports whether every tier is empty.
func (p CyclePosition) IsFlat() bool {
	for _, t := range p.Tiers {
		if !t.IsEmpty() {
			return false
		}
	}

	return true
}

// HoldingsValue returns the market value of all held tiers at the given price.
func (p CyclePosition) HoldingsValue(price decimal.Decimal) decimal.Decimal {
	total := decimal.Zero

	for _, t := range p.Tiers {
		if !t.IsEmpty() {
			total = total.Add(t.MarketValue(price))
		}
	}

	return total
}

// TotalAsset returns cash plus holdings value at the given price.
func (p CyclePosition) TotalAsset(price decimal.Decimal) decimal.Decimal {
	return p.Cash.Add(p.HoldingsValue(price))
}

// NextEmptyTier returns the index of the lowest empty tier, or -1 when all
// tiers are holding. Tiers fill in index order, so this is also the only tier
// eligible for a buy.
func (p CyclePosition) NextEmptyTier() int {
	for i, t := range p.Tiers {
		if t.IsEmpty() {
			return i
		}
	}

	return -1
}
