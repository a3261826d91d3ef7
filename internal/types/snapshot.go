package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// TradeType classifies a trade event within a day.
type TradeType string

const (
	TradeTypeBuy      TradeType = "BUY"
	TradeTypeSell     TradeType = "SELL"
	TradeTypeStopLoss TradeType = "STOP_LOSS"
)

// Trade is a single fill recorded in a daily snapshot.
type Trade struct {
	Type   TradeType       `yaml:"type" json:"type"`
	Tier   int             `yaml:"tier" json:"tier"`
	Price  decimal.Decimal `yaml:"price" json:"price"`
	Shares int64           `yaml:"shares" json:"shares"`
}

// DailySnapshot is the state of one strategy instance after one trading day.
// Produced exactly once per processed day; the snapshot log is append-only.
// Monetary fields are rounded to 2 places at this boundary.
type DailySnapshot struct {
	Date          time.Time                          `yaml:"date" json:"date"`
	Close         decimal.Decimal                    `yaml:"close" json:"close"`
	AdjClose      decimal.Decimal                    `yaml:"adj_close" json:"adj_close"`
	CycleNumber   int                                `yaml:"cycle_number" json:"cycle_number"`
	Strategy      string                             `yaml:"strategy" json:"strategy"`
	Cash          decimal.Decimal                    `yaml:"cash" json:"cash"`
	HoldingsValue decimal.Decimal                    `yaml:"holdings_value" json:"holdings_value"`
	TotalAsset    decimal.Decimal                    `yaml:"total_asset" json:"total_asset"`
	Trades        []Trade                            `yaml:"trades" json:"trades"`
	Indicators    optional.Option[IndicatorSnapshot] `yaml:"indicators" json:"indicators"`
}
