package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/tierlab/splitbuy/pkg/errors"
)

// OrderSide classifies a daily limit order.
type OrderSide string

const (
	OrderSideBuy      OrderSide = "BUY"
	OrderSideSell     OrderSide = "SELL"
	OrderSideStopLoss OrderSide = "STOP_LOSS"
)

// DailyOrder is one limit order on the next trading day's order sheet for an
// account. Unexecuted orders are never silently dropped: they are re-evaluated
// against the following day's price before fresh orders are generated.
type DailyOrder struct {
	OrderID   string    `yaml:"order_id" json:"order_id" validate:"required,uuid"`
	AccountID string    `yaml:"account_id" json:"account_id" validate:"required"`
	Ticker    string    `yaml:"ticker" json:"ticker" validate:"required"`
	Date      time.Time `yaml:"date" json:"date" validate:"required"`
	TierIndex int       `yaml:"tier_index" json:"tier_index" validate:"min=0"`
	Side      OrderSide `yaml:"side" json:"side" validate:"required,oneof=BUY SELL STOP_LOSS"`
	// LimitPrice is the dip-trigger price for buys and the peak-trigger price
	// for sells. Stop-loss orders carry the entry price for reference only.
	LimitPrice decimal.Decimal `yaml:"limit_price" json:"limit_price"`
	Quantity   int64           `yaml:"quantity" json:"quantity" validate:"required,gt=0"`
	Executed   bool            `yaml:"executed" json:"executed"`
	// ExecutedPrice is set once the order has been reconciled against a
	// realized close.
	ExecutedPrice optional.Option[decimal.Decimal] `yaml:"executed_price" json:"executed_price"`
	CreatedAt     time.Time                        `yaml:"created_at" json:"created_at"`
}

// Validate validates the DailyOrder struct.
func (o *DailyOrder) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid daily order", err)
	}

	if o.LimitPrice.Sign() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidOrder, "limit price must be positive, got %s", o.LimitPrice)
	}

	return nil
}

// ExecutionResult is the outcome of reconciling one generated order against a
// realized close price.
type ExecutionResult struct {
	Order     DailyOrder      `yaml:"order" json:"order"`
	Filled    bool            `yaml:"filled" json:"filled"`
	FillPrice decimal.Decimal `yaml:"fill_price" json:"fill_price"`
	Note      string          `yaml:"note" json:"note"`
}
