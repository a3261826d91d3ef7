package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// IndicatorSnapshot is the full set of daily technical metrics at one index of
// a price series. A field is None when the trailing history is too short for
// its lookback.
type IndicatorSnapshot struct {
	MA20             optional.Option[decimal.Decimal] `yaml:"ma20" json:"ma20"`
	MA60             optional.Option[decimal.Decimal] `yaml:"ma60" json:"ma60"`
	GoldenCrossValue optional.Option[decimal.Decimal] `yaml:"golden_cross_value" json:"golden_cross_value"`
	IsGoldenCross    bool                             `yaml:"is_golden_cross" json:"is_golden_cross"`
	MASlope          optional.Option[decimal.Decimal] `yaml:"ma_slope" json:"ma_slope"`
	Disparity        optional.Option[decimal.Decimal] `yaml:"disparity" json:"disparity"`
	RSI14            optional.Option[decimal.Decimal] `yaml:"rsi14" json:"rsi14"`
	ROC12            optional.Option[decimal.Decimal] `yaml:"roc12" json:"roc12"`
	Volatility20     optional.Option[decimal.Decimal] `yaml:"volatility20" json:"volatility20"`
}

// IsComplete reports whether every metric could be computed.
func (s IndicatorSnapshot) IsComplete() bool {
	return s.MA20.IsSome() && s.MA60.IsSome() && s.GoldenCrossValue.IsSome() &&
		s.MASlope.IsSome() && s.Disparity.IsSome() && s.RSI14.IsSome() &&
		s.ROC12.IsSome() && s.Volatility20.IsSome()
}

// RecommendationRecord is the immutable output of the strategy recommender
// for one (ticker, date). Recomputing with identical inputs yields an
// identical record.
type RecommendationRecord struct {
	Ticker   string            `yaml:"ticker" json:"ticker"`
	Date     time.Time         `yaml:"date" json:"date"`
	Strategy string            `yaml:"strategy" json:"strategy"`
	Reason   string            `yaml:"reason" json:"reason"`
	Metrics  IndicatorSnapshot `yaml:"metrics" json:"metrics"`
}
