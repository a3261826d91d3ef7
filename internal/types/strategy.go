package types

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"
	"github.com/tierlab/splitbuy/pkg/errors"
)

// Canonical preset names. The engine itself is parameter-agnostic; the presets
// differ only in parameter values, ordered from aggressive to conservative.
const (
	StrategyPro1 = "Pro1"
	StrategyPro2 = "Pro2"
	StrategyPro3 = "Pro3"
)

// StrategyConfig is the immutable parameter set of one tiered split-buy
// strategy. It is passed by value into the engine; swapping strategies at a
// cycle boundary is plain value substitution, never dispatch over strategy
// objects.
type StrategyConfig struct {
	// Name identifies the preset (Pro1, Pro2, Pro3) or a custom config.
	Name string `yaml:"name" json:"name" validate:"required"`
	// SplitCount is the number of tiers the investable capital is divided into.
	SplitCount int `yaml:"split_count" json:"split_count" validate:"required,min=1,max=20"`
	// DipPercent triggers the next tier buy at reference price x (1 - DipPercent).
	DipPercent decimal.Decimal `yaml:"dip_percent" json:"dip_percent"`
	// PeakPercent triggers a tier sell at its entry price x (1 + PeakPercent).
	PeakPercent decimal.Decimal `yaml:"peak_percent" json:"peak_percent"`
	// InvestRatio is the fraction of seed capital allocated across tiers; the
	// remainder is held as cash reserve.
	InvestRatio decimal.Decimal `yaml:"invest_ratio" json:"invest_ratio"`
	// StopLossDays is the elapsed trading days after which an underwater tier
	// is force-sold regardless of the peak threshold.
	StopLossDays int `yaml:"stop_loss_days" json:"stop_loss_days" validate:"required,min=1"`
	// MaxBuyCount caps the number of buys per cycle.
	MaxBuyCount int `yaml:"max_buy_count" json:"max_buy_count" validate:"required,min=1"`
}

// Validate checks structural constraints plus the decimal ranges the
// validator tags cannot express.
func (c StrategyConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid strategy config", err)
	}

	one := decimal.NewFromInt(1)

	if c.DipPercent.Sign() <= 0 || c.DipPercent.GreaterThanOrEqual(one) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "dip_percent must be in (0, 1), got %s", c.DipPercent)
	}

	if c.PeakPercent.Sign() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "peak_percent must be positive, got %s", c.PeakPercent)
	}

	if c.InvestRatio.Sign() <= 0 || c.InvestRatio.GreaterThan(one) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "invest_ratio must be in (0, 1], got %s", c.InvestRatio)
	}

	if c.MaxBuyCount < c.SplitCount {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"max_buy_count %d must allow filling all %d tiers", c.MaxBuyCount, c.SplitCount)
	}

	return nil
}

// Presets returns the canonical strategy presets in aggressive-to-conservative
// order.
func Presets() []StrategyConfig {
	return []StrategyConfig{
		{
			Name:         StrategyPro1,
			SplitCount:   6,
			DipPercent:   decimal.RequireFromString("0.03"),
			PeakPercent:  decimal.RequireFromString("0.06"),
			InvestRatio:  decimal.RequireFromString("0.9"),
			StopLossDays: 30,
			MaxBuyCount:  6,
		},
		{
			Name:         StrategyPro2,
			SplitCount:   6,
			DipPercent:   decimal.RequireFromString("0.05"),
			PeakPercent:  decimal.RequireFromString("0.1"),
			InvestRatio:  decimal.RequireFromString("0.75"),
			StopLossDays: 25,
			MaxBuyCount:  6,
		},
		{
			Name:         StrategyPro3,
			SplitCount:   8,
			DipPercent:   decimal.RequireFromString("0.07"),
			PeakPercent:  decimal.RequireFromString("0.12"),
			InvestRatio:  decimal.RequireFromString("0.6"),
			StopLossDays: 20,
			MaxBuyCount:  8,
		},
	}
}

// PresetByName looks up a canonical preset.
func PresetByName(name string) (StrategyConfig, error) {
	for _, preset := range Presets() {
		if preset.Name == name {
			return preset, nil
		}
	}

	return StrategyConfig{}, errors.Newf(errors.ErrCodeUnknownStrategy, "no preset named %s", name)
}

// Downgrade returns the next more conservative preset, or the config itself
// when it is already the most conservative one (or not a preset).
func (c StrategyConfig) Downgrade() StrategyConfig {
	switch c.Name {
	case StrategyPro1:
		cfg, _ := PresetByName(StrategyPro2)

		return cfg
	case StrategyPro2:
		cfg, _ := PresetByName(StrategyPro3)

		return cfg
	default:
		return c
	}
}

// SchemaJSON returns the JSON schema of StrategyConfig for external tooling.
func (c StrategyConfig) SchemaJSON() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(c)

	jsonSchemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(jsonSchemaBytes), nil
}
