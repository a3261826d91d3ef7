package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/tierlab/splitbuy/pkg/errors"
)

type StrategyTestSuite struct {
	suite.Suite
}

func TestStrategySuite(t *testing.T) {
	suite.Run(t, new(StrategyTestSuite))
}

func (suite *StrategyTestSuite) TestPresetsAreValid() {
	presets := Presets()
	suite.Len(presets, 3)

	for _, preset := range presets {
		suite.NoError(preset.Validate(), "preset %s should validate", preset.Name)
	}
}

func (suite *StrategyTestSuite) TestPresetByName() {
	cfg, err := PresetByName(StrategyPro2)
	suite.NoError(err)
	suite.Equal(StrategyPro2, cfg.Name)
	suite.Equal(6, cfg.SplitCount)
	suite.True(cfg.DipPercent.Equal(decimal.RequireFromString("0.05")))
	suite.True(cfg.PeakPercent.Equal(decimal.RequireFromString("0.1")))
}

func (suite *StrategyTestSuite) TestPresetByNameUnknown() {
	_, err := PresetByName("Pro9")
	suite.Error(err)
	suite.Equal(errors.ErrCodeUnknownStrategy, errors.GetCode(err))
}

func (suite *StrategyTestSuite) TestValidateRejectsBadDip() {
	cfg, err := PresetByName(StrategyPro1)
	suite.Require().NoError(err)

	cfg.DipPercent = decimal.RequireFromString("1.5")
	suite.Error(cfg.Validate())

	cfg.DipPercent = decimal.Zero
	suite.Error(cfg.Validate())
}

func (suite *StrategyTestSuite) TestValidateRejectsMaxBuyBelowSplit() {
	cfg, err := PresetByName(StrategyPro1)
	suite.Require().NoError(err)

	cfg.MaxBuyCount = cfg.SplitCount - 1
	suite.Error(cfg.Validate())
}

func (suite *StrategyTestSuite) TestDowngradeChain() {
	pro1, _ := PresetByName(StrategyPro1)
	pro2 := pro1.Downgrade()
	suite.Equal(StrategyPro2, pro2.Name)

	pro3 := pro2.Downgrade()
	suite.Equal(StrategyPro3, pro3.Name)

	// Pro3 is already the most conservative preset
	suite.Equal(StrategyPro3, pro3.Downgrade().Name)
}

func (suite *StrategyTestSuite) TestSchemaJSON() {
	cfg, _ := PresetByName(StrategyPro1)
	schema, err := cfg.SchemaJSON()
	suite.NoError(err)
	suite.Contains(schema, "split_count")
	suite.Contains(schema, "stop_loss_days")
}
