package types

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// BacktestResult aggregates one fixed-strategy run.
type BacktestResult struct {
	// FinalAsset is the total asset on the last processed day, rounded to cents.
	FinalAsset decimal.Decimal `yaml:"final_asset" json:"final_asset"`
	// ReturnRate is finalAsset/initialCapital - 1.
	ReturnRate decimal.Decimal `yaml:"return_rate" json:"return_rate"`
	// MaxDrawdown is the largest peak-to-trough decline of total asset value.
	MaxDrawdown decimal.Decimal `yaml:"max_drawdown" json:"max_drawdown"`
	// TotalCycles counts every cycle opened during the run, including one
	// still open at the end.
	TotalCycles int `yaml:"total_cycles" json:"total_cycles"`
	// WinRate is the fraction of closed cycles with positive return.
	WinRate decimal.Decimal `yaml:"win_rate" json:"win_rate"`
	// DailyHistory is the append-only snapshot log, one entry per trading day.
	DailyHistory []DailySnapshot `yaml:"daily_history" json:"daily_history"`
	// Cycles lists every cycle in order.
	Cycles []Cycle `yaml:"cycles" json:"cycles"`
}

// RecommendBacktestResult extends BacktestResult with the per-cycle strategy
// audit trail of a recommend-driven run.
type RecommendBacktestResult struct {
	BacktestResult `yaml:",inline" json:",inline"`
	// CycleStrategies records, per cycle, which strategy was used and why.
	CycleStrategies []CycleStrategyInfo `yaml:"cycle_strategies" json:"cycle_strategies"`
	// StrategyUsage counts how many cycles each strategy drove.
	StrategyUsage map[string]int `yaml:"strategy_usage" json:"strategy_usage"`
}

// WriteBacktestResult writes a result to a YAML file.
func WriteBacktestResult(path string, result any) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}

	return nil
}
