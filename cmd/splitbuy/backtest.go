package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tierlab/splitbuy/internal/backtest"
	"github.com/tierlab/splitbuy/internal/datasource"
	"github.com/tierlab/splitbuy/internal/logger"
	"github.com/tierlab/splitbuy/internal/recommend"
	"github.com/tierlab/splitbuy/internal/types"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// runFileConfig is the YAML shape of a backtest run config file. Flags
// override nothing; when --config is given the file is the whole input.
type runFileConfig struct {
	Ticker         string  `yaml:"ticker"`
	StartDate      string  `yaml:"start_date"`
	EndDate        string  `yaml:"end_date"`
	InitialCapital float64 `yaml:"initial_capital"`
	Strategy       string  `yaml:"strategy"`
	WithIndicators bool    `yaml:"with_indicators"`
}

func backtestCommand(appLogger *logger.Logger) *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Run a fixed-strategy backtest over a date range",
		Flags: append(runFlags(),
			&cli.StringFlag{
				Name:    "strategy",
				Usage:   fmt.Sprintf("Strategy preset name (%s)", presetNames()),
				Value:   types.Presets()[0].Name,
				Aliases: []string{"S"},
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			runConfig, series, err := prepareRun(ctx, cmd, appLogger)
			if err != nil {
				return err
			}

			strategy, err := types.PresetByName(cmd.String("strategy"))
			if err != nil {
				return err
			}

			runConfig.Strategy = strategy

			result, err := backtest.NewOrchestrator(appLogger).Run(series, runConfig)
			if err != nil {
				return err
			}

			printRunSummary(result)

			return writeResult(cmd.String("output"), result)
		},
	}
}

func recommendBacktestCommand(appLogger *logger.Logger) *cli.Command {
	return &cli.Command{
		Name:  "recommend-backtest",
		Usage: "Run a backtest that re-picks the strategy at every cycle open",
		Flags: runFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			runConfig, series, err := prepareRun(ctx, cmd, appLogger)
			if err != nil {
				return err
			}

			recommender := recommend.NewRecommender(appLogger)

			result, err := backtest.NewOrchestrator(appLogger).RunRecommendDriven(series, runConfig, recommender)
			if err != nil {
				return err
			}

			printRunSummary(&result.BacktestResult)

			for strategy, count := range result.StrategyUsage {
				fmt.Printf("  %-6s drove %d cycle(s)\n", strategy, count)
			}

			return writeResult(cmd.String("output"), result)
		},
	}
}

// runFlags are the flags shared by both backtest variants.
func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to a YAML run config file; replaces the other run flags",
			Aliases: []string{"c"},
		},
		&cli.StringFlag{
			Name:    "ticker",
			Usage:   "Stock ticker symbol",
			Aliases: []string{"t"},
		},
		dateFlag("start", "s", "First trading day in `YYYY-MM-DD` format", false),
		dateFlag("end", "e", "Last trading day in `YYYY-MM-DD` format", false),
		&cli.FloatFlag{
			Name:  "capital",
			Usage: "Initial capital",
			Value: 10000,
		},
		&cli.StringFlag{
			Name:    "data",
			Usage:   "Parquet glob the price store reads (e.g. data/*.parquet)",
			Value:   "data/*.parquet",
			Aliases: []string{"d"},
		},
		&cli.StringFlag{
			Name:    "output",
			Usage:   "Path to write the full YAML result to; summary only when omitted",
			Aliases: []string{"o"},
		},
		&cli.BoolFlag{
			Name:  "with-indicators",
			Usage: "Attach the daily indicator snapshot to every history entry",
		},
	}
}

// prepareRun resolves the run config (file or flags) and loads the full price
// history for the ticker. The orchestrator narrows to the requested window
// itself so the recommender keeps its lookback.
func prepareRun(ctx context.Context, cmd *cli.Command, appLogger *logger.Logger) (backtest.RunConfig, *types.PriceSeries, error) {
	runConfig, err := resolveRunConfig(cmd)
	if err != nil {
		return backtest.RunConfig{}, nil, err
	}

	store, err := datasource.NewDuckDBStore(cmd.String("data"), appLogger)
	if err != nil {
		return backtest.RunConfig{}, nil, err
	}
	defer store.Close()

	series, err := store.GetAllPrices(ctx, runConfig.Ticker)
	if err != nil {
		return backtest.RunConfig{}, nil, err
	}

	return runConfig, series, nil
}

func resolveRunConfig(cmd *cli.Command) (backtest.RunConfig, error) {
	if path := cmd.String("config"); path != "" {
		return loadRunConfigFile(path)
	}

	if cmd.String("ticker") == "" {
		return backtest.RunConfig{}, fmt.Errorf("either --config or --ticker/--start/--end is required")
	}

	return backtest.RunConfig{
		Ticker:         cmd.String("ticker"),
		StartDate:      cmd.Timestamp("start"),
		EndDate:        cmd.Timestamp("end"),
		InitialCapital: decimal.NewFromFloat(cmd.Float("capital")),
		WithIndicators: cmd.Bool("with-indicators"),
	}, nil
}

func loadRunConfigFile(path string) (backtest.RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return backtest.RunConfig{}, fmt.Errorf("failed to read run config: %w", err)
	}

	var file runFileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return backtest.RunConfig{}, fmt.Errorf("failed to parse run config: %w", err)
	}

	startDate, err := time.Parse(types.DateLayout, file.StartDate)
	if err != nil {
		return backtest.RunConfig{}, fmt.Errorf("invalid start_date: %w", err)
	}

	endDate, err := time.Parse(types.DateLayout, file.EndDate)
	if err != nil {
		return backtest.RunConfig{}, fmt.Errorf("invalid end_date: %w", err)
	}

	runConfig := backtest.RunConfig{
		Ticker:         file.Ticker,
		StartDate:      startDate,
		EndDate:        endDate,
		InitialCapital: decimal.NewFromFloat(file.InitialCapital),
		WithIndicators: file.WithIndicators,
	}

	if file.Strategy != "" {
		strategy, err := types.PresetByName(file.Strategy)
		if err != nil {
			return backtest.RunConfig{}, err
		}

		runConfig.Strategy = strategy
	}

	return runConfig, nil
}

func printRunSummary(result *types.BacktestResult) {
	fmt.Printf("Final asset:   %s\n", result.FinalAsset)
	fmt.Printf("Return rate:   %s%%\n", result.ReturnRate.Mul(decimal.NewFromInt(100)).StringFixed(2))
	fmt.Printf("Max drawdown:  %s%%\n", result.MaxDrawdown.Mul(decimal.NewFromInt(100)).StringFixed(2))
	fmt.Printf("Cycles:        %d\n", result.TotalCycles)
	fmt.Printf("Win rate:      %s%%\n", result.WinRate.Mul(decimal.NewFromInt(100)).StringFixed(2))
}

func writeResult(path string, result any) error {
	if path == "" {
		return nil
	}

	if err := types.WriteBacktestResult(path, result); err != nil {
		return err
	}

	fmt.Printf("Full result written to %s\n", path)

	return nil
}

func presetNames() string {
	names := ""

	for i, preset := range types.Presets() {
		if i > 0 {
			names += ", "
		}

		names += preset.Name
	}

	return names
}
