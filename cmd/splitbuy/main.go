package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/tierlab/splitbuy/internal/logger"
	"github.com/tierlab/splitbuy/internal/types"
	"github.com/urfave/cli/v3"
)

func main() {
	appLogger, err := logger.NewLogger()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer appLogger.Sync()

	cmd := &cli.Command{
		Name:  "splitbuy",
		Usage: "Tiered split-buy backtesting, strategy recommendation and daily order sheets",
		Commands: []*cli.Command{
			backtestCommand(appLogger),
			recommendBacktestCommand(appLogger),
			recommendCommand(appLogger),
			precomputeCommand(appLogger),
			accountCommand(appLogger),
			ordersCommand(appLogger),
			downloadCommand(),
			schemaCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		appLogger.Sync()
		log.Fatal(err)
	}
}

// schemaCommand prints the JSON schema for the strategy configuration so
// external tools can validate hand-written configs.
func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the strategy configuration JSON schema",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			schema, err := types.StrategyConfig{}.SchemaJSON()
			if err != nil {
				return fmt.Errorf("failed to generate schema: %w", err)
			}

			fmt.Println(schema)

			return nil
		},
	}
}

// dateFlag builds a YYYY-MM-DD timestamp flag.
func dateFlag(name, alias, usage string, required bool) *cli.TimestampFlag {
	flag := &cli.TimestampFlag{
		Name:     name,
		Usage:    usage,
		Required: required,
		Config: cli.TimestampConfig{
			Layouts: []string{types.DateLayout},
		},
	}
	if alias != "" {
		flag.Aliases = []string{alias}
	}

	return flag
}
