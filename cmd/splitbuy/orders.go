package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tierlab/splitbuy/internal/datasource"
	"github.com/tierlab/splitbuy/internal/live"
	"github.com/tierlab/splitbuy/internal/logger"
	"github.com/tierlab/splitbuy/internal/types"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func accountCommand(appLogger *logger.Logger) *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "Manage live strategy accounts",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a new live account",
				Flags: []cli.Flag{
					accountDBFlag(),
					accountIDFlag(),
					&cli.StringFlag{
						Name:     "ticker",
						Usage:    "Stock ticker symbol the account trades",
						Aliases:  []string{"t"},
						Required: true,
					},
					&cli.StringFlag{
						Name:     "strategy",
						Usage:    fmt.Sprintf("Strategy preset name (%s)", presetNames()),
						Aliases:  []string{"S"},
						Required: true,
					},
					&cli.FloatFlag{
						Name:     "cash",
						Usage:    "Starting cash",
						Required: true,
					},
					&cli.FloatFlag{
						Name:     "last-close",
						Usage:    "Raw close of the last trading day; anchors the first buy trigger",
						Required: true,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if _, err := types.PresetByName(cmd.String("strategy")); err != nil {
						return err
					}

					state, err := live.NewAccountState(cmd.String("db"), appLogger)
					if err != nil {
						return err
					}
					defer state.Close()

					now := time.Now().UTC()
					account := live.Account{
						AccountID: cmd.String("account"),
						Ticker:    cmd.String("ticker"),
						Strategy:  cmd.String("strategy"),
						Cash:      decimal.NewFromFloat(cmd.Float("cash")),
						LastClose: decimal.NewFromFloat(cmd.Float("last-close")),
						CreatedAt: now,
						UpdatedAt: now,
					}

					if err := state.CreateAccount(ctx, account); err != nil {
						return err
					}

					fmt.Printf("Created account %s (%s, %s)\n", account.AccountID, account.Ticker, account.Strategy)

					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Print the persisted state of an account",
				Flags: []cli.Flag{accountDBFlag(), accountIDFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					state, err := live.NewAccountState(cmd.String("db"), appLogger)
					if err != nil {
						return err
					}
					defer state.Close()

					account, err := state.GetAccount(ctx, cmd.String("account"))
					if err != nil {
						return err
					}

					return printYAML(account)
				},
			},
		},
	}
}

func ordersCommand(appLogger *logger.Logger) *cli.Command {
	return &cli.Command{
		Name:  "orders",
		Usage: "Generate and reconcile daily order sheets",
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Generate the next trading day's limit order sheet",
				Flags: []cli.Flag{
					accountDBFlag(),
					accountIDFlag(),
					dateFlag("date", "", "Order sheet date in `YYYY-MM-DD` format", true),
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					state, err := live.NewAccountState(cmd.String("db"), appLogger)
					if err != nil {
						return err
					}
					defer state.Close()

					orders, err := live.NewManager(state, appLogger).GenerateDailyOrders(ctx, cmd.String("account"), cmd.Timestamp("date"))
					if err != nil {
						return err
					}

					if len(orders) == 0 {
						fmt.Println("No orders for the day.")
						return nil
					}

					return printYAML(orders)
				},
			},
			{
				Name:  "process",
				Usage: "Reconcile the pending order sheet against a realized close",
				Flags: []cli.Flag{
					accountDBFlag(),
					accountIDFlag(),
					dateFlag("date", "", "Trading day whose close to reconcile against, in `YYYY-MM-DD` format", true),
					&cli.StringFlag{
						Name:    "data",
						Usage:   "Parquet glob the price store reads",
						Value:   "data/*.parquet",
						Aliases: []string{"d"},
					},
					&cli.BoolFlag{
						Name:  "keep-pending",
						Usage: "Keep unexecuted orders pending instead of clearing them for regeneration",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					state, err := live.NewAccountState(cmd.String("db"), appLogger)
					if err != nil {
						return err
					}
					defer state.Close()

					accountID := cmd.String("account")

					account, err := state.GetAccount(ctx, accountID)
					if err != nil {
						return err
					}

					bar, err := loadBar(ctx, appLogger, cmd.String("data"), account.Ticker, cmd.Timestamp("date"))
					if err != nil {
						return err
					}

					manager := live.NewManager(state, appLogger)

					var results []types.ExecutionResult
					if cmd.Bool("keep-pending") {
						results, err = manager.ProcessOrderExecution(ctx, accountID, bar)
					} else {
						results, err = manager.ProcessPreviousDayExecution(ctx, accountID, bar)
					}

					if err != nil {
						return err
					}

					for _, result := range results {
						if result.Filled {
							fmt.Printf("%-9s tier %d filled %d @ %s\n",
								result.Order.Side, result.Order.TierIndex, result.Order.Quantity, result.FillPrice)
						} else {
							fmt.Printf("%-9s tier %d unfilled: %s\n",
								result.Order.Side, result.Order.TierIndex, result.Note)
						}
					}

					return nil
				},
			},
		},
	}
}

// loadBar fetches the single daily bar for the given trading day.
func loadBar(ctx context.Context, appLogger *logger.Logger, dataGlob, ticker string, date time.Time) (types.PricePoint, error) {
	store, err := datasource.NewDuckDBStore(dataGlob, appLogger)
	if err != nil {
		return types.PricePoint{}, err
	}
	defer store.Close()

	series, err := store.GetPriceRange(ctx, ticker, date, date)
	if err != nil {
		return types.PricePoint{}, err
	}

	return series.At(0), nil
}

func accountDBFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "db",
		Usage: "Account database path",
		Value: "accounts.db",
	}
}

func accountIDFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "account",
		Usage:    "Account identifier",
		Aliases:  []string{"a"},
		Required: true,
	}
}

func printYAML(v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	fmt.Print(string(out))

	return nil
}
