package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/tierlab/splitbuy/internal/datasource"
	"github.com/tierlab/splitbuy/internal/indicator"
	"github.com/tierlab/splitbuy/internal/logger"
	"github.com/tierlab/splitbuy/internal/recommend"
	"github.com/tierlab/splitbuy/internal/types"
	"github.com/tierlab/splitbuy/pkg/errors"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func recommendCommand(appLogger *logger.Logger) *cli.Command {
	return &cli.Command{
		Name:  "recommend",
		Usage: "Recommend a strategy for one ticker and date",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "ticker",
				Usage:    "Stock ticker symbol",
				Aliases:  []string{"t"},
				Required: true,
			},
			dateFlag("date", "", "Trading day to recommend for in `YYYY-MM-DD` format", true),
			&cli.StringFlag{
				Name:    "data",
				Usage:   "Parquet glob the price store reads",
				Value:   "data/*.parquet",
				Aliases: []string{"d"},
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Recommendation database path; the record is persisted when set",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ticker := cmd.String("ticker")
			date := cmd.Timestamp("date")

			store, err := datasource.NewDuckDBStore(cmd.String("data"), appLogger)
			if err != nil {
				return err
			}
			defer store.Close()

			series, err := store.GetAllPrices(ctx, ticker)
			if err != nil {
				return err
			}

			idx, ok := series.IndexOf(date)
			if !ok {
				return errors.Newf(errors.ErrCodeDataNotFound, "no bar for %s on %s",
					ticker, date.Format(types.DateLayout))
			}

			record, err := recommend.NewRecommender(appLogger).RecommendAt(series, idx)
			if err != nil {
				return err
			}

			if dbPath := cmd.String("db"); dbPath != "" {
				recStore, err := recommend.NewStore(dbPath, appLogger)
				if err != nil {
					return err
				}
				defer recStore.Close()

				if err := recStore.Save(ctx, record); err != nil {
					return err
				}
			}

			out, err := yaml.Marshal(record)
			if err != nil {
				return fmt.Errorf("failed to marshal recommendation: %w", err)
			}

			fmt.Print(string(out))

			return nil
		},
	}
}

// precomputeJob is one (ticker, trading day) recommendation to compute.
type precomputeJob struct {
	series *types.PriceSeries
	idx    int
}

func precomputeCommand(appLogger *logger.Logger) *cli.Command {
	return &cli.Command{
		Name:  "precompute",
		Usage: "Precompute recommendations for every trading day in a range",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "ticker",
				Usage:    "Stock ticker symbol; repeat for multiple tickers",
				Aliases:  []string{"t"},
				Required: true,
			},
			dateFlag("start", "s", "First trading day in `YYYY-MM-DD` format", true),
			dateFlag("end", "e", "Last trading day in `YYYY-MM-DD` format", true),
			&cli.StringFlag{
				Name:    "data",
				Usage:   "Parquet glob the price store reads",
				Value:   "data/*.parquet",
				Aliases: []string{"d"},
			},
			&cli.StringFlag{
				Name:     "db",
				Usage:    "Recommendation database path",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "Number of concurrent recommendation workers",
				Value:   4,
				Aliases: []string{"w"},
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			store, err := datasource.NewDuckDBStore(cmd.String("data"), appLogger)
			if err != nil {
				return err
			}
			defer store.Close()

			recStore, err := recommend.NewStore(cmd.String("db"), appLogger)
			if err != nil {
				return err
			}
			defer recStore.Close()

			jobs, err := collectJobs(ctx, store, cmd.StringSlice("ticker"), cmd.Timestamp("start"), cmd.Timestamp("end"))
			if err != nil {
				return err
			}

			if len(jobs) == 0 {
				return errors.New(errors.ErrCodeDataNotFound, "no trading days with enough history in the requested range")
			}

			return runPrecompute(ctx, appLogger, recStore, jobs, int(cmd.Int("workers")))
		},
	}
}

// collectJobs expands the date range into per-day jobs, skipping days whose
// trailing history is shorter than the recommender's minimum lookback. The
// lookback counts the reference day itself, so index MinLookback-1 is the
// first computable day.
func collectJobs(ctx context.Context, store datasource.PriceStore, tickers []string, start, end time.Time) ([]precomputeJob, error) {
	var jobs []precomputeJob

	for _, ticker := range tickers {
		series, err := store.GetAllPrices(ctx, ticker)
		if err != nil {
			return nil, err
		}

		for idx := 0; idx < series.Len(); idx++ {
			date := series.At(idx).Date
			if date.Before(start) || date.After(end) || idx+1 < indicator.MinLookback {
				continue
			}

			jobs = append(jobs, precomputeJob{series: series, idx: idx})
		}
	}

	return jobs, nil
}

// runPrecompute fans the jobs out over a worker pool. Workers share one cache
// so a (ticker, date) pair is computed at most once even when jobs overlap.
func runPrecompute(ctx context.Context, appLogger *logger.Logger, recStore *recommend.Store, jobs []precomputeJob, workers int) error {
	if workers < 1 {
		workers = 1
	}

	// Per-run logging would swamp the progress bar.
	recommender := recommend.NewRecommender(logger.NewNopLogger())
	cache := recommend.NewCache()

	bar := progressbar.NewOptions(len(jobs),
		progressbar.OptionSetDescription("Precomputing recommendations"),
		progressbar.OptionShowCount())

	jobCh := make(chan precomputeJob)

	var wg sync.WaitGroup

	var mu sync.Mutex

	var firstErr error

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for job := range jobCh {
				err := processJob(ctx, recommender, cache, recStore, job)

				mu.Lock()
				if err != nil && firstErr == nil {
					firstErr = err
				}
				mu.Unlock()

				bar.Add(1)
			}
		}()
	}

	for _, job := range jobs {
		jobCh <- job
	}

	close(jobCh)
	wg.Wait()
	bar.Finish()

	if firstErr != nil {
		return firstErr
	}

	appLogger.Info("precompute finished")
	fmt.Printf("\nPrecomputed %d recommendation(s)\n", len(jobs))

	return nil
}

func processJob(ctx context.Context, recommender *recommend.Recommender, cache *recommend.Cache, recStore *recommend.Store, job precomputeJob) error {
	record, err := cache.GetOrCompute(job.series.Ticker, job.series.At(job.idx).Date, func() (types.RecommendationRecord, error) {
		return recommender.RecommendAt(job.series, job.idx)
	})
	if err != nil {
		return err
	}

	return recStore.Save(ctx, record)
}
