package provider

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/schollz/progressbar/v3"

	"github.com/tierlab/splitbuy/pkg/marketdata/writer"
)

const dateLayout = "2006-01-02"

// PolygonClient downloads daily aggregates from Polygon. Each day is fetched
// twice: once unadjusted for the raw OHLC the live order flow executes at,
// once adjusted for the adj_close the backtest and indicators run on.
type PolygonClient struct {
	client *polygon.Client
	writer writer.DailyBarWriter
}

// NewPolygonClient creates a Polygon-backed provider.
func NewPolygonClient(apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}

	return &PolygonClient{
		client: polygon.New(apiKey),
		writer: nil,
	}, nil
}

func (c *PolygonClient) ConfigWriter(w writer.DailyBarWriter) {
	c.writer = w
}

func (c *PolygonClient) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, onProgress OnDownloadProgress) (path string, err error) {
	if c.writer == nil {
		return "", fmt.Errorf("no writer configured for PolygonClient. Call ConfigWriter first")
	}

	err = c.writer.Initialize()
	if err != nil {
		return "", fmt.Errorf("failed to initialize writer: %w", err)
	}

	defer func() {
		if cerr := c.writer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("error closing writer: %w", cerr)
		}
	}()

	adjustedCloses, err := c.fetchAdjustedCloses(ctx, ticker, startDate, endDate)
	if err != nil {
		return "", err
	}

	totalDays := int(endDate.Sub(startDate).Hours()/24) + 1
	bar := progressbar.NewOptions(totalDays,
		progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", ticker)),
		progressbar.OptionShowCount())

	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(startDate),
		To:         models.Millis(endDate),
	}.WithLimit(50000).WithAdjusted(false)

	iter := c.client.ListAggs(ctx, params)

	processedCount := 0

	for iter.Next() {
		agg := iter.Item()
		day := time.Time(agg.Timestamp).UTC()

		adjClose, ok := adjustedCloses[day.Format(dateLayout)]
		if !ok {
			// The two aggregate feeds cover the same trading calendar; a
			// hole means the adjusted fetch failed partway.
			return "", fmt.Errorf("no adjusted close for %s on %s", ticker, day.Format(dateLayout))
		}

		err = c.writer.Write(writer.DailyBar{
			Ticker:   ticker,
			Date:     day,
			Open:     agg.Open,
			High:     agg.High,
			Low:      agg.Low,
			Close:    agg.Close,
			AdjClose: adjClose,
			Volume:   agg.Volume,
		})
		if err != nil {
			return "", fmt.Errorf("failed to write bar: %w", err)
		}

		processedCount++
		daysElapsed := int(day.Sub(startDate).Hours() / 24)
		bar.Set(daysElapsed)

		if onProgress != nil {
			onProgress(float64(daysElapsed), float64(totalDays), fmt.Sprintf("Downloading %s", ticker))
		}
	}

	if iter.Err() != nil {
		return "", fmt.Errorf("error iterating polygon aggregates: %w", iter.Err())
	}

	bar.Finish()

	outputPath, err := c.writer.Finalize()
	if err != nil {
		return "", fmt.Errorf("failed to finalize writer: %w", err)
	}

	return outputPath, nil
}

// fetchAdjustedCloses loads the split/dividend-adjusted close per trading day.
func (c *PolygonClient) fetchAdjustedCloses(ctx context.Context, ticker string, startDate, endDate time.Time) (map[string]float64, error) {
	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(startDate),
		To:         models.Millis(endDate),
	}.WithLimit(50000).WithAdjusted(true)

	iter := c.client.ListAggs(ctx, params)
	closes := make(map[string]float64)

	for iter.Next() {
		agg := iter.Item()
		closes[time.Time(agg.Timestamp).UTC().Format(dateLayout)] = agg.Close
	}

	if iter.Err() != nil {
		return nil, fmt.Errorf("error iterating adjusted aggregates: %w", iter.Err())
	}

	return closes, nil
}
