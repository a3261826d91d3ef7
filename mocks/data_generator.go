package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tierlab/splitbuy/internal/types"
)

// DataGenerator generates realistic daily price history for testing and
// benchmarking.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how daily price history is generated.
type GeneratorConfig struct {
	// Ticker is the trading symbol (e.g., "SOXL", "TQQQ")
	Ticker string
	// StartDate is the first trading day of the series
	StartDate time.Time
	// Count is the number of trading days to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% typical daily volatility)
	Volatility float64
	// Trend is the drift factor (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per day
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Ticker:         "TEST",
		StartDate:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Count:          250,
		InitialPrice:   100.0,
		Volatility:     0.03, // 3% per day, leveraged ETF territory
		Trend:          0.0,  // neutral
		VolumeBase:     10_000_000,
		VolumeVariance: 0.3,
	}
}

// Generate creates a slice of daily bars based on the configuration.
// The generated data follows a geometric Brownian motion model for realistic
// price movements. Weekends are skipped so consecutive bars look like real
// trading days; the synthetic history has no splits or dividends, so the
// adjusted close equals the raw close.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.PricePoint {
	data := make([]types.PricePoint, config.Count)
	currentPrice := config.InitialPrice
	currentDate := nextTradingDay(config.StartDate.AddDate(0, 0, -1))

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for a normally distributed daily return
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		priceChange := config.Volatility * z
		drift := config.Trend / float64(config.Count) // Distribute trend across bars

		close := open * (1 + priceChange + drift)
		if close <= 0 {
			close = open * 0.99 // Prevent negative prices
		}

		// High and low are within the open-close range plus some extension
		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, close) + highExtension
		low := math.Min(open, close) - lowExtension
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		// Volume with variance
		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance
		volume := config.VolumeBase * volumeVariation
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		closeDec := decimal.NewFromFloat(roundToDecimals(close, 4))

		data[i] = types.PricePoint{
			Date:     currentDate,
			Open:     decimal.NewFromFloat(roundToDecimals(open, 4)),
			High:     decimal.NewFromFloat(roundToDecimals(high, 4)),
			Low:      decimal.NewFromFloat(roundToDecimals(low, 4)),
			Close:    closeDec,
			AdjClose: closeDec,
			Volume:   roundToDecimals(volume, 2),
		}

		currentPrice = close
		currentDate = nextTradingDay(currentDate)
	}

	return data
}

// GenerateSeries generates an indexed price series for one ticker.
func (g *DataGenerator) GenerateSeries(config GeneratorConfig) (*types.PriceSeries, error) {
	return types.NewPriceSeries(config.Ticker, g.Generate(config))
}

// GenerateMultiTicker generates series for multiple tickers, varying initial
// price and volatility slightly per ticker.
func (g *DataGenerator) GenerateMultiTicker(tickers []string, baseConfig GeneratorConfig) ([]*types.PriceSeries, error) {
	series := make([]*types.PriceSeries, 0, len(tickers))

	for _, ticker := range tickers {
		config := baseConfig
		config.Ticker = ticker
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		s, err := g.GenerateSeries(config)
		if err != nil {
			return nil, err
		}

		series = append(series, s)
	}

	return series, nil
}

// GenerateYear is a convenience function to generate one year of trading days
// with default settings for benchmarking.
func GenerateYear(ticker string) []types.PricePoint {
	gen := NewDataGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.Ticker = ticker
	config.Count = 252
	return gen.Generate(config)
}

// nextTradingDay returns the next weekday after the given date.
func nextTradingDay(date time.Time) time.Time {
	next := date.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
