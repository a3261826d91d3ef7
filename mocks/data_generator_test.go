package mocks

import (
	"testing"
	"time"
)

func TestDataGenerator_Generate(t *testing.T) {
	gen := NewDataGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.Count = 100

	data := gen.Generate(config)

	if len(data) != 100 {
		t.Errorf("expected 100 bars, got %d", len(data))
	}

	// Verify data is in chronological order on weekdays only
	for i := 1; i < len(data); i++ {
		if !data[i].Date.After(data[i-1].Date) {
			t.Errorf("data not in chronological order at index %d", i)
		}
	}

	for i, d := range data {
		if d.Date.Weekday() == time.Saturday || d.Date.Weekday() == time.Sunday {
			t.Errorf("bar at index %d falls on a weekend: %s", i, d.DateKey())
		}
	}

	// Verify OHLC values are positive and High >= Low
	for i, d := range data {
		if d.Open.Sign() <= 0 || d.High.Sign() <= 0 || d.Low.Sign() <= 0 || d.Close.Sign() <= 0 {
			t.Errorf("invalid OHLC values at index %d: O=%s H=%s L=%s C=%s",
				i, d.Open, d.High, d.Low, d.Close)
		}

		if d.High.LessThan(d.Low) {
			t.Errorf("High < Low at index %d: H=%s L=%s", i, d.High, d.Low)
		}
	}

	// Synthetic history has no corporate actions
	for i, d := range data {
		if !d.AdjClose.Equal(d.Close) {
			t.Errorf("adjusted close diverges from close at index %d", i)
		}
	}
}

func TestDataGenerator_Reproducibility(t *testing.T) {
	// Same seed should produce same results
	gen1 := NewDataGenerator(42)
	gen2 := NewDataGenerator(42)

	config := DefaultConfig()
	config.Count = 10

	data1 := gen1.Generate(config)
	data2 := gen2.Generate(config)

	for i := range data1 {
		if !data1[i].Close.Equal(data2[i].Close) {
			t.Errorf("data not reproducible at index %d: got %s and %s",
				i, data1[i].Close, data2[i].Close)
		}
	}
}

func TestDataGenerator_Different_Seeds(t *testing.T) {
	gen1 := NewDataGenerator(42)
	gen2 := NewDataGenerator(123)

	config := DefaultConfig()
	config.Count = 10

	data1 := gen1.Generate(config)
	data2 := gen2.Generate(config)

	sameCount := 0
	for i := range data1 {
		if data1[i].Close.Equal(data2[i].Close) {
			sameCount++
		}
	}

	if sameCount == len(data1) {
		t.Error("different seeds produced identical data")
	}
}

func TestGenerateSeries(t *testing.T) {
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Ticker = "SOXL"
	config.Count = 120

	series, err := gen.GenerateSeries(config)
	if err != nil {
		t.Fatalf("failed to build series: %v", err)
	}

	if series.Ticker != "SOXL" {
		t.Errorf("expected ticker SOXL, got %s", series.Ticker)
	}

	if series.Len() != 120 {
		t.Errorf("expected 120 bars, got %d", series.Len())
	}

	// Date index round-trips
	if idx, ok := series.IndexOf(series.At(60).Date); !ok || idx != 60 {
		t.Errorf("expected index 60 for date %s, got %d (found=%v)",
			series.At(60).DateKey(), idx, ok)
	}
}

func TestGenerateYear(t *testing.T) {
	data := GenerateYear("TQQQ")

	if len(data) != 252 {
		t.Errorf("expected 252 bars, got %d", len(data))
	}
}

func TestGenerateMultiTicker(t *testing.T) {
	tickers := []string{"SOXL", "TQQQ", "UPRO"}
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Count = 100

	series, err := gen.GenerateMultiTicker(tickers, config)
	if err != nil {
		t.Fatalf("failed to build series: %v", err)
	}

	if len(series) != len(tickers) {
		t.Fatalf("expected %d series, got %d", len(tickers), len(series))
	}

	for i, s := range series {
		if s.Ticker != tickers[i] {
			t.Errorf("expected ticker %s at index %d, got %s", tickers[i], i, s.Ticker)
		}

		if s.Len() != config.Count {
			t.Errorf("expected %d bars for %s, got %d", config.Count, s.Ticker, s.Len())
		}
	}
}
