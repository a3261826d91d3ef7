package writer

import "time"

// DailyBar is one ingested daily bar. Values stay float64 at this boundary;
// the read side converts to fixed-point decimals.
type DailyBar struct {
	Ticker   string
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   float64
}

// DailyBarWriter defines the interface for persisting downloaded daily bars.
type DailyBarWriter interface {
	// Initialize sets up the writer, potentially creating tables or files.
	Initialize() error
	// Write persists a single daily bar.
	Write(bar DailyBar) error
	// Finalize completes the writing process (e.g., commits transactions, exports files).
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer.
	Close() error
	// GetOutputPath returns the configured output file path.
	GetOutputPath() string
}
