package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/tierlab/splitbuy/pkg/marketdata/writer"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
)

type OnDownloadProgress = func(current float64, total float64, message string)

// Provider downloads daily bars for a ticker and hands them to a writer.
type Provider interface {
	// ConfigWriter configures the writer the provider downloads into.
	ConfigWriter(writer writer.DailyBarWriter)
	// Download downloads the daily bars for the given ticker and date range
	// and returns the path the writer finalized to. Both the raw and the
	// split/dividend-adjusted closes are fetched.
	Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, onProgress OnDownloadProgress) (path string, err error)
}

// NewMarketDataProvider creates a provider of the given type.
func NewMarketDataProvider(providerType ProviderType, config any) (Provider, error) {
	switch providerType {
	case ProviderPolygon:
		apiKey, ok := config.(string)
		if !ok {
			return nil, fmt.Errorf("polygon provider requires API key string config")
		}

		return NewPolygonClient(apiKey)
	default:
		return nil, fmt.Errorf("unsupported market data provider: %s", providerType)
	}
}
