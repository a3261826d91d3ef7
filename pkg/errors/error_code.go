package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidDateRange     ErrorCode = 102
	ErrCodeInvalidCapital       ErrorCode = 103
	ErrCodeUnknownStrategy      ErrorCode = 104
	ErrCodeUnknownTicker        ErrorCode = 105
	ErrCodeInvalidSeries        ErrorCode = 106
	ErrCodeInvalidOrder         ErrorCode = 107

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound        ErrorCode = 200
	ErrCodeQueryFailed         ErrorCode = 201
	ErrCodeInsufficientHistory ErrorCode = 202
	ErrCodeStoreUnavailable    ErrorCode = 203

	// Engine/state errors (300-399)
	ErrCodeInconsistentState ErrorCode = 300
	ErrCodeNegativeCash      ErrorCode = 301
	ErrCodeTierOccupied      ErrorCode = 302
	ErrCodeStrategySwapMid   ErrorCode = 303

	// Recommendation errors (400-499)
	ErrCodeRecommendationFailed   ErrorCode = 400
	ErrCodeAllStrategiesExcluded  ErrorCode = 401
	ErrCodeCacheComputationFailed ErrorCode = 402

	// Live trading errors (500-599)
	ErrCodeOrderGenerationFailed ErrorCode = 500
	ErrCodeExecutionFailed       ErrorCode = 501
	ErrCodeAccountNotFound       ErrorCode = 502
	ErrCodeCarryForwardPending   ErrorCode = 503

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataWriteFailed ErrorCode = 701
	ErrCodeInvalidProvider       ErrorCode = 702
)
