package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidSignal        ErrorCode = 102
	ErrCodeInvalidStopLoss      ErrorCode = 103
	ErrCodeInvalidTarget        ErrorCode = 104
	ErrCodeInvalidQuantity      ErrorCode = 105
	ErrCodeSymbolNotFound       ErrorCode = 106

	// Data errors (200-299)
	ErrCodeDataUnavailable    ErrorCode = 200
	ErrCodeNoDataFound        ErrorCode = 201
	ErrCodeQueryFailed        ErrorCode = 202
	ErrCodeInsufficientWindow ErrorCode = 203

	// Strategy errors (400-499)
	ErrCodeStrategyNotFound          ErrorCode = 400
	ErrCodeStrategyAlreadyRegistered ErrorCode = 401
	ErrCodeStrategyInvalid           ErrorCode = 402
	ErrCodeStrategyEvaluateFailed    ErrorCode = 403
	ErrCodeStrategyPanicked          ErrorCode = 404

	// Trading errors (500-599)
	ErrCodeInsufficientSizing  ErrorCode = 500
	ErrCodeMaxPositionsReached ErrorCode = 501
	ErrCodeCapitalExhausted    ErrorCode = 502
	ErrCodePositionAlreadyOpen ErrorCode = 503
	ErrCodePositionNotFound    ErrorCode = 504
	ErrCodeOrderRejected       ErrorCode = 505
	ErrCodeBrokerAuth          ErrorCode = 506
	ErrCodeBrokerRateLimited   ErrorCode = 507

	// Checkpoint errors (600-699)
	ErrCodeCheckpointCorrupt     ErrorCode = 600
	ErrCodeCheckpointWriteFailed ErrorCode = 601
	ErrCodeCursorRegression      ErrorCode = 602
)
