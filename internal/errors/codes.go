// Package errors provides structured error handling for semdex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, database)
//   - 3XX: Provider errors (network, quota, credentials)
//   - 4XX: Validation errors
//   - 5XX: Engine errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and database I/O errors.
	CategoryIO Category = "IO"
	// CategoryProvider indicates embedding-provider and network errors.
	CategoryProvider Category = "PROVIDER"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryEngine indicates indexing and retrieval engine errors.
	CategoryEngine Category = "ENGINE"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid     = "ERR_101_CONFIG_INVALID"
	ErrCodeDatabaseURL       = "ERR_102_DATABASE_URL_MISSING"
	ErrCodeProviderSelection = "ERR_103_NO_EMBEDDING_PROVIDER"
	ErrCodeDimensionMismatch = "ERR_104_DIMENSION_MISMATCH"

	// IO errors (200-299)
	ErrCodeFileRead = "ERR_201_FILE_READ"
	ErrCodeDatabase = "ERR_202_DATABASE"

	// Provider errors (300-399)
	ErrCodeTransport    = "ERR_301_TRANSPORT"
	ErrCodeRateLimited  = "ERR_302_RATE_LIMITED"
	ErrCodeUnauthorized = "ERR_303_UNAUTHORIZED"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty   = "ERR_402_QUERY_EMPTY"

	// Engine errors (500-599)
	ErrCodeBusy     = "ERR_501_INDEXING_BUSY"
	ErrCodeIndexing = "ERR_502_INDEXING_FAILED"
	ErrCodeInternal = "ERR_503_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryEngine
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryProvider
	case '4':
		return CategoryValidation
	default:
		return CategoryEngine
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeDatabaseURL, ErrCodeProviderSelection, ErrCodeDimensionMismatch:
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// Unauthorized is deliberately absent: credential failures never retry.
// Database errors are not retried at the engine level either.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeTransport, ErrCodeRateLimited:
		return true
	default:
		return false
	}
}
