package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"indicator-observer/src/logger"
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	ErrUpstreamStatus   = errors.New("upstream returned a non-success status")
	ErrMalformedPayload = errors.New("upstream payload is malformed")
	ErrFetchFault       = errors.New("indicator fetch faulted")
	ErrGateNotHeld      = errors.New("gate released while not held")
	ErrUnknownIndicator = errors.New("unknown indicator")
	ErrUnknownCountry   = errors.New("unknown country")
	ErrNoChartData      = errors.New("no data to chart")
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type ObserverError struct {
	Message string
	Cause   error
}

func (e *ObserverError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ObserverError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As
type ConfigurationError struct{ ObserverError }
type DataSourceError struct{ ObserverError }
type DatabaseError struct{ ObserverError }

// NetworkError describes a failed upstream round trip. Status is zero when no
// response was received.
type NetworkError struct {
	ObserverError
	Status int
}

func NewConfigurationError(message string, cause error) *ConfigurationError {
	return &ConfigurationError{ObserverError{Message: message, Cause: cause}}
}

func NewNetworkError(message string, status int, cause error) *NetworkError {
	return &NetworkError{ObserverError: ObserverError{Message: message, Cause: cause}, Status: status}
}

func NewDataSourceError(message string, cause error) *DataSourceError {
	return &DataSourceError{ObserverError{Message: message, Cause: cause}}
}

func NewDatabaseError(message string, cause error) *DatabaseError {
	return &DatabaseError{ObserverError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff runs fn up to attempts times, doubling the delay after each
// failure. It stops early when ctx is done.
func RetryWithBackoff(ctx context.Context, log *logger.Logger, operation string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == attempts-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		if log != nil {
			log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, attempts, operation, err, delay)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return &ObserverError{Message: fmt.Sprintf("%s failed after %d attempts", operation, attempts), Cause: lastErr}
}
