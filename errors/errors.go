package errors

import (
	"errors"
	"fmt"
)

// Common error types for categorization and handling

var (
	// ErrStrategyTimeout indicates a strategy attempt exceeded its own timeout
	ErrStrategyTimeout = errors.New("strategy timed out")

	// ErrStrategyEmpty indicates a strategy returned no usable text
	ErrStrategyEmpty = errors.New("strategy returned empty text")

	// ErrStrategyTransport indicates the completion call failed at the transport level
	ErrStrategyTransport = errors.New("strategy transport error")

	// ErrAllStrategiesExhausted indicates every attempt, including escalation, failed
	ErrAllStrategiesExhausted = errors.New("all strategies exhausted")

	// ErrDeadlineExceeded indicates the reply deadline fired before the pipeline finished
	ErrDeadlineExceeded = errors.New("reply deadline exceeded")

	// ErrGatewayDelivery indicates the messaging gateway rejected or dropped a send
	ErrGatewayDelivery = errors.New("gateway delivery failed")

	// ErrInvalidInput indicates invalid inbound message content
	ErrInvalidInput = errors.New("invalid input")

	// ErrDatabaseOperation indicates a database operation failed
	ErrDatabaseOperation = errors.New("database operation failed")
)

// WrapError wraps an error with context message and stack
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsStrategyTimeout checks if error is a strategy timeout
func IsStrategyTimeout(err error) bool {
	return errors.Is(err, ErrStrategyTimeout)
}

// IsStrategyTransport checks if error is a transport failure
func IsStrategyTransport(err error) bool {
	return errors.Is(err, ErrStrategyTransport)
}

// IsAllStrategiesExhausted checks if error marks a fully failed race
func IsAllStrategiesExhausted(err error) bool {
	return errors.Is(err, ErrAllStrategiesExhausted)
}
