package errors_test

import (
	stderrors "errors"
	"testing"

	apperrors "replygate/errors"
)

func TestWrapPreservesSentinel(t *testing.T) {
	err := apperrors.WrapErrorf(apperrors.ErrStrategyTransport, "strategy %s", "concise")
	if !apperrors.IsStrategyTransport(err) {
		t.Errorf("wrapped error lost its category: %v", err)
	}
	if apperrors.IsStrategyTimeout(err) {
		t.Errorf("transport error misread as timeout: %v", err)
	}

	err = apperrors.WrapError(apperrors.ErrAllStrategiesExhausted, "request r1")
	if !apperrors.IsAllStrategiesExhausted(err) {
		t.Errorf("wrapped error lost its category: %v", err)
	}
}

func TestWrapNilStaysNil(t *testing.T) {
	if err := apperrors.WrapError(nil, "context"); err != nil {
		t.Errorf("WrapError(nil) = %v, want nil", err)
	}
	if err := apperrors.WrapErrorf(nil, "context %d", 1); err != nil {
		t.Errorf("WrapErrorf(nil) = %v, want nil", err)
	}
}

func TestWrapIsDiscoverableWithStdErrors(t *testing.T) {
	err := apperrors.WrapError(apperrors.ErrInvalidInput, "empty message text")
	if !stderrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("errors.Is failed on wrapped sentinel: %v", err)
	}
}
