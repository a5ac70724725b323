package errors

import (
	"errors"
	"fmt"
)

// Decision errors are permanent for the given input: the caller's control loop re-invokes the
// hook with fresh observed state on its next tick, nothing is retried here.

// ErrMalformedInput indicates a required field is absent or structurally wrong,
// e.g. a provenance annotation that does not parse.
var ErrMalformedInput = errors.New("malformed input")

// ErrInvariantViolation indicates observed data contradicts an assumption the decision
// algorithms depend on, e.g. two groups claiming the same color.
var ErrInvariantViolation = errors.New("invariant violation")

// Metric/label reasons reported by Reason.
const (
	ReasonMalformedInput     = "malformed_input"
	ReasonInvariantViolation = "invariant_violation"
	ReasonInternal           = "internal"
)

// WrapMalformedInput wraps an error as malformed input.
// If the error is already malformed input, it is returned as-is.
func WrapMalformedInput(err error) error {
	if err == nil {
		return nil
	}

	if IsMalformedInput(err) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrMalformedInput, err)
}

// WrapInvariantViolation wraps an error as an invariant violation.
func WrapInvariantViolation(err error) error {
	if err == nil {
		return nil
	}

	if IsInvariantViolation(err) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrInvariantViolation, err)
}

// Malformedf formats a new malformed input error.
func Malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
}

// Invariantf formats a new invariant violation error.
func Invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}

// IsMalformedInput checks if an error is a malformed input error.
func IsMalformedInput(err error) bool {
	return err != nil && errors.Is(err, ErrMalformedInput)
}

// IsInvariantViolation checks if an error is an invariant violation.
func IsInvariantViolation(err error) bool {
	return err != nil && errors.Is(err, ErrInvariantViolation)
}

// Reason classifies an error into a short, bounded label.
// Returns an empty string for a nil error.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case IsMalformedInput(err):
		return ReasonMalformedInput
	case IsInvariantViolation(err):
		return ReasonInvariantViolation
	default:
		return ReasonInternal
	}
}
