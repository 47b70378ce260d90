package activity

import (
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/ahrav/go-assessor/internal/domain"
	"github.com/ahrav/go-assessor/internal/engine"
)

// Application error types reported to the workflow. Workflows match on these
// to decide whether a failed resume can be retried with new input.
const (
	ErrTypeInvalidRequest = "InvalidRequest"
	ErrTypeUnknownSession = "UnknownSession"
	ErrTypeInvalidResume  = "InvalidResume"
	ErrTypeStaleResume    = "StaleResume"
	ErrTypeSessionExists  = "SessionExists"
	ErrTypeSessionBusy    = "SessionBusy"
)

// classify converts engine errors into Temporal application errors.
// Caller mistakes are non-retryable; a busy session and infrastructure
// failures are left to the activity retry policy.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, engine.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidInput):
		return nonRetryable(ErrTypeInvalidRequest, err, op+": invalid request")
	case errors.Is(err, engine.ErrUnknownSession):
		return nonRetryable(ErrTypeUnknownSession, err, op+": unknown session")
	case errors.Is(err, engine.ErrInvalidResume):
		return nonRetryable(ErrTypeInvalidResume, err, op+": session is not awaiting review")
	case errors.Is(err, engine.ErrStaleResume):
		return nonRetryable(ErrTypeStaleResume, err, op+": stale resume")
	case errors.Is(err, engine.ErrSessionExists):
		return nonRetryable(ErrTypeSessionExists, err, op+": session already exists")
	case errors.Is(err, engine.ErrSessionBusy):
		return temporal.NewApplicationErrorWithCause(op+": session busy", ErrTypeSessionBusy, err)
	default:
		return err
	}
}

// nonRetryable wraps an error as a Temporal non-retryable application error.
func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}
