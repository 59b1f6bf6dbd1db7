package poll

import (
	"context"
	"errors"
	"fmt"
)

// Errors
var (
	ErrIllegalArgument = errors.New("illegal argument")
	ErrInvalidPolicy   = errors.New("invalid poll policy")
	ErrCronParse       = errors.New("parse cron expression")
	ErrTransientQuery  = errors.New("transient status query error")
	ErrFatalQuery      = errors.New("fatal status query error")
	ErrUnknownState    = errors.New("unknown job state")
	ErrAborted         = errors.New("polling aborted")
	ErrCancelled       = errors.New("polling cancelled by caller")
)

// Transient marks err as a retryable status query failure. The poller
// treats it as a missed poll. Transient returns nil if err is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransientQuery, err)
}

// Fatal marks err as a non-retryable status query failure, which aborts
// polling. Fatal returns nil if err is nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrFatalQuery, err)
}

// IsTransient reports whether err was marked by Transient and not by Fatal.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientQuery) && !errors.Is(err, ErrFatalQuery)
}

// illegalArgumentError returns an illegal argument error with a custom
// error message, which unwraps to ErrIllegalArgument.
func illegalArgumentError(message string) error {
	return fmt.Errorf("%w: %s", ErrIllegalArgument, message)
}

// invalidPolicyError returns an invalid policy error with a custom
// error message, which unwraps to ErrInvalidPolicy.
func invalidPolicyError(message string) error {
	return fmt.Errorf("%w: %s", ErrInvalidPolicy, message)
}

// cronParseError returns a cron parse error with a custom error message,
// which unwraps to ErrCronParse.
func cronParseError(message string) error {
	return fmt.Errorf("%w: %s", ErrCronParse, message)
}

// unknownStateError returns a fatal query error for a state name which no
// mapping rule matched.
func unknownStateError(state string) error {
	return Fatal(fmt.Errorf("%w: %q", ErrUnknownState, state))
}

// abortedError wraps the cause of an aborted polling session.
func abortedError(cause error) error {
	if !errors.Is(cause, ErrFatalQuery) && !errors.Is(cause, ErrTransientQuery) {
		cause = Fatal(cause)
	}
	return fmt.Errorf("%w: %w", ErrAborted, cause)
}

// cancelledError reports caller cancellation along with the context cause.
func cancelledError(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
}
