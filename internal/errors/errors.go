package errors

import (
	"errors"
	"fmt"
)

// Common error types for the signatory
var (
	// Configuration errors, fatal at startup
	ErrConfig = errors.New("invalid configuration")

	// Authentication errors
	ErrAuth          = errors.New("authentication failed")
	ErrMissingToken  = fmt.Errorf("%w: missing token", ErrAuth)
	ErrLoginRejected = fmt.Errorf("%w: login rejected", ErrAuth)

	// Submission errors
	ErrSign           = errors.New("sign failed")
	ErrSubmitRejected = errors.New("submission rejected")

	// Notification errors are best effort and never leave the notifier helpers
	ErrNotification = errors.New("notification failed")

	// Terminal state: every planned signature has been performed
	ErrQuotaReached = errors.New("signature quota reached")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
