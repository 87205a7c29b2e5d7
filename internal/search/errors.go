package search

import (
	"errors"
	"fmt"
)

// IntentionalError defers a round until its targeted execution time. It is
// an expected control-flow signal: the message's visibility has already been
// extended and the caller must leave it on the queue.
type IntentionalError struct {
	Message string
}

func (e *IntentionalError) Error() string { return e.Message }

// OperationalError is a genuine failure of search logic or of its input,
// such as a malformed round message or event.
type OperationalError struct {
	Message string
	Err     error
}

func (e *OperationalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *OperationalError) Unwrap() error { return e.Err }

func intentional(format string, args ...any) error {
	return &IntentionalError{Message: fmt.Sprintf(format, args...)}
}

func operational(err error, format string, args ...any) error {
	return &OperationalError{Message: fmt.Sprintf(format, args...), Err: err}
}

// IsIntentional reports whether err is (or wraps) an IntentionalError.
func IsIntentional(err error) bool {
	var ie *IntentionalError
	return errors.As(err, &ie)
}

// IsOperational reports whether err is (or wraps) an OperationalError.
func IsOperational(err error) bool {
	var oe *OperationalError
	return errors.As(err, &oe)
}
