package extractor

import (
	"errors"
	"fmt"
)

// Extraction errors
var (
	// ErrMalformedResponse means the inference service answered but the
	// response did not follow the labeled-field output contract. Terminal
	// per message; the fingerprint is still recorded so the inference cost
	// is never paid twice.
	ErrMalformedResponse = errors.New("malformed inference response")

	// ErrNoSignal means the response was parseable but lacked the required
	// instrument or direction fields.
	ErrNoSignal = errors.New("no valid signal in response")
)

// TransientError wraps a failure that is worth retrying: network errors,
// timeouts, rate limiting and server-side errors from the inference service.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient extraction failure (%s): %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether the error should be retried by the orchestrator.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
