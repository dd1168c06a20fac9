package notify

import (
	"errors"
	"fmt"
)

// ErrDispatchExhausted is returned when all dispatch retries failed. It is
// non-fatal to the pipeline: the alert is lost but ingestion continues.
var ErrDispatchExhausted = errors.New("dispatch retries exhausted")

// TransientError marks a delivery failure worth retrying: network errors,
// 5xx responses and rate limiting.
type TransientError struct {
	Channel string
	Err     error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient dispatch failure (%s): %v", e.Channel, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError for the given channel.
func Transient(channel string, err error) error {
	return &TransientError{Channel: channel, Err: err}
}

// IsTransient reports whether a dispatch error should be retried.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// classifyStatus converts a non-2xx HTTP response into the right error kind:
// 429 and 5xx are transient, anything else is permanent.
func classifyStatus(channel string, status int, body string) error {
	err := fmt.Errorf("%s returned status %d: %s", channel, status, body)
	if status == 429 || status >= 500 {
		return Transient(channel, err)
	}
	return err
}
