package idempotency

import "errors"

// terminalError marks a failure that retrying can never fix (malformed input,
// a claim that already exists, a record that conflicts).
type terminalError struct{ err error }

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// retryableError marks a failure caused by a collaborator being unavailable;
// the whole operation may be retried from scratch by the caller.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Terminal wraps err so Retryable reports false for it.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &terminalError{err: err}
}

// MarkRetryable wraps err so Retryable reports true for it.
func MarkRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// Retryable reports whether err was marked retryable anywhere in its chain.
// An unmarked error is not retryable: blind retries against side-effecting
// collaborators are how duplicate state happens, so callers must opt in.
func Retryable(err error) bool {
	var r *retryableError
	var t *terminalError
	if errors.As(err, &t) {
		return false
	}
	return errors.As(err, &r)
}
