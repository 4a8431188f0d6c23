package stream

import "errors"

// PermanentError marks a processing failure that retrying cannot fix, such
// as an undecodable message. The retry policy sends these straight to the
// dead-letter stream instead of re-enqueueing.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the retry policy will not re-enqueue it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
