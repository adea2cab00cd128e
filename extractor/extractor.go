package extractor

import (
	"errors"
)

// Extractor converts the raw bytes of a consumed record into a typed task.
// Extraction failures are data errors: the engine never retries them, the
// record is discarded and the stream continues.
type Extractor[T any] interface {
	Extract(raw []byte) (T, error)
}

// Func adapts a plain function to the Extractor interface.
type Func[T any] func(raw []byte) (T, error)

func (f Func[T]) Extract(raw []byte) (T, error) {
	return f(raw)
}

// Error wraps a failure to extract a task from record bytes.
type Error struct {
	Cause error
}

func (e *Error) Error() string {
	return e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewError(cause error) error {
	return &Error{Cause: cause}
}

func AsError(err error) (*Error, bool) {
	var ee *Error
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
