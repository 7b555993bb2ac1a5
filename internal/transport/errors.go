package transport

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed socket.
var ErrClosed = errors.New("transport closed")

// Error is a connection-level failure of the underlying socket.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns err as a *Error unless it is nil or already one.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return err
	}
	return &Error{Op: op, Err: err}
}
