package chain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnsupportedMethod is returned by Handle when the router was not
	// built with the requested verb. Callers may treat it as "skip".
	ErrUnsupportedMethod = errors.New("chain: unsupported method")
	ErrBadPattern        = errors.New("chain: bad path pattern")
	ErrNextCalledTwice   = errors.New("chain: continuation called more than once")
	ErrPanic             = errors.New("chain: handler panic")

	// ErrHalted is delivered to the completion callback when a handler ends
	// the traversal with Request.Halt.
	ErrHalted = errors.New("chain: halted")
)

// Error lets a handler pick the status a server adapter responds with.
// ClientMsg defaults to the status text; Cause may be nil.
type Error struct {
	Code      int
	ClientMsg string
	Cause     error
}

func (e Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("[%d] %s", e.Code, e.message())
	}
	return fmt.Sprintf("[%d] %s: %v", e.Code, e.message(), e.Cause)
}

func (e Error) Unwrap() error { return e.Cause }

func (e Error) StatusCode() int {
	if e.Code == 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

func (e Error) message() string {
	if e.ClientMsg != "" {
		return e.ClientMsg
	}
	return http.StatusText(e.StatusCode())
}

// StatusOf reports the HTTP status for err: the code of a wrapped Error,
// otherwise 500.
func StatusOf(err error) (int, string) {
	var e Error
	if errors.As(err, &e) {
		return e.StatusCode(), e.message()
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}
