package router

import (
	"errors"
)

var (
	// ErrUnknownRoute is returned by Dispatch when the envelope names a route that was never registered.
	ErrUnknownRoute = errors.New("unknown route")

	// ErrUnsupportedMessageKind is returned by Dispatch when the route does not accept the envelope's kind.
	ErrUnsupportedMessageKind = errors.New("unsupported message kind")

	// ErrDuplicateRoute is returned by RegisterRoute when the route name is taken.
	ErrDuplicateRoute = errors.New("route already registered")

	// ErrDuplicateKind is returned by RegisterRoute when one registration lists a kind twice.
	ErrDuplicateKind = errors.New("message kind declared twice")

	// ErrUnboundRoute is returned when binding to, or dispatching on, a route without a handler.
	ErrUnboundRoute = errors.New("route has no handler")

	// ErrHandlerAlreadyBound is returned by BindHandler on the second bind.
	ErrHandlerAlreadyBound = errors.New("handler already bound")

	// ErrInvalidMessage is returned when the payload does not decode into,
	// or validate as, the kind's declared shape.
	ErrInvalidMessage = errors.New("invalid message")
)

// HandlerError carries a handler failure back to the caller. Error() is the
// handler's message verbatim; Route and Kind are kept for diagnostics.
type HandlerError struct {
	Route string
	Kind  string
	Err   error
}

func (e *HandlerError) Error() string {
	return e.Err.Error()
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
