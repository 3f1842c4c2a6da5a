package socket

import (
	"fmt"
)

// Kind classifies a socket failure.
type Kind int

const (
	AcceptFailed Kind = iota
	WriteFailed
	ReadFailed
	InvalidStatus
)

func (k Kind) Error() string {
	switch k {
	case AcceptFailed:
		return "socket: accept failed"
	case WriteFailed:
		return "socket: write failed"
	case ReadFailed:
		return "socket: read failed"
	case InvalidStatus:
		return "socket: invalid status line"
	default:
		return fmt.Sprintf("socket: unknown error kind %d", int(k))
	}
}

// Error carries the failure kind together with the OS reason observed at the
// point of failure. errors.Is(err, socket.ReadFailed) matches on Kind.
type Error struct {
	Kind       Kind
	Reason     string
	underlying error
}

func newError(kind Kind, underlying error) *Error {
	reason := "connection closed by peer"
	if underlying != nil {
		reason = underlying.Error()
	}

	return &Error{
		Kind:       kind,
		Reason:     reason,
		underlying: underlying,
	}
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Reason
}

func (e *Error) Is(target error) bool {
	kind, ok := target.(Kind)
	return ok && kind == e.Kind
}

func (e *Error) Unwrap() error {
	return e.underlying
}
