package forwarder

import (
	"errors"
	"fmt"
)

// Kind classifies forwarder failures so callers can match on the failure
// class instead of message strings.
type Kind string

// Failure classes. Config and chat-resolution failures are fatal to the
// operation that raised them; auth-expired requires the out-of-band
// authsetup procedure; forward failures are per-message and non-fatal.
const (
	KindConfig         Kind = "config"
	KindAuthExpired    Kind = "auth_expired"
	KindInitialization Kind = "initialization"
	KindChatResolution Kind = "chat_resolution"
	KindForward        Kind = "forwarding"
	KindPersistence    Kind = "persistence"
)

// Error is a classified forwarder failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is (or wraps) a forwarder Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}
