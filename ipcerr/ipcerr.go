// Package ipcerr defines the error taxonomy shared by every layer of the
// nucleus IPC client: wire codec, connection, operation builders, and the
// pause supervisor all return errors built from the same small set of
// kinds so callers can branch on them with errors.Is/errors.As instead of
// string-matching.
package ipcerr

import (
	"errors"
	"fmt"
)

// Kind identifies the category of failure. See the package-level Is and
// Of helpers below for the idiomatic way to test for a particular kind.
type Kind int

const (
	// KindIo is an underlying socket read/write failure. Fatal for the
	// connection that produced it.
	KindIo Kind = iota
	// KindJSON is a payload marshal/unmarshal failure. Fatal for the
	// operation, not for the connection.
	KindJSON
	// KindApplication is a server-originated application error. The
	// connection remains usable.
	KindApplication
	// KindProtocol is a structural wire-format violation: bad prelude,
	// bad CRC, invalid header type code, unknown message type, length
	// mismatch.
	KindProtocol
	// KindInternalServer corresponds to a frame with :message-type ==
	// InternalError.
	KindInternalServer
	// KindUnexpectedMessageType is a correlated frame with the wrong
	// message type.
	KindUnexpectedMessageType
	// KindMissingHeader is a reserved header absent or of the wrong type.
	KindMissingHeader
	// KindBufferTooLarge means the encoder refused to emit an oversized
	// field.
	KindBufferTooLarge
	// KindChecksumMismatch is a message-level CRC failure.
	KindChecksumMismatch
	// KindEnvVarNotSet is raised by the env package when resolving the
	// socket path or auth token from the environment.
	KindEnvVarNotSet
	// KindConnectionRefused means the handshake response lacked the
	// ConnectionAccepted flag.
	KindConnectionRefused
)

func (k Kind) String() string {
	switch k {
	case KindIo:
		return "io"
	case KindJSON:
		return "json"
	case KindApplication:
		return "application"
	case KindProtocol:
		return "protocol"
	case KindInternalServer:
		return "internal_server"
	case KindUnexpectedMessageType:
		return "unexpected_message_type"
	case KindMissingHeader:
		return "missing_header"
	case KindBufferTooLarge:
		return "buffer_too_large"
	case KindChecksumMismatch:
		return "checksum_mismatch"
	case KindEnvVarNotSet:
		return "env_var_not_set"
	case KindConnectionRefused:
		return "connection_refused"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by this module. Kind
// identifies the category; Message is a human-readable detail; Cause, if
// non-nil, is an underlying I/O or JSON error reachable via errors.Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, ipcerr.New(ipcerr.KindProtocol, "")) works as a kind
// check. Callers typically use the package-level Is(err, kind) helper
// instead, which builds that comparison for you.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New builds an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an *Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error carrying an underlying cause (an I/O or JSON
// error, typically).
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Of reports the Kind of err if it is (or wraps) an *ipcerr.Error, and
// false otherwise.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := Of(err)
	return ok && k == kind
}
