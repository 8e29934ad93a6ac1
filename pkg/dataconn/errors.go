package dataconn

import (
	"github.com/pkg/errors"

	"github.com/zkwire/zkwire/pkg/proto"
)

var (
	// ErrWouldBlock is returned by a Transport when no progress can be made
	// without blocking.
	ErrWouldBlock = errors.New("dataconn: operation would block")

	ErrMalformedLength  = proto.ErrMalformedLength
	ErrDuplicateXid     = errors.New("dataconn: duplicate xid")
	ErrUnknownXid       = errors.New("dataconn: unknown xid")
	ErrTransport        = errors.New("dataconn: transport error")
	ErrHandshakeFailed  = errors.New("dataconn: handshake failed")
	ErrNotEstablished   = errors.New("dataconn: session not established")
	ErrConnectionClosed = errors.New("dataconn: connection closed")
	ErrInvalidOpCode    = errors.New("dataconn: opcode cannot be submitted")
	ErrPending          = errors.New("dataconn: result not ready")

	ErrSessionExpired      = errors.New("dataconn: session expired")
	ErrUnsupportedProtocol = errors.New("dataconn: unsupported protocol version")
)

// sessionError tags a cause with one of the sentinel errors above so that
// errors.Is matches both the sentinel and anything in the cause chain.
type sessionError struct {
	kind  error
	cause error
}

func newError(kind, cause error) error {
	if cause != nil && errors.Is(cause, kind) {
		return cause
	}
	return &sessionError{kind: kind, cause: cause}
}

func (e *sessionError) Error() string {
	if e.cause == nil {
		return e.kind.Error()
	}
	return e.kind.Error() + ": " + e.cause.Error()
}

func (e *sessionError) Is(target error) bool {
	return target == e.kind
}

func (e *sessionError) Unwrap() error {
	return e.cause
}

// Cause returns the error that tore the session down, or nil.
func Cause(err error) error {
	var serr *sessionError
	if errors.As(err, &serr) {
		return serr.cause
	}
	return nil
}
