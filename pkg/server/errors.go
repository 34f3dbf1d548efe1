package server

import (
	"errors"
	"fmt"

	"github.com/vango-dev/remoteui/pkg/protocol"
)

// Sentinel errors for common session and server error conditions.
var (
	// ErrConnectionClosed is returned when using a closed connection.
	ErrConnectionClosed = errors.New("server: connection closed")

	// ErrSendTimeout is returned when a viewer does not drain its outbound
	// queue within SessionConfig.SendTimeout.
	ErrSendTimeout = errors.New("server: send timeout")

	// ErrPeerClosed is recorded when the viewer closes the connection.
	ErrPeerClosed = errors.New("server: peer closed connection")

	// ErrRegisterQueueFull is returned when too many connections wait for
	// the next tick.
	ErrRegisterQueueFull = errors.New("server: register queue full")

	// ErrMaxSessionsReached is returned when the maximum number of sessions is reached.
	ErrMaxSessionsReached = errors.New("server: max sessions reached")

	// ErrInvalidHandshake is returned when the viewer's hello is malformed.
	ErrInvalidHandshake = errors.New("server: invalid handshake")

	// ErrVersionMismatch is returned when the viewer speaks an incompatible protocol.
	ErrVersionMismatch = errors.New("server: protocol version mismatch")

	// ErrServerShutdown is recorded on connections closed by Shutdown.
	ErrServerShutdown = errors.New("server: shutting down")
)

// SessionError wraps an error with session context for debugging.
type SessionError struct {
	SessionID string
	Op        string // Operation that failed
	Err       error  // Underlying error
}

// Error returns the error message with session context.
func (e *SessionError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("server: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("server: session %s: %s: %v", e.SessionID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewSessionError creates a new SessionError.
func NewSessionError(sessionID, op string, err error) *SessionError {
	return &SessionError{
		SessionID: sessionID,
		Op:        op,
		Err:       err,
	}
}

// PanicError wraps a panic raised by the UI callback.
type PanicError struct {
	SessionID string
	Value     any
	Stack     []byte
}

// Error returns the error message.
func (e *PanicError) Error() string {
	return fmt.Sprintf("server: ui callback panic in session %s: %v", e.SessionID, e.Value)
}

// closeMessage maps the reason a connection closed to what the viewer is
// told. A nil ErrorMessage means no error frame is sent.
func closeMessage(err error) (*protocol.ErrorMessage, protocol.CloseReason) {
	var pe *PanicError
	switch {
	case err == nil, errors.Is(err, ErrPeerClosed):
		return nil, protocol.CloseNormal
	case errors.Is(err, ErrServerShutdown):
		return protocol.NewFatalError(protocol.ErrServerShutdown, "host is shutting down"), protocol.CloseServerShutdown
	case errors.Is(err, ErrSendTimeout):
		return protocol.NewFatalError(protocol.ErrBackpressure, "updates not drained in time"), protocol.CloseError
	case errors.As(err, &pe):
		return protocol.NewFatalError(protocol.ErrAppPanic, "application error"), protocol.CloseError
	case protocol.IsFrameError(err):
		return protocol.NewFatalError(protocol.ErrInvalidFrame, err.Error()), protocol.CloseError
	default:
		return protocol.NewFatalError(protocol.ErrServerError, "internal error"), protocol.CloseError
	}
}
