package client

import (
	"errors"
	"fmt"

	"github.com/vango-dev/remoteui/pkg/protocol"
)

// ErrClosed is returned after Close or once the connection has failed.
var ErrClosed = errors.New("client: connection closed")

// HandshakeError is returned by Dial when the host refuses the viewer.
type HandshakeError struct {
	Status protocol.HandshakeStatus
}

// Error returns the error message.
func (e *HandshakeError) Error() string {
	return fmt.Sprintf("client: handshake rejected: %s", e.Status)
}

// CloseError is returned by Next when the host ends the session.
type CloseError struct {
	Reason protocol.CloseReason
	// Cause is the error message the host sent before closing, if any.
	Cause *protocol.ErrorMessage
}

// Error returns the error message.
func (e *CloseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("client: host closed session (%s): %s", e.Reason, e.Cause.Error())
	}
	return fmt.Sprintf("client: host closed session (%s)", e.Reason)
}

// Unwrap returns the host's error message, if any.
func (e *CloseError) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}
