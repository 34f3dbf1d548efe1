package protocol

import (
	"errors"
	"fmt"
)

// ErrorKind classifies protocol errors detected while decoding.
type ErrorKind uint8

const (
	// ErrorPartial indicates a truncated frame.
	ErrorPartial ErrorKind = iota
	// ErrorTooLarge indicates a payload above the size limit.
	ErrorTooLarge
	// ErrorMalformed indicates an invalid header or an unexpected frame type.
	ErrorMalformed
	// ErrorCompression indicates an undecompressible payload.
	ErrorCompression
	// ErrorDecode indicates an msgpack decoding failure.
	ErrorDecode
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorPartial:
		return "partial"
	case ErrorTooLarge:
		return "too_large"
	case ErrorMalformed:
		return "malformed"
	case ErrorCompression:
		return "compression"
	case ErrorDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// FrameError represents a frame decoding error.
type FrameError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol: %s: %v", e.Msg, e.Err)
	}
	return "protocol: " + e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the connection must be closed. Every decode
// error is fatal: a corrupted update is never partially applied.
func (e *FrameError) IsFatal() bool {
	return true
}

// IsFrameError reports whether err is or wraps a *FrameError.
func IsFrameError(err error) bool {
	var fe *FrameError
	return errors.As(err, &fe)
}

// ErrorCode identifies the type of error reported to the peer.
type ErrorCode uint16

const (
	ErrUnknown        ErrorCode = 0x0000 // Unknown error
	ErrInvalidFrame   ErrorCode = 0x0001 // Malformed frame
	ErrInvalidInput   ErrorCode = 0x0002 // Undecodable input snapshot
	ErrAppPanic       ErrorCode = 0x0004 // Application callback panicked
	ErrBackpressure   ErrorCode = 0x0006 // Viewer did not drain updates in time
	ErrVersion        ErrorCode = 0x0007 // Protocol version mismatch
	ErrServerError    ErrorCode = 0x0100 // Internal server error
	ErrServerShutdown ErrorCode = 0x0101 // Host is shutting down
)

// String returns the string representation of the error code.
func (ec ErrorCode) String() string {
	switch ec {
	case ErrUnknown:
		return "Unknown"
	case ErrInvalidFrame:
		return "InvalidFrame"
	case ErrInvalidInput:
		return "InvalidInput"
	case ErrAppPanic:
		return "AppPanic"
	case ErrBackpressure:
		return "Backpressure"
	case ErrVersion:
		return "Version"
	case ErrServerError:
		return "ServerError"
	case ErrServerShutdown:
		return "ServerShutdown"
	default:
		return "Unknown"
	}
}

// ErrorMessage is sent when an error occurs.
type ErrorMessage struct {
	Code    ErrorCode `msgpack:"code"`
	Message string    `msgpack:"message"`
	Fatal   bool      `msgpack:"fatal"`
}

// NewError creates a new non-fatal ErrorMessage.
func NewError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message}
}

// NewFatalError creates a new fatal ErrorMessage.
func NewFatalError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message, Fatal: true}
}

// Error implements the error interface.
func (em *ErrorMessage) Error() string {
	if em.Fatal {
		return "fatal: " + em.Code.String() + ": " + em.Message
	}
	return em.Code.String() + ": " + em.Message
}

// IsFatal returns true if this error should close the connection.
func (em *ErrorMessage) IsFatal() bool {
	return em.Fatal
}

// EncodeErrorMessage encodes an ErrorMessage frame.
func EncodeErrorMessage(em *ErrorMessage) ([]byte, error) {
	return Marshal(FrameErrorMessage, em)
}
