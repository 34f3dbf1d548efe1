package server

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vango-dev/remoteui/pkg/protocol"
)

func TestSessionError(t *testing.T) {
	err := NewSessionError("abc", "send", ErrSendTimeout)

	if got, want := err.Error(), "server: session abc: send: server: send timeout"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrSendTimeout) {
		t.Error("SessionError should unwrap to its cause")
	}

	anon := NewSessionError("", "handshake", ErrInvalidHandshake)
	if got, want := anon.Error(), "server: handshake: server: invalid handshake"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestCloseMessage(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   protocol.ErrorCode
		silent bool
		reason protocol.CloseReason
	}{
		{name: "normal", err: nil, silent: true, reason: protocol.CloseNormal},
		{name: "peer", err: ErrPeerClosed, silent: true, reason: protocol.CloseNormal},
		{name: "shutdown", err: ErrServerShutdown, code: protocol.ErrServerShutdown, reason: protocol.CloseServerShutdown},
		{name: "stalled", err: NewSessionError("s", "send", ErrSendTimeout), code: protocol.ErrBackpressure, reason: protocol.CloseError},
		{name: "panic", err: &PanicError{SessionID: "s", Value: "x"}, code: protocol.ErrAppPanic, reason: protocol.CloseError},
		{name: "protocol", err: &protocol.FrameError{Kind: protocol.ErrorDecode, Msg: "bad"}, code: protocol.ErrInvalidFrame, reason: protocol.CloseError},
		{name: "other", err: fmt.Errorf("wrapped: %w", errors.New("disk")), code: protocol.ErrServerError, reason: protocol.CloseError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			em, reason := closeMessage(tc.err)
			if reason != tc.reason {
				t.Errorf("reason = %v, want %v", reason, tc.reason)
			}
			if tc.silent {
				if em != nil {
					t.Errorf("ErrorMessage = %+v, want nil", em)
				}
				return
			}
			if em == nil {
				t.Fatal("ErrorMessage = nil")
			}
			if em.Code != tc.code || !em.Fatal {
				t.Errorf("ErrorMessage = %+v, want fatal %v", em, tc.code)
			}
		})
	}
}
