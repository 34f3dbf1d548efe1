package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vango-dev/remoteui/pkg/protocol"
)

// transport runs the read and write loops of one websocket and bridges them
// to a Conn.
type transport struct {
	ws      *websocket.Conn
	conn    *Conn
	cfg     *SessionConfig
	logger  *zap.Logger
	metrics *Metrics

	// control carries frames the read loop asks the write loop to send,
	// since gorilla allows one concurrent writer.
	control chan []byte
}

func newTransport(ws *websocket.Conn, conn *Conn, cfg *SessionConfig, logger *zap.Logger, m *Metrics) *transport {
	return &transport{
		ws:      ws,
		conn:    conn,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		control: make(chan []byte, 4),
	}
}

// serve blocks until both loops have exited and the websocket is closed.
func (t *transport) serve(ctx context.Context) {
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		t.readLoop(ctx)
	}()

	t.writeLoop()
	t.ws.Close()
	<-readDone
}

func (t *transport) readLoop(ctx context.Context) {
	limit := int(t.cfg.MaxMessageSize)
	t.ws.SetReadLimit(t.cfg.MaxMessageSize)
	_ = t.ws.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	t.ws.SetPongHandler(func(string) error {
		return t.ws.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	})

	for {
		mt, data, err := t.ws.ReadMessage()
		if err != nil {
			if t.conn.Closed() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.conn.Close(ErrPeerClosed)
				return
			}
			t.metrics.connError("read")
			t.conn.Close(NewSessionError(t.conn.ID(), "read", err))
			return
		}
		_ = t.ws.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))

		if mt != websocket.BinaryMessage {
			err = &protocol.FrameError{Kind: protocol.ErrorMalformed, Msg: "text message"}
		} else {
			err = t.handle(ctx, data, limit)
		}
		if err != nil {
			switch {
			case errors.Is(err, ErrPeerClosed), errors.Is(err, ErrConnectionClosed):
			case protocol.IsFrameError(err):
				t.metrics.connError("protocol")
				t.logger.Warn("protocol error", zap.Error(err))
			case errors.Is(err, context.Canceled):
				err = ErrServerShutdown
			}
			t.conn.Close(err)
			return
		}
	}
}

// handle processes one inbound frame.
func (t *transport) handle(ctx context.Context, data []byte, limit int) error {
	f, err := protocol.DecodeFrame(data, limit)
	if err != nil {
		return err
	}

	switch f.Type {
	case protocol.FrameInput:
		var msg protocol.ClientToServer
		if err := protocol.Unmarshal(f, limit, &msg); err != nil {
			return err
		}
		if msg.RawInput == nil {
			return &protocol.FrameError{Kind: protocol.ErrorMalformed, Msg: "input frame without raw_input"}
		}
		return t.conn.Deliver(ctx, msg.RawInput)

	case protocol.FrameControl:
		var ctrl protocol.Control
		if err := protocol.Unmarshal(f, limit, &ctrl); err != nil {
			return err
		}
		switch ctrl.Type {
		case protocol.ControlPing:
			pong, err := protocol.EncodeControl(protocol.NewPong(&ctrl))
			if err != nil {
				return err
			}
			select {
			case t.control <- pong:
			default:
				// A viewer flooding pings loses pongs.
			}
		case protocol.ControlClose:
			t.logger.Debug("viewer closed", zap.Stringer("reason", ctrl.Reason), zap.String("message", ctrl.Message))
			return ErrPeerClosed
		}
		return nil

	default:
		return &protocol.FrameError{Kind: protocol.ErrorMalformed, Msg: fmt.Sprintf("unexpected %s frame from viewer", f.Type)}
	}
}

func (t *transport) writeLoop() {
	heartbeat := time.NewTicker(t.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case msg := <-t.conn.Outbound():
			if err := t.write(msg); err != nil {
				t.writeFailed(err)
				return
			}
		case msg := <-t.control:
			if err := t.write(msg); err != nil {
				t.writeFailed(err)
				return
			}
		case <-heartbeat.C:
			deadline := time.Now().Add(t.cfg.WriteTimeout)
			if err := t.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				t.writeFailed(err)
				return
			}
		case <-t.conn.Done():
			t.goodbye()
			return
		}
	}
}

func (t *transport) write(msg []byte) error {
	_ = t.ws.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	return t.ws.WriteMessage(websocket.BinaryMessage, msg)
}

func (t *transport) writeFailed(err error) {
	if t.conn.Closed() {
		return
	}
	t.metrics.connError("write")
	t.conn.Close(NewSessionError(t.conn.ID(), "write", err))
}

// goodbye tells the viewer why the connection ends. Write errors are
// ignored; the socket is closed right after.
func (t *transport) goodbye() {
	err := t.conn.Err()
	if errors.Is(err, ErrPeerClosed) {
		return
	}

	em, reason := closeMessage(err)
	if em != nil {
		if data, encErr := protocol.EncodeErrorMessage(em); encErr == nil {
			_ = t.write(data)
		}
	}
	if data, encErr := protocol.EncodeControl(protocol.NewClose(reason, "")); encErr == nil {
		_ = t.write(data)
	}

	deadline := time.Now().Add(t.cfg.WriteTimeout)
	_ = t.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(closeCode(reason), ""), deadline)
}

func closeCode(reason protocol.CloseReason) int {
	switch reason {
	case protocol.CloseNormal:
		return websocket.CloseNormalClosure
	case protocol.CloseServerShutdown, protocol.CloseGoingAway:
		return websocket.CloseGoingAway
	default:
		return websocket.CloseInternalServerErr
	}
}
