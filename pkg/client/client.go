package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vango-dev/remoteui/pkg/delta"
	"github.com/vango-dev/remoteui/pkg/frame"
	"github.com/vango-dev/remoteui/pkg/layout"
	"github.com/vango-dev/remoteui/pkg/protocol"
)

// DefaultReadLimit bounds an incoming message and its decompressed payload.
const DefaultReadLimit = 16 * 1024 * 1024

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithName identifies the viewer program in host logs.
func WithName(name string) Option {
	return func(c *Client) {
		c.name = name
	}
}

// WithViewport announces the initial surface size in points. The host
// renders a first frame for it without waiting for input.
func WithViewport(w, h uint16) Option {
	return func(c *Client) {
		c.viewportW, c.viewportH = w, h
	}
}

// WithLayouter sets the local text layouter used to rehydrate text.
// Default: layout.Default().
func WithLayouter(l layout.Layouter) Option {
	return func(c *Client) {
		c.layouter = l
	}
}

// WithDebugMode omits referenced items from decoded frames, leaving only
// what changed since the last full update.
func WithDebugMode(on bool) Option {
	return func(c *Client) {
		c.debug = on
	}
}

// WithDialer sets the websocket dialer. Default: websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// WithReadLimit sets the largest accepted message. Default: DefaultReadLimit.
func WithReadLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limit = n
		}
	}
}

// Client is a connected viewer. SendInput and Close may be called
// concurrently with Next; Next itself must not be called concurrently.
type Client struct {
	ws      *websocket.Conn
	decoder *delta.Decoder
	hello   *protocol.ServerHello
	logger  *zap.Logger

	name      string
	viewportW uint16
	viewportH uint16
	layouter  layout.Layouter
	debug     bool
	dialer    *websocket.Dialer
	limit     int

	// cause is the last fatal error message from the host. Next only.
	cause *protocol.ErrorMessage

	writeMu sync.Mutex
	mu      sync.Mutex
	err     error
	closed  bool
}

// Dial connects to the host at url and performs the handshake.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	c := &Client{
		logger: zap.NewNop(),
		dialer: websocket.DefaultDialer,
		limit:  DefaultReadLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.layouter == nil {
		l, err := layout.Default()
		if err != nil {
			return nil, err
		}
		c.layouter = l
	}
	c.decoder = delta.NewDecoder(c.layouter, delta.WithDebugMode(c.debug))

	ws, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", url, err)
	}
	ws.SetReadLimit(int64(c.limit))
	c.ws = ws

	if err := c.handshake(ctx); err != nil {
		ws.Close()
		return nil, err
	}
	c.logger = c.logger.With(zap.String("session_id", c.hello.SessionID))
	c.logger.Info("connected",
		zap.String("url", url),
		zap.Stringer("version", c.hello.Version),
		zap.Uint16("tick_rate", c.hello.TickRate),
	)
	return c, nil
}

func (c *Client) handshake(ctx context.Context) error {
	data, err := protocol.EncodeClientHello(&protocol.ClientHello{
		Version:   protocol.CurrentVersion,
		Name:      c.name,
		ViewportW: c.viewportW,
		ViewportH: c.viewportH,
	})
	if err != nil {
		return err
	}
	if err := c.write(data); err != nil {
		return fmt.Errorf("client: handshake: %w", err)
	}

	f, err := c.read(ctx)
	if err != nil {
		return fmt.Errorf("client: handshake: %w", err)
	}
	if f.Type != protocol.FrameHandshake {
		return &protocol.FrameError{Kind: protocol.ErrorMalformed, Msg: fmt.Sprintf("expected handshake, got %s frame", f.Type)}
	}
	hello := &protocol.ServerHello{}
	if err := protocol.Unmarshal(f, c.limit, hello); err != nil {
		return err
	}
	if hello.Status != protocol.HandshakeOK {
		return &HandshakeError{Status: hello.Status}
	}
	c.hello = hello
	return nil
}

// SessionID returns the ID the host assigned to this viewer.
func (c *Client) SessionID() string {
	return c.hello.SessionID
}

// TickRate returns the host render rate in ticks per second.
func (c *Client) TickRate() int {
	return int(c.hello.TickRate)
}

// Decoder returns the update decoder, for toggling debug mode between frames.
func (c *Client) Decoder() *delta.Decoder {
	return c.decoder
}

// SendInput sends one input snapshot.
func (c *Client) SendInput(in *frame.Input) error {
	if err := c.Err(); err != nil {
		return err
	}
	data, err := protocol.EncodeInput(in)
	if err != nil {
		return err
	}
	if err := c.write(data); err != nil {
		c.fail(err)
		return err
	}
	return nil
}

// Ping sends an application-level ping. The host answers with a pong that
// Next consumes.
func (c *Client) Ping() error {
	data, err := protocol.EncodeControl(protocol.NewPing(uint64(time.Now().UnixMilli())))
	if err != nil {
		return err
	}
	return c.write(data)
}

// Next blocks until the next update arrives and returns the reconstructed
// frame. Any error is fatal, including cancellation of ctx: the connection is
// closed and later calls return the same error.
func (c *Client) Next(ctx context.Context) (*frame.Frame, error) {
	for {
		if err := c.Err(); err != nil {
			return nil, err
		}

		f, err := c.read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			return nil, c.fail(err)
		}

		switch f.Type {
		case protocol.FrameUpdate:
			u, err := protocol.UpdateFromFrame(f, c.limit)
			if err != nil {
				return nil, c.fail(err)
			}
			out, err := c.decoder.Decode(u)
			if err != nil {
				return nil, c.fail(err)
			}
			return out, nil

		case protocol.FrameErrorMessage:
			em := &protocol.ErrorMessage{}
			if err := protocol.Unmarshal(f, c.limit, em); err != nil {
				return nil, c.fail(err)
			}
			if em.IsFatal() {
				c.logger.Warn("host reported fatal error", zap.Error(em))
				c.cause = em
				continue // the close control frame follows
			}
			c.logger.Warn("host reported error", zap.Error(em))

		case protocol.FrameControl:
			ctrl := &protocol.Control{}
			if err := protocol.Unmarshal(f, c.limit, ctrl); err != nil {
				return nil, c.fail(err)
			}
			switch ctrl.Type {
			case protocol.ControlPing:
				if data, err := protocol.EncodeControl(protocol.NewPong(ctrl)); err == nil {
					_ = c.write(data)
				}
			case protocol.ControlClose:
				return nil, c.fail(&CloseError{Reason: ctrl.Reason, Cause: c.cause})
			}

		default:
			return nil, c.fail(&protocol.FrameError{Kind: protocol.ErrorMalformed, Msg: fmt.Sprintf("unexpected %s frame from host", f.Type)})
		}
	}
}

// Close sends a close control frame and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.err == nil {
		c.err = ErrClosed
	}
	c.mu.Unlock()

	if data, err := protocol.EncodeControl(protocol.NewClose(protocol.CloseNormal, "")); err == nil {
		_ = c.write(data)
	}
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.ws.Close()
}

// Err returns the error that ended the connection, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// fail records err as the terminal error and closes the socket.
func (c *Client) fail(err error) error {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	err = c.err
	c.closed = true
	c.mu.Unlock()

	c.logger.Debug("connection closed", zap.Error(err))
	c.ws.Close()
	return err
}

func (c *Client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

// read returns the next frame. Cancelling ctx interrupts the read.
func (c *Client) read(ctx context.Context) (*protocol.Frame, error) {
	_ = c.ws.SetReadDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() {
		_ = c.ws.SetReadDeadline(time.Now())
	})
	defer stop()

	mt, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	if mt != websocket.BinaryMessage {
		return nil, &protocol.FrameError{Kind: protocol.ErrorMalformed, Msg: "text message"}
	}
	return protocol.DecodeFrame(data, c.limit)
}
