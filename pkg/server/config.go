package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/vango-dev/remoteui/pkg/contenthash"
	"github.com/vango-dev/remoteui/pkg/delta"
)

// SessionConfig holds configuration for individual viewer connections.
type SessionConfig struct {
	// Queues

	// InboundQueue is the number of input snapshots buffered between the
	// read loop and the render loop. A full queue stalls the read loop.
	// Default: 64.
	InboundQueue int

	// OutboundQueue is the number of encoded updates buffered between the
	// render loop and the write loop.
	// Default: 16.
	OutboundQueue int

	// SendTimeout is the longest the render loop waits on a full outbound
	// queue before disconnecting the viewer.
	// Default: 2 seconds.
	SendTimeout time.Duration

	// Timeouts

	// ReadTimeout is the maximum time without any message or pong from the viewer.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HandshakeTimeout is the maximum time for the initial handshake.
	// Default: 10 seconds.
	HandshakeTimeout time.Duration

	// HeartbeatInterval is the time between websocket pings. It must be
	// shorter than ReadTimeout.
	// Default: 20 seconds.
	HeartbeatInterval time.Duration

	// Limits

	// MaxMessageSize is the maximum size of an incoming websocket message
	// and of a decompressed payload.
	// Default: 4MB.
	MaxMessageSize int64
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		InboundQueue:      64,
		OutboundQueue:     16,
		SendTimeout:       2 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		HeartbeatInterval: 20 * time.Second,
		MaxMessageSize:    4 * 1024 * 1024, // 4MB
	}
}

// Clone returns a copy of the SessionConfig.
func (c *SessionConfig) Clone() *SessionConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// withDefaults returns a copy with zero fields replaced by defaults.
func (c *SessionConfig) withDefaults() *SessionConfig {
	d := DefaultSessionConfig()
	if c == nil {
		return d
	}
	out := c.Clone()
	if out.InboundQueue <= 0 {
		out.InboundQueue = d.InboundQueue
	}
	if out.OutboundQueue <= 0 {
		out.OutboundQueue = d.OutboundQueue
	}
	if out.SendTimeout <= 0 {
		out.SendTimeout = d.SendTimeout
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = d.ReadTimeout
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.HandshakeTimeout <= 0 {
		out.HandshakeTimeout = d.HandshakeTimeout
	}
	if out.HeartbeatInterval <= 0 || out.HeartbeatInterval >= out.ReadTimeout {
		out.HeartbeatInterval = out.ReadTimeout / 3
	}
	if out.MaxMessageSize <= 0 {
		out.MaxMessageSize = d.MaxMessageSize
	}
	return out
}

// HostConfig holds configuration for the render loop.
type HostConfig struct {
	// TickRate is the number of ticks per second Run performs.
	// Default: 30.
	TickRate int

	// FullUpdateInterval is the number of partial-eligible ticks after
	// which a viewer receives a Full update.
	// Default: 90.
	FullUpdateInterval int

	// CachePolicy is the digest-match policy of every session encoder.
	// Default: contenthash.ContentAddressed.
	CachePolicy contenthash.Policy

	// RegisterQueue is the number of new connections that may wait for the
	// next tick.
	// Default: 64.
	RegisterQueue int

	// Session configures each viewer connection.
	// Default: DefaultSessionConfig().
	Session *SessionConfig
}

// DefaultHostConfig returns a HostConfig with sensible defaults.
func DefaultHostConfig() *HostConfig {
	return &HostConfig{
		TickRate:           30,
		FullUpdateInterval: delta.DefaultFullUpdateInterval,
		CachePolicy:        contenthash.ContentAddressed,
		RegisterQueue:      64,
		Session:            DefaultSessionConfig(),
	}
}

// Clone returns a copy of the HostConfig.
func (c *HostConfig) Clone() *HostConfig {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Session = c.Session.Clone()
	return &clone
}

func (c *HostConfig) withDefaults() *HostConfig {
	d := DefaultHostConfig()
	if c == nil {
		return d
	}
	out := c.Clone()
	if out.TickRate <= 0 {
		out.TickRate = d.TickRate
	}
	if out.FullUpdateInterval <= 0 {
		out.FullUpdateInterval = d.FullUpdateInterval
	}
	if out.RegisterQueue <= 0 {
		out.RegisterQueue = d.RegisterQueue
	}
	out.Session = out.Session.withDefaults()
	return out
}

// TickInterval returns the period between ticks.
func (c *HostConfig) TickInterval() time.Duration {
	rate := c.TickRate
	if rate <= 0 {
		rate = DefaultHostConfig().TickRate
	}
	return time.Second / time.Duration(rate)
}

// ServerConfig holds configuration for the HTTP/WebSocket server.
type ServerConfig struct {
	// Address is the address to listen on (e.g., ":8080" or "localhost:3000").
	// Default: ":8080".
	Address string

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin is called to validate the request origin.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10 seconds.
	ShutdownTimeout time.Duration

	// MaxSessions is the maximum number of concurrent viewers.
	// 0 means no limit.
	MaxSessions int
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:         ":8080",
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     SameOriginCheck,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Clone returns a copy of the ServerConfig.
func (c *ServerConfig) Clone() *ServerConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

func (c *ServerConfig) withDefaults() *ServerConfig {
	d := DefaultServerConfig()
	if c == nil {
		return d
	}
	out := c.Clone()
	if out.Address == "" {
		out.Address = d.Address
	}
	if out.ReadBufferSize <= 0 {
		out.ReadBufferSize = d.ReadBufferSize
	}
	if out.WriteBufferSize <= 0 {
		out.WriteBufferSize = d.WriteBufferSize
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = d.CheckOrigin
	}
	if out.ShutdownTimeout <= 0 {
		out.ShutdownTimeout = d.ShutdownTimeout
	}
	return out
}

// SameOriginCheck accepts requests without an Origin header (native
// viewers) and browser requests whose origin host matches the request host.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return r.Host != "" && originURL.Host == r.Host
}
