package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vango-dev/remoteui/pkg/layout"
	"github.com/vango-dev/remoteui/pkg/ui"
)

// HostOption configures a Host.
type HostOption func(*Host)

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(logger *zap.Logger) HostOption {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) HostOption {
	return func(h *Host) {
		h.metrics = m
	}
}

// WithLayouter sets the text layouter used by every session.
// Default: layout.Default().
func WithLayouter(l layout.Layouter) HostOption {
	return func(h *Host) {
		h.layouter = l
	}
}

// WithRecorder archives every update sent.
func WithRecorder(r Recorder) HostOption {
	return func(h *Host) {
		h.recorder = r
	}
}

// TickStats summarizes one tick.
type TickStats struct {
	// Sessions is the number of live sessions after the tick.
	Sessions int
	// Accepted and Pruned count sessions added and removed before rendering.
	Accepted int
	Pruned   int
	// Repainted counts sessions that sent at least one update.
	Repainted int
	// Forced reports whether the tick replayed blank input.
	Forced bool
}

// Host runs one UI callback for many viewers. Register may be called from
// any goroutine; Tick and Run must be called from a single goroutine.
type Host struct {
	cfg      *HostConfig
	layouter layout.Layouter
	logger   *zap.Logger
	metrics  *Metrics
	recorder Recorder
	tracer   trace.Tracer

	// mu orders registrations against Close.
	mu      sync.Mutex
	closed  bool
	pending chan *Conn
	active  atomic.Int64

	// Render goroutine only.
	sessions    []*Session
	forceUpdate bool
}

// NewHost creates a host. A nil cfg uses DefaultHostConfig().
func NewHost(cfg *HostConfig, opts ...HostOption) (*Host, error) {
	cfg = cfg.withDefaults()
	h := &Host{
		cfg:    cfg,
		logger: zap.NewNop(),
		tracer: tracer(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.layouter == nil {
		l, err := layout.Default()
		if err != nil {
			return nil, err
		}
		h.layouter = l
	}
	h.logger = h.logger.Named("host")
	h.pending = make(chan *Conn, cfg.RegisterQueue)
	return h, nil
}

// Config returns a copy of the host configuration.
func (h *Host) Config() *HostConfig {
	return h.cfg.Clone()
}

// Register queues a new connection. The session is created on the next tick.
func (h *Host) Register(c *Conn) error {
	return h.RegisterLimit(c, 0)
}

// RegisterLimit is Register with a cap on active sessions. limit <= 0
// means no cap. The check and the registration are atomic with respect to
// other registrations.
func (h *Host) RegisterLimit(c *Conn, limit int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrServerShutdown
	}
	if limit > 0 && h.active.Load() >= int64(limit) {
		return ErrMaxSessionsReached
	}
	h.active.Add(1)
	select {
	case h.pending <- c:
		return nil
	default:
		h.active.Add(-1)
		return ErrRegisterQueueFull
	}
}

// ActiveSessions returns the number of registered, not yet pruned sessions.
// Safe for concurrent use.
func (h *Host) ActiveSessions() int {
	return int(h.active.Load())
}

// ForceUpdate reports whether the next tick replays blank input.
func (h *Host) ForceUpdate() bool {
	return h.forceUpdate
}

// Sessions returns the live sessions. Render goroutine only.
func (h *Host) Sessions() []*Session {
	out := make([]*Session, len(h.sessions))
	copy(out, h.sessions)
	return out
}

// Tick accepts new connections, prunes closed ones and renders every session
// once. Any repaint this tick forces all sessions to re-render next tick.
func (h *Host) Tick(ctx context.Context, app ui.App) TickStats {
	start := time.Now()
	ctx, span := startTick(ctx, h.tracer, len(h.sessions))

	stats := TickStats{Forced: h.forceUpdate}
	stats.Accepted = h.accept()
	stats.Pruned = h.prune()

	force := h.forceUpdate
	anyRepaint := false
	for _, s := range h.sessions {
		repainted, err := s.tick(ctx, app, force)
		if err != nil {
			h.fail(s, err)
		}
		if repainted {
			anyRepaint = true
			stats.Repainted++
		}
	}
	h.forceUpdate = anyRepaint
	stats.Sessions = len(h.sessions)

	span.SetAttributes(attribute.Int("remoteui.repainted", stats.Repainted))
	endSpan(span, nil)
	h.metrics.tick(time.Since(start))
	return stats
}

// Run ticks at the configured rate until ctx is done, then closes every
// session.
func (h *Host) Run(ctx context.Context, app ui.App) error {
	ticker := time.NewTicker(h.cfg.TickInterval())
	defer ticker.Stop()

	h.logger.Info("render loop started", zap.Int("tick_rate", h.cfg.TickRate))
	for {
		select {
		case <-ctx.Done():
			h.Close()
			h.logger.Info("render loop stopped")
			return ctx.Err()
		case <-ticker.C:
			h.Tick(ctx, app)
		}
	}
}

// Close rejects further registrations and closes every session with
// ErrServerShutdown. Render goroutine only.
func (h *Host) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.accept()
	for _, s := range h.sessions {
		s.conn.Close(ErrServerShutdown)
	}
	h.prune()
}

func (h *Host) accept() int {
	n := 0
	for {
		select {
		case c := <-h.pending:
			if c.Closed() {
				h.active.Add(-1)
				continue
			}
			s := newSession(c, h)
			h.sessions = append(h.sessions, s)
			h.metrics.sessionOpened()
			s.logger.Info("session started")
			n++
		default:
			return n
		}
	}
}

func (h *Host) prune() int {
	live := h.sessions[:0]
	n := 0
	for _, s := range h.sessions {
		if !s.conn.Closed() {
			live = append(live, s)
			continue
		}
		s.Data().Clear()
		h.active.Add(-1)
		h.metrics.sessionClosed()
		s.logger.Info("session closed",
			zap.Error(s.conn.Err()),
			zap.Uint64("updates_sent", s.seq),
			zap.Duration("duration", time.Since(s.created)),
		)
		n++
	}
	clear(h.sessions[len(live):])
	h.sessions = live
	return n
}

// fail closes the session's connection. The session is pruned next tick.
func (h *Host) fail(s *Session, err error) {
	var pe *PanicError
	switch {
	case errors.As(err, &pe):
		h.metrics.connError("panic")
		s.logger.Error("ui callback panic",
			zap.Any("panic", pe.Value),
			zap.ByteString("stack", pe.Stack),
		)
	case errors.Is(err, ErrSendTimeout):
		h.metrics.connError("send_timeout")
		s.logger.Warn("viewer stalled, disconnecting", zap.Duration("send_timeout", s.cfg.SendTimeout))
	case errors.Is(err, ErrConnectionClosed):
		s.logger.Debug("connection closed during send")
	default:
		h.metrics.connError("encode")
		s.logger.Error("render failed", zap.Error(err))
	}
	s.conn.Close(err)
}
