package server

import (
	"context"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vango-dev/remoteui/pkg/delta"
	"github.com/vango-dev/remoteui/pkg/frame"
	"github.com/vango-dev/remoteui/pkg/protocol"
	"github.com/vango-dev/remoteui/pkg/ui"
	"github.com/vango-dev/remoteui/pkg/userdata"
)

// Recorder receives every encoded update frame queued for a viewer. Record is
// called on the render goroutine and must not block.
type Recorder interface {
	Record(sessionID string, seq uint64, frame []byte)
}

// Session is the render-side state of one viewer. It is owned by the Host
// and only touched from the render goroutine.
type Session struct {
	id      string
	conn    *Conn
	ui      *ui.Context
	encoder *delta.Encoder

	// blank is the last input with its events stripped, replayed when
	// another viewer changed shared state.
	blank *frame.Input

	cfg      *SessionConfig
	logger   *zap.Logger
	metrics  *Metrics
	recorder Recorder
	tracer   trace.Tracer

	seq     uint64
	created time.Time
}

func newSession(conn *Conn, h *Host) *Session {
	return &Session{
		id:   conn.ID(),
		conn: conn,
		ui:   ui.NewContext(h.layouter),
		encoder: delta.NewEncoder(
			delta.WithFullUpdateInterval(h.cfg.FullUpdateInterval),
			delta.WithPolicy(h.cfg.CachePolicy),
		),
		cfg:      h.cfg.Session,
		logger:   h.logger.With(zap.String("session_id", conn.ID())),
		metrics:  h.metrics,
		recorder: h.recorder,
		tracer:   h.tracer,
		created:  time.Now(),
	}
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Data returns the per-viewer store.
func (s *Session) Data() *userdata.Store {
	return s.ui.Data()
}

// Sent returns the number of updates sent to the viewer.
func (s *Session) Sent() uint64 {
	return s.seq
}

// tick processes the queued input of one viewer. It reports whether any
// pass produced an update. force replays the last blank input when no input
// arrived.
func (s *Session) tick(ctx context.Context, app ui.App, force bool) (bool, error) {
	inputs := s.conn.Drain()
	if len(inputs) == 0 {
		if !force || s.blank == nil {
			return false, nil
		}
		s.metrics.forcedRender()
		return s.render(ctx, s.blank, app, true)
	}

	repainted := false
	for _, in := range inputs {
		s.metrics.inputReceived()
		sent, err := s.render(ctx, in, app, false)
		if err != nil {
			return repainted, err
		}
		repainted = repainted || sent
		s.blank = in.Blank()
	}
	return repainted, nil
}

// render runs one UI pass and sends the result if the pass asks for a repaint.
func (s *Session) render(ctx context.Context, in *frame.Input, app ui.App, forced bool) (sent bool, err error) {
	_, span := startRender(ctx, s.tracer, s.id, forced)
	defer func() { endSpan(span, err) }()

	out, err := s.run(in, app)
	if err != nil {
		return false, err
	}
	if out.Err != nil {
		s.logger.Warn("text layout failed", zap.Error(out.Err))
	}
	if !out.Repaint {
		s.metrics.frameSuppressed()
		return false, nil
	}

	update, err := s.encoder.Encode(out.Frame)
	if err != nil {
		return false, NewSessionError(s.id, "encode", err)
	}
	msg, err := protocol.EncodeUpdate(update)
	if err != nil {
		return false, NewSessionError(s.id, "encode", err)
	}
	span.SetAttributes(
		attribute.String("update.kind", update.Kind.String()),
		attribute.Int("frame.items", out.Frame.Len()),
	)

	if err := s.conn.Send(msg, s.cfg.SendTimeout); err != nil {
		return false, NewSessionError(s.id, "send", err)
	}
	if s.recorder != nil {
		s.recorder.Record(s.id, s.seq, msg)
	}
	s.seq++
	s.metrics.updateSent(update.Kind, len(msg))

	if ce := s.logger.Check(zap.DebugLevel, "update sent"); ce != nil {
		refs, inline := update.Counts()
		ce.Write(
			zap.Stringer("kind", update.Kind),
			zap.Int("bytes", len(msg)),
			zap.Int("refs", refs),
			zap.Int("inline", inline),
		)
	}
	return true, nil
}

// run calls the UI callback, converting a panic into a PanicError.
func (s *Session) run(in *frame.Input, app ui.App) (out ui.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{SessionID: s.id, Value: r, Stack: debug.Stack()}
		}
	}()
	return s.ui.Run(in, app), nil
}
