package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vango-dev/remoteui/pkg/frame"
	"github.com/vango-dev/remoteui/pkg/middleware"
	"github.com/vango-dev/remoteui/pkg/protocol"
)

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger. Default: zap.NewNop().
func WithServerLogger(logger *zap.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer exposes the collectors of g on /metrics.
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithServerMetrics records handshake failures in m. Usually the same
// Metrics given to the Host.
func WithServerMetrics(m *Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithMiddleware adds HTTP middleware after the built-in recovery and
// tracing and before request logging.
func WithMiddleware(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(s *Server) {
		s.middleware = append(s.middleware, mw...)
	}
}

// Server accepts viewer websockets and registers them with a Host.
type Server struct {
	host     *Host
	config   *ServerConfig
	session  *SessionConfig
	upgrader websocket.Upgrader
	router   chi.Router

	httpServer *http.Server
	logger     *zap.Logger
	metrics    *Metrics
	gatherer   prometheus.Gatherer
	middleware []func(http.Handler) http.Handler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	conns   map[*Conn]struct{}
	closing atomic.Bool
}

// New creates a server for host. A nil cfg uses DefaultServerConfig().
func New(host *Host, cfg *ServerConfig, opts ...ServerOption) *Server {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		host:    host,
		config:  cfg,
		session: host.cfg.Session,
		logger:  zap.NewNop(),
		ctx:     ctx,
		cancel:  cancel,
		conns:   make(map[*Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("server")

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:   cfg.ReadBufferSize,
		WriteBufferSize:  cfg.WriteBufferSize,
		HandshakeTimeout: s.session.HandshakeTimeout,
		CheckOrigin:      cfg.CheckOrigin,
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(s.logger),
		middleware.Tracing(middleware.WithTracerName(TracerName)),
	)
	r.Use(s.middleware...)
	r.Use(middleware.RequestLogger(s.logger))
	r.Get("/ws", s.HandleWebSocket)
	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	s.router = r

	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler serving /ws, /healthz and /metrics.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe listens on the configured address. It returns nil after
// Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", zap.String("address", s.config.Address))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve accepts connections on l. It returns nil after Shutdown.
func (s *Server) Serve(l net.Listener) error {
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting viewers, closes every connection with
// ErrServerShutdown and waits for their I/O goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closing.Store(true)
	s.cancel()
	err := s.httpServer.Shutdown(ctx)

	s.mu.Lock()
	for c := range s.conns {
		c.Close(ErrServerShutdown)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.closing.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("shutting down"))
		return
	}
	_, _ = w.Write([]byte("ok"))
}

// HandleWebSocket upgrades the request, performs the handshake and serves
// the viewer until the connection ends.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.closing.Load() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.metrics.connError("upgrade")
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	hello, err := s.handshake(ws)
	if err != nil {
		s.metrics.connError("handshake")
		s.logger.Debug("handshake failed", zap.Error(err), zap.String("remote", r.RemoteAddr))
		ws.Close()
		return
	}

	id := generateSessionID()
	conn := NewConn(id, s.session.InboundQueue, s.session.OutboundQueue)
	if hello.ViewportW > 0 && hello.ViewportH > 0 {
		// The first tick renders for the announced viewport.
		screen := frame.Rect{Max: frame.Pos2{X: float32(hello.ViewportW), Y: float32(hello.ViewportH)}}
		_ = conn.Deliver(s.ctx, &frame.Input{ScreenRect: &screen, PixelsPerPoint: 1})
	}
	if err := s.host.RegisterLimit(conn, s.config.MaxSessions); err != nil {
		s.reject(ws, protocol.HandshakeServerBusy)
		s.logger.Warn("viewer rejected", zap.Error(err))
		return
	}

	s.track(conn)
	defer s.untrack(conn)

	logger := s.logger.With(zap.String("session_id", id))
	if err := s.writeHello(ws, &protocol.ServerHello{
		Status:     protocol.HandshakeOK,
		Version:    protocol.CurrentVersion,
		SessionID:  id,
		ServerTime: uint64(time.Now().UnixMilli()),
		TickRate:   uint16(s.host.cfg.TickRate),
	}); err != nil {
		conn.Close(NewSessionError(id, "handshake", err))
		ws.Close()
		return
	}
	logger.Info("viewer connected",
		zap.String("remote", r.RemoteAddr),
		zap.String("viewer", hello.Name),
		zap.Stringer("version", hello.Version),
	)

	newTransport(ws, conn, s.session, logger, s.metrics).serve(s.ctx)
	logger.Info("viewer disconnected", zap.Error(conn.Err()))
}

// handshake reads the ClientHello and checks the protocol version. On
// failure the viewer has been told why.
func (s *Server) handshake(ws *websocket.Conn) (*protocol.ClientHello, error) {
	ws.SetReadLimit(s.session.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(s.session.HandshakeTimeout))

	mt, data, err := ws.ReadMessage()
	if err != nil {
		return nil, NewSessionError("", "handshake", err)
	}
	if mt != websocket.BinaryMessage {
		s.reject(ws, protocol.HandshakeInvalidFormat)
		return nil, ErrInvalidHandshake
	}
	hello, err := protocol.DecodeClientHello(data)
	if err != nil {
		s.reject(ws, protocol.HandshakeInvalidFormat)
		return nil, errors.Join(ErrInvalidHandshake, err)
	}
	if !protocol.CurrentVersion.Compatible(hello.Version) {
		s.reject(ws, protocol.HandshakeVersionMismatch)
		return nil, ErrVersionMismatch
	}
	_ = ws.SetReadDeadline(time.Time{})
	return hello, nil
}

// reject answers the handshake with a failure status and closes ws.
func (s *Server) reject(ws *websocket.Conn, status protocol.HandshakeStatus) {
	_ = s.writeHello(ws, &protocol.ServerHello{
		Status:     status,
		Version:    protocol.CurrentVersion,
		ServerTime: uint64(time.Now().UnixMilli()),
	})
	deadline := time.Now().Add(s.session.WriteTimeout)
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, status.String()), deadline)
	ws.Close()
}

func (s *Server) writeHello(ws *websocket.Conn, sh *protocol.ServerHello) error {
	data, err := protocol.EncodeServerHello(sh)
	if err != nil {
		return err
	}
	_ = ws.SetWriteDeadline(time.Now().Add(s.session.WriteTimeout))
	return ws.WriteMessage(websocket.BinaryMessage, data)
}

func (s *Server) track(c *Conn) {
	s.wg.Add(1)
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	if s.closing.Load() {
		c.Close(ErrServerShutdown)
	}
}

func (s *Server) untrack(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.wg.Done()
}

// generateSessionID returns 16 random bytes, hex encoded.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("server: crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}
