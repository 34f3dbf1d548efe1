package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vango-dev/remoteui/pkg/delta"
	"github.com/vango-dev/remoteui/pkg/frame"
	"github.com/vango-dev/remoteui/pkg/protocol"
)

func wsURL(t *testing.T, baseURL, path string) string {
	t.Helper()
	if !strings.HasPrefix(baseURL, "http") {
		t.Fatalf("unexpected base URL: %q", baseURL)
	}
	return "ws" + strings.TrimPrefix(baseURL, "http") + path
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%q) failed: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func writeHandshake(t *testing.T, conn *websocket.Conn, hello *protocol.ClientHello) {
	t.Helper()
	data, err := protocol.EncodeClientHello(hello)
	if err != nil {
		t.Fatalf("EncodeClientHello failed: %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		t.Fatalf("write handshake failed: %v", err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) *protocol.Frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	f, err := protocol.DecodeFrame(msg, 0)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	return f
}

func readServerHello(t *testing.T, conn *websocket.Conn) *protocol.ServerHello {
	t.Helper()
	f := readFrame(t, conn)
	if f.Type != protocol.FrameHandshake {
		t.Fatalf("frame type = %v, want %v", f.Type, protocol.FrameHandshake)
	}
	hello := &protocol.ServerHello{}
	if err := protocol.Unmarshal(f, 0, hello); err != nil {
		t.Fatalf("decode ServerHello failed: %v", err)
	}
	return hello
}

func readUpdate(t *testing.T, conn *websocket.Conn) *delta.Update {
	t.Helper()
	f := readFrame(t, conn)
	u, err := protocol.UpdateFromFrame(f, 0)
	if err != nil {
		t.Fatalf("UpdateFromFrame(%v) failed: %v", f.Type, err)
	}
	return u
}

func newTestServer(t *testing.T, hostCfg *HostConfig, cfg *ServerConfig, opts ...ServerOption) (*Host, *httptest.Server) {
	t.Helper()
	h := newTestHost(t, hostCfg, WithLogger(zap.NewNop()))
	srv := New(h, cfg, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		ts.Close()
	})
	return h, ts
}

func runHost(t *testing.T, h *Host) *sharedCounter {
	t.Helper()
	state := &sharedCounter{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.Run(ctx, state.app)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return state
}

func TestServerEndToEnd(t *testing.T) {
	h, ts := newTestServer(t, &HostConfig{TickRate: 100}, nil)
	runHost(t, h)

	conn := dialWS(t, wsURL(t, ts.URL, "/ws"))
	writeHandshake(t, conn, &protocol.ClientHello{
		Version:   protocol.CurrentVersion,
		Name:      "test",
		ViewportW: 200,
		ViewportH: 100,
	})

	hello := readServerHello(t, conn)
	if hello.Status != protocol.HandshakeOK {
		t.Fatalf("Status = %v, want OK", hello.Status)
	}
	if len(hello.SessionID) != 32 {
		t.Errorf("SessionID = %q, want 32 hex chars", hello.SessionID)
	}
	if hello.TickRate != 100 {
		t.Errorf("TickRate = %d, want 100", hello.TickRate)
	}

	dec := delta.NewDecoder(nil)

	// The announced viewport is rendered without further input.
	first := readUpdate(t, conn)
	if first.Kind != delta.KindFull {
		t.Fatalf("first update kind = %v, want full", first.Kind)
	}
	f, err := dec.Decode(first)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if r := radius(t, f); r != 10 {
		t.Errorf("radius = %v, want 10", r)
	}

	screen := testScreen
	data, err := protocol.EncodeInput(&frame.Input{
		ScreenRect: &screen,
		Events:     []frame.Event{text("+")},
	})
	if err != nil {
		t.Fatalf("EncodeInput failed: %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		t.Fatalf("write input failed: %v", err)
	}

	second := readUpdate(t, conn)
	if second.Kind != delta.KindPartial {
		t.Errorf("second update kind = %v, want partial", second.Kind)
	}
	f, err = dec.Decode(second)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if r := radius(t, f); r != 11 {
		t.Errorf("radius = %v, want 11", r)
	}
}

func TestServerVersionMismatch(t *testing.T) {
	_, ts := newTestServer(t, nil, nil)

	conn := dialWS(t, wsURL(t, ts.URL, "/ws"))
	writeHandshake(t, conn, &protocol.ClientHello{Version: protocol.ProtocolVersion{Major: 9}})

	hello := readServerHello(t, conn)
	if hello.Status != protocol.HandshakeVersionMismatch {
		t.Errorf("Status = %v, want VersionMismatch", hello.Status)
	}
}

func TestServerInvalidHandshake(t *testing.T) {
	_, ts := newTestServer(t, nil, nil)

	conn := dialWS(t, wsURL(t, ts.URL, "/ws"))
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0xff, 0, 0, 0, 0, 0}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	hello := readServerHello(t, conn)
	if hello.Status != protocol.HandshakeInvalidFormat {
		t.Errorf("Status = %v, want InvalidFormat", hello.Status)
	}
}

func TestServerMaxSessions(t *testing.T) {
	_, ts := newTestServer(t, nil, &ServerConfig{MaxSessions: 1})

	first := dialWS(t, wsURL(t, ts.URL, "/ws"))
	writeHandshake(t, first, &protocol.ClientHello{Version: protocol.CurrentVersion})
	if hello := readServerHello(t, first); hello.Status != protocol.HandshakeOK {
		t.Fatalf("first Status = %v, want OK", hello.Status)
	}

	second := dialWS(t, wsURL(t, ts.URL, "/ws"))
	writeHandshake(t, second, &protocol.ClientHello{Version: protocol.CurrentVersion})
	if hello := readServerHello(t, second); hello.Status != protocol.HandshakeServerBusy {
		t.Errorf("second Status = %v, want ServerBusy", hello.Status)
	}
}

func TestServerClosesOnProtocolError(t *testing.T) {
	_, ts := newTestServer(t, nil, nil)

	conn := dialWS(t, wsURL(t, ts.URL, "/ws"))
	writeHandshake(t, conn, &protocol.ClientHello{Version: protocol.CurrentVersion})
	if hello := readServerHello(t, conn); hello.Status != protocol.HandshakeOK {
		t.Fatalf("Status = %v, want OK", hello.Status)
	}

	// A frame header announcing more payload than sent.
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{byte(protocol.FrameInput), 0, 0, 0, 0, 9}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	f := readFrame(t, conn)
	if f.Type != protocol.FrameErrorMessage {
		t.Fatalf("frame type = %v, want %v", f.Type, protocol.FrameErrorMessage)
	}
	em := &protocol.ErrorMessage{}
	if err := protocol.Unmarshal(f, 0, em); err != nil {
		t.Fatalf("decode ErrorMessage failed: %v", err)
	}
	if em.Code != protocol.ErrInvalidFrame || !em.Fatal {
		t.Errorf("ErrorMessage = %+v, want fatal ErrInvalidFrame", em)
	}

	f = readFrame(t, conn)
	if f.Type != protocol.FrameControl {
		t.Fatalf("frame type = %v, want %v", f.Type, protocol.FrameControl)
	}
	ctrl := &protocol.Control{}
	if err := protocol.Unmarshal(f, 0, ctrl); err != nil {
		t.Fatalf("decode Control failed: %v", err)
	}
	if ctrl.Type != protocol.ControlClose || ctrl.Reason != protocol.CloseError {
		t.Errorf("Control = %+v, want close with CloseError", ctrl)
	}
}

func TestServerAnswersPing(t *testing.T) {
	_, ts := newTestServer(t, nil, nil)

	conn := dialWS(t, wsURL(t, ts.URL, "/ws"))
	writeHandshake(t, conn, &protocol.ClientHello{Version: protocol.CurrentVersion})
	readServerHello(t, conn)

	data, err := protocol.EncodeControl(protocol.NewPing(1234))
	if err != nil {
		t.Fatalf("EncodeControl failed: %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	f := readFrame(t, conn)
	ctrl := &protocol.Control{}
	if err := protocol.Unmarshal(f, 0, ctrl); err != nil {
		t.Fatalf("decode Control failed: %v", err)
	}
	if ctrl.Type != protocol.ControlPong || ctrl.Timestamp != 1234 {
		t.Errorf("Control = %+v, want pong echoing 1234", ctrl)
	}
}

func TestServerRejectsCrossOrigin(t *testing.T) {
	_, ts := newTestServer(t, nil, nil)

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(t, ts.URL, "/ws"), header)
	if err == nil {
		t.Fatal("Dial with a foreign origin should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}
}

func TestServerHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	h := newTestHost(t, nil, WithMetrics(m))
	srv := New(h, nil, WithGatherer(reg), WithServerMetrics(m))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	h.Tick(context.Background(), (&sharedCounter{}).app)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("/healthz = %d %q, want 200 ok", resp.StatusCode, body)
	}

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, name := range []string{"remoteui_active_sessions", "remoteui_ticks_total 1"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("/metrics missing %q", name)
		}
	}
}

func TestServerShutdownClosesViewers(t *testing.T) {
	h := newTestHost(t, nil)
	srv := New(h, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialWS(t, wsURL(t, ts.URL, "/ws"))
	writeHandshake(t, conn, &protocol.ClientHello{Version: protocol.CurrentVersion})
	readServerHello(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	f := readFrame(t, conn)
	em := &protocol.ErrorMessage{}
	if err := protocol.Unmarshal(f, 0, em); err != nil {
		t.Fatalf("decode ErrorMessage failed: %v", err)
	}
	if em.Code != protocol.ErrServerShutdown {
		t.Errorf("Code = %v, want ErrServerShutdown", em.Code)
	}
}

func TestGenerateSessionID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateSessionID()
		if len(id) != 32 {
			t.Fatalf("len(id) = %d, want 32", len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate session ID %q", id)
		}
		seen[id] = true
	}
}
