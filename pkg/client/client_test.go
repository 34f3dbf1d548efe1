package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/remoteui/pkg/frame"
	"github.com/vango-dev/remoteui/pkg/protocol"
	"github.com/vango-dev/remoteui/pkg/server"
	"github.com/vango-dev/remoteui/pkg/ui"
)

// counter draws a label with the number of "+" text events seen by any viewer.
type counter struct {
	n int
}

func (a *counter) app(c *ui.Context) {
	for _, ev := range c.Input().Events {
		if ev.Kind == frame.EventText && ev.Text == "+" {
			a.n++
		}
	}
	c.FillRect(frame.Rect{Max: frame.Pos2{X: 10, Y: 10}}, 0, frame.White)
	c.Label(frame.Pos2{X: 20, Y: 0}, strings.Repeat("|", a.n+1), 14, frame.Black)
}

type testHost struct {
	host *server.Host
	srv  *server.Server
	url  string
}

func startHost(t *testing.T, cfg *server.ServerConfig, run bool) *testHost {
	t.Helper()
	h, err := server.NewHost(&server.HostConfig{TickRate: 100})
	if err != nil {
		t.Fatalf("NewHost failed: %v", err)
	}
	srv := server.New(h, cfg)
	ts := httptest.NewServer(srv.Handler())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	if run {
		go func() {
			defer close(done)
			_ = h.Run(ctx, (&counter{}).app)
		}()
	} else {
		close(done)
	}
	t.Cleanup(func() {
		cancel()
		<-done
		shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
		ts.Close()
	})
	return &testHost{host: h, srv: srv, url: "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"}
}

func dial(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, opts...)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func next(t *testing.T, c *Client) *frame.Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	f, err := c.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	return f
}

func labelText(t *testing.T, f *frame.Frame) string {
	t.Helper()
	for _, cs := range f.Shapes {
		if cs.Shape.Text != nil {
			if cs.Shape.Text.Galley == nil {
				t.Fatal("text shape was not rehydrated")
			}
			return cs.Shape.Text.Job.Text
		}
	}
	t.Fatal("frame has no text shape")
	return ""
}

func TestClientReceivesFrames(t *testing.T) {
	th := startHost(t, nil, true)
	c := dial(t, th.url, WithName("test"), WithViewport(200, 100))

	if len(c.SessionID()) != 32 {
		t.Errorf("SessionID() = %q, want 32 hex chars", c.SessionID())
	}
	if c.TickRate() != 100 {
		t.Errorf("TickRate() = %d, want 100", c.TickRate())
	}

	f := next(t, c)
	if got := labelText(t, f); got != "|" {
		t.Errorf("label = %q, want %q", got, "|")
	}

	if err := c.SendInput(&frame.Input{Events: []frame.Event{{Kind: frame.EventText, Text: "+"}}}); err != nil {
		t.Fatalf("SendInput failed: %v", err)
	}
	f = next(t, c)
	if got := labelText(t, f); got != "||" {
		t.Errorf("label = %q, want %q", got, "||")
	}
	if f.Len() != 2 {
		t.Errorf("Len() = %d, want 2", f.Len())
	}
}

func TestClientSeesOtherViewersChanges(t *testing.T) {
	th := startHost(t, nil, true)
	a := dial(t, th.url, WithViewport(200, 100))
	b := dial(t, th.url, WithViewport(200, 100))
	next(t, a)
	next(t, b)

	if err := a.SendInput(&frame.Input{Events: []frame.Event{{Kind: frame.EventText, Text: "+"}}}); err != nil {
		t.Fatalf("SendInput failed: %v", err)
	}

	if got := labelText(t, next(t, b)); got != "||" {
		t.Errorf("B label = %q, want %q", got, "||")
	}
}

func TestClientDebugModeOmitsReferences(t *testing.T) {
	th := startHost(t, nil, true)
	c := dial(t, th.url, WithViewport(200, 100), WithDebugMode(true))
	next(t, c)

	_ = c.SendInput(&frame.Input{Events: []frame.Event{{Kind: frame.EventText, Text: "+"}}})
	f := next(t, c)

	// The unchanged rect is referenced and therefore hidden.
	if f.Len() != 1 || f.Shapes[0].Shape.Text == nil {
		t.Errorf("frame = %+v, want only the changed label", f.Shapes)
	}
}

func TestDialRejected(t *testing.T) {
	th := startHost(t, &server.ServerConfig{MaxSessions: 1}, false)
	dial(t, th.url)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Dial(ctx, th.url)

	var he *HandshakeError
	if !errors.As(err, &he) {
		t.Fatalf("Dial = %v, want *HandshakeError", err)
	}
	if he.Status != protocol.HandshakeServerBusy {
		t.Errorf("Status = %v, want ServerBusy", he.Status)
	}
}

func TestNextReportsHostShutdown(t *testing.T) {
	th := startHost(t, nil, false)
	c := dial(t, th.url)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := th.srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	_, err := c.Next(ctx)
	var ce *CloseError
	if !errors.As(err, &ce) {
		t.Fatalf("Next = %v, want *CloseError", err)
	}
	if ce.Reason != protocol.CloseServerShutdown {
		t.Errorf("Reason = %v, want ServerShutdown", ce.Reason)
	}
	if ce.Cause == nil || ce.Cause.Code != protocol.ErrServerShutdown {
		t.Errorf("Cause = %+v, want ErrServerShutdown", ce.Cause)
	}

	if err := c.SendInput(&frame.Input{}); !errors.Is(err, ce) {
		t.Errorf("SendInput after close = %v, want the close error", err)
	}
}

func TestNextCancelled(t *testing.T) {
	th := startHost(t, nil, false)
	c := dial(t, th.url)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := c.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Next = %v, want context.DeadlineExceeded", err)
	}
	if !errors.Is(c.Err(), context.DeadlineExceeded) {
		t.Errorf("Err() = %v, want context.DeadlineExceeded", c.Err())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	th := startHost(t, nil, false)
	c := dial(t, th.url)

	if err := c.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
	if err := c.SendInput(&frame.Input{}); !errors.Is(err, ErrClosed) {
		t.Errorf("SendInput = %v, want ErrClosed", err)
	}
}
