package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newRouter(mw ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(mw...)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/fail", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	})
	r.Get("/panic", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	return r
}

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

// sample returns the value of the series of name whose labels include
// want, and how many series the family has.
func sample(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) (float64, int) {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			match := 0
			for _, lp := range m.GetLabel() {
				if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
					match++
				}
			}
			if match != len(want) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue(), len(f.GetMetric())
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue(), len(f.GetMetric())
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount()), len(f.GetMetric())
			}
		}
		return 0, len(f.GetMetric())
	}
	return 0, 0
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	h := newRouter(m.Handler)

	serve(h, "/items/1")
	serve(h, "/items/2")
	serve(h, "/fail")
	serve(h, "/missing")

	tests := []struct {
		route string
		code  string
		want  float64
	}{
		{"/items/{id}", "200", 2},
		{"/fail", "503", 1},
		{unmatchedRoute, "404", 1},
	}
	for _, tc := range tests {
		got, _ := sample(t, reg, "remoteui_http_requests_total", map[string]string{"route": tc.route, "code": tc.code})
		if got != tc.want {
			t.Errorf("requests{%s,%s} = %v, want %v", tc.route, tc.code, got, tc.want)
		}
	}
	if got, _ := sample(t, reg, "remoteui_http_requests_in_flight", nil); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
	if _, n := sample(t, reg, "remoteui_http_request_duration_seconds", nil); n != 3 {
		t.Errorf("duration series = %d, want 3", n)
	}
}

func TestHTTPMetricsOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg,
		WithNamespace("app"),
		WithSubsystem("web"),
		WithConstLabels(prometheus.Labels{"instance": "a"}),
		WithBuckets([]float64{0.1, 1}),
	)
	serve(newRouter(m.Handler), "/items/1")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, f := range families {
		if !strings.HasPrefix(f.GetName(), "app_web_") {
			t.Errorf("metric %s lacks the app_web_ prefix", f.GetName())
		}
	}
}

func TestRecoverer(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := newRouter(Recoverer(zap.New(core)))

	rec := serve(h, "/panic")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if logs.FilterMessage("handler panic").Len() != 1 {
		t.Errorf("logged %d panics, want 1", logs.Len())
	}

	if rec := serve(h, "/items/1"); rec.Code != http.StatusOK {
		t.Errorf("status = %d after panic, want 200", rec.Code)
	}
}

func TestRecovererReraisesAbort(t *testing.T) {
	h := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if v := recover(); v != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", v)
		}
	}()
	serve(h, "/")
	t.Error("ErrAbortHandler should propagate")
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	h := newRouter(RequestLogger(zap.New(core)))

	serve(h, "/items/7")
	serve(h, "/fail")

	entries := logs.FilterMessage("request").All()
	if len(entries) != 2 {
		t.Fatalf("logged %d requests, want 2", len(entries))
	}
	first := entries[0].ContextMap()
	if first["route"] != "/items/{id}" || first["status"] != int64(200) || first["bytes"] != int64(2) {
		t.Errorf("first entry = %v", first)
	}
	if entries[1].Level != zap.WarnLevel {
		t.Errorf("5xx level = %v, want warn", entries[1].Level)
	}
}

func TestTracingPassesThrough(t *testing.T) {
	called := false
	h := newRouter(Tracing(WithRequestFilter(func(r *http.Request) bool {
		called = true
		return r.URL.Path != "/fail"
	})))

	rec := serve(h, "/items/1")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("response = %d %q, want 200 ok", rec.Code, rec.Body.String())
	}
	if rec := serve(h, "/fail"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("filtered status = %d, want 503", rec.Code)
	}
	if !called {
		t.Error("filter was not consulted")
	}
}

func TestWebSocketUpgradeThroughMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	upgrader := websocket.Upgrader{}

	r := chi.NewRouter()
	r.Use(Recoverer(nil), Tracing(), m.Handler, RequestLogger(nil))
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		_, msg, err := ws.ReadMessage()
		if err == nil {
			ws.WriteMessage(websocket.BinaryMessage, msg)
		}
	})
	ts := httptest.NewServer(r)
	defer ts.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	if err := ws.WriteMessage(websocket.BinaryMessage, []byte("ping")); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	_, msg, err := ws.ReadMessage()
	if err != nil || string(msg) != "ping" {
		t.Fatalf("ReadMessage = (%q, %v), want echo", msg, err)
	}
	ws.Close()
}
