// Package middleware provides HTTP middleware for the remoteui host server.
//
// Every middleware has the chi signature func(http.Handler) http.Handler and
// wraps the response writer with chi's WrapResponseWriter, which keeps
// http.Hijacker available for the websocket upgrade on /ws.
//
//   - Recoverer turns a handler panic into a 500 and logs it.
//   - Tracing starts an OpenTelemetry server span per request.
//   - HTTPMetrics counts requests and observes their duration by route.
//   - RequestLogger writes one zap entry per request.
//
// A websocket request completes when the viewer disconnects, so its duration
// is the lifetime of the connection.
//
//	m := middleware.NewHTTPMetrics(reg)
//	r := chi.NewRouter()
//	r.Use(middleware.Recoverer(logger), middleware.Tracing(), m.Handler, middleware.RequestLogger(logger))
package middleware
