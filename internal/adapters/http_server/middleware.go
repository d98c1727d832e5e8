package httpserver

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"review_insights/internal/adapters/observability"
)

// Timeout bounds every request except uploads, which are limited by size instead.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		bounded := http.TimeoutHandler(next, d, "timeout")
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			bounded.ServeHTTP(w, r)
		})
	}
}

// recorder keeps the status and size of a response for metrics and logs.
type recorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *recorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

func (w *recorder) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// routeOf prefers the chi pattern so metrics do not explode on app names.
func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// Observe records request metrics and writes one access log line per request.
// 5xx responses log at warn.
func Observe(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			route, took := routeOf(r), time.Since(start)
			observability.ObserveHTTP(route, r.Method, rec.code(), took)

			ev := l.Info()
			if rec.code() >= 500 {
				ev = l.Warn()
			}
			if app := chi.URLParam(r, "app"); app != "" {
				ev = ev.Str("app", app)
			}
			ev.Str("route", route).
				Str("method", r.Method).
				Int("status", rec.code()).
				Int("bytes", rec.size).
				Dur("duration", took).
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("remote", remoteIP(r)).
				Msg("http_request")
		})
	}
}

// remoteIP takes the first X-Forwarded-For hop, then X-Real-IP, then RemoteAddr.
func remoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
