package logutil

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// Middleware injects base into every request context and writes one
// access log line per request.
func Middleware(base zerolog.Logger, next http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		l := GetOrDefault(r.Context())
		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = l.Error()
		case status >= 400:
			ev = l.Info()
		default:
			ev = l.Debug()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request handled")
	})(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLog := base.With().Str("remote", r.RemoteAddr).Logger()
		access.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), reqLog)))
	})
}
