package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/andrebq/lostminer/internal/logutil"
)

type (
	Options struct {
		Bind string
		// ShutdownTimeout limits how long in-flight requests can take
		// once ctx is cancelled
		ShutdownTimeout time.Duration
		// MaxBodyBytes caps every request body, multipart uploads included
		MaxBodyBytes int64
		// Ready, when set, receives the address the server is listening on
		Ready func(addr net.Addr)
	}
)

const (
	DefaultShutdownTimeout = time.Minute
	DefaultMaxBodyBytes    = 64 << 20
)

// Serve runs handler until ctx is cancelled, then waits for the in-flight
// requests to complete. A server closed by ctx is not an error.
func Serve(ctx context.Context, opts Options, handler http.Handler) error {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	lst, err := net.Listen("tcp", opts.Bind)
	if err != nil {
		return err
	}
	server := http.Server{
		Handler:           limitBody(opts.MaxBodyBytes, handler),
		Addr:              lst.Addr().String(),
		ReadTimeout:       time.Minute * 5,
		WriteTimeout:      time.Minute,
		ReadHeaderTimeout: time.Minute,
		IdleTimeout:       time.Minute * 5,
	}
	if opts.Ready != nil {
		opts.Ready(lst.Addr())
	}
	errc := make(chan error, 1)
	done := make(chan struct{})
	go serveInBackground(ctx, &server, lst, opts.ShutdownTimeout, errc, done)
	<-done
	return <-errc
}

func limitBody(max int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, max)
		next.ServeHTTP(w, r)
	})
}

func serveInBackground(ctx context.Context, server *http.Server, lst net.Listener, timeout time.Duration, firstErr chan<- error, done chan<- struct{}) {
	log := logutil.GetOrDefault(ctx).With().Str("server.addr", server.Addr).Logger()
	defer close(done)
	serverCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		defer close(firstErr)
		log.Info().Msg("Starting HTTP server")
		err := server.Serve(lst)
		if errors.Is(err, http.ErrServerClosed) {
			log.Info().Msg("Server closed")
			return
		} else if err != nil {
			select {
			case firstErr <- err:
			default:
			}
			return
		}
	}()
	select {
	case <-serverCtx.Done():
	case <-ctx.Done():
		log.Info().Dur("timeout", timeout).Msg("Initiating shutdown process")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), timeout)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Requests still running after the shutdown timeout")
		}
		<-serverCtx.Done()
		log.Info().Msg("Shutdown completed")
	}
}
