// Package server runs the HTTP listener and drains it on shutdown.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/onnwee/indevice-proxy/internal/logger"
)

// NoWriteTimeout disables the response write deadline.
const NoWriteTimeout time.Duration = -1

// Options tune the HTTP server.
type Options struct {
	Addr string
	// WriteTimeout must cover a full browser fetch, challenge wait included.
	// Zero selects the default; NoWriteTimeout disables it.
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server owns the http.Server lifecycle.
type Server struct {
	http            *http.Server
	shutdownTimeout time.Duration
}

// New creates a server for handler.
func New(handler http.Handler, opts Options) *Server {
	switch {
	case opts.WriteTimeout == 0:
		opts.WriteTimeout = 2 * time.Minute
	case opts.WriteTimeout < 0:
		opts.WriteTimeout = 0
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}
	return &Server{
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       2 * time.Minute,
		},
		shutdownTimeout: opts.ShutdownTimeout,
	}
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then waits for
// in-flight requests up to the shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", ln.Addr().String())
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server", "timeout", s.shutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
