// Package server runs the HTTP listener and shuts it down with its context.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sourcegraph/conc"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

type Config struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	// EnableH2C accepts cleartext HTTP/2 next to HTTP/1.1.
	EnableH2C bool
}

// New builds the http.Server for handler. WriteTimeout stays unset so long
// streams are not cut off.
func New(cfg Config, handler http.Handler) *http.Server {
	if cfg.EnableH2C {
		handler = h2c.NewHandler(handler, &http2.Server{IdleTimeout: cfg.IdleTimeout})
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Run serves on ln until ctx is done, then shuts down, giving in-flight
// streams up to shutdownTimeout to finish.
func Run(ctx context.Context, srv *http.Server, ln net.Listener, shutdownTimeout time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg          conc.WaitGroup
		serveErr    error
		shutdownErr error
	)

	wg.Go(func() {
		slog.Default().Info("server.listen", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("serve: %w", err)
		}
		// A failed listener stops the shutdown watcher too.
		cancel()
	})

	wg.Go(func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()

		slog.Default().Info("server.shutdown", "timeout", shutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("shutdown: %w", err)
			_ = srv.Close()
		}
	})

	wg.Wait()
	return errors.Join(serveErr, shutdownErr)
}

// ListenAndRun listens on srv.Addr and calls Run.
func ListenAndRun(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	return Run(ctx, srv, ln, shutdownTimeout)
}
