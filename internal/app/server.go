package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const defaultShutdownTimeout = 10 * time.Second

// Run serves HTTP on the configured address until ctx is done or the server
// fails, then drains everything within app.server.shutdown_timeout_seconds.
func (a *App) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.httpServer.Addr, err)
	}
	slog.InfoContext(ctx, "otpgate accepting requests", "address", l.Addr().String())

	var serveErr error
	select {
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutdown requested")
	case serveErr = <-a.Serve(l):
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout())
	defer cancel()

	stopErr := a.Stop(stopCtx)
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}
	return errors.Join(serveErr, stopErr)
}

// Serve runs the HTTP server on l. The channel yields the error that ended it.
func (a *App) Serve(l net.Listener) <-chan error {
	errChan := make(chan error, 1)

	go func() {
		errChan <- a.httpServer.Serve(l)
		close(errChan)
	}()

	return errChan
}

// Stop refuses new requests and waits for pending audit events before running
// the closers. Failures are logged and returned joined.
func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	var errs []error

	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "http server did not drain", "error", err)
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}

	if err := a.goroutine.Wait(); err != nil {
		slog.WarnContext(ctx, "some audit events were not published", "failed", a.goroutine.Failed())
	}

	for _, closer := range a.closers {
		if err := closer.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to release resource", "name", closer.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", closer.name, err))
		}
	}

	slog.InfoContext(ctx, "otpgate stopped")
	return errors.Join(errs...)
}

func (a *App) shutdownTimeout() time.Duration {
	if d := a.config.GetSecond("app.server.shutdown_timeout_seconds"); d > 0 {
		return d
	}
	return defaultShutdownTimeout
}
