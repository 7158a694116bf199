package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"go-gin-gorm-users/internal/core/config"
)

// BuildServer wires the handler with the HTTP_* timeouts. errLog receives
// net/http's own messages (TLS handshake errors and the like).
func BuildServer(c config.HTTP, handler http.Handler, errLog *log.Logger) *http.Server {
	return &http.Server{
		Addr:              Addr(c.Host, c.Port),
		Handler:           handler,
		ReadTimeout:       time.Duration(c.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(c.WriteTimeoutSec) * time.Second,
		IdleTimeout:       time.Duration(c.IdleTimeoutSec) * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
		ErrorLog:          errLog,
	}
}

func Addr(host string, port int) string { return net.JoinHostPort(host, fmt.Sprint(port)) }

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most grace. A listen failure is returned right away.
func Run(ctx context.Context, srv *http.Server, l *zap.Logger, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		l.Info("http starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	l.Info("http shutting down", zap.Duration("grace", grace))
	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
