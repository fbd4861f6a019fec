package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/tokenauth/internal/bootstrap"
	"github.com/baechuer/tokenauth/internal/config"
	"github.com/baechuer/tokenauth/internal/logger"
)

const (
	exitOK   = 0
	exitFail = 1

	drainTimeout = 15 * time.Second
)

// server is the slice of *http.Server the lifecycle depends on.
type server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
	Close() error
}

type buildFunc func() (srv server, addr string, cleanup func(), err error)

// Run serves until ctx is cancelled or the listener fails, then drains
// in-flight requests. It returns the process exit code.
func Run(ctx context.Context, build buildFunc, lg zerolog.Logger) int {
	srv, addr, cleanup, err := build()
	if err != nil {
		lg.Error().Err(err).Msg("startup failed")
		return exitFail
	}
	defer cleanup()

	serveErr := make(chan error, 1)
	go func() {
		lg.Info().Str("addr", addr).Msg("http server listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return exitOK
		}
		lg.Error().Err(err).Msg("http server stopped unexpectedly")
		return exitFail
	case <-ctx.Done():
		lg.Info().Msg("stopping http server")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := srv.Shutdown(drainCtx); err != nil {
		lg.Warn().Err(err).Msg("drain incomplete, closing connections")
		_ = srv.Close()
	}
	lg.Info().Msg("http server stopped")
	return exitOK
}

func build() (server, string, func(), error) {
	srv, cleanup, err := bootstrap.NewServer()
	if err != nil {
		return nil, "", nil, err
	}
	return srv, srv.Addr, cleanup, nil
}

func main() {
	// LOG_LEVEL and LOG_FORMAT may come from .env
	envErr := config.LoadDotEnv()
	logger.Init()
	if envErr != nil {
		logger.Logger.Warn().Err(envErr).Msg(".env not loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, build, logger.Logger)
	stop()
	os.Exit(code)
}
