// Package server is the HTTP boundary: an echo router over a
// *runner.Runner exposing the kernel's task lifecycle, grounded on the
// teacher's echo-based routers (server/router/api/v1) and the Python
// original's FastAPI app factory (server.py) for route shape.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/cidxb/rark/internal/config"
	"github.com/cidxb/rark/internal/runner"
)

// Server wraps the kernel's skill runner with an HTTP API.
type Server struct {
	echo    *echo.Echo
	runner  *runner.Runner
	cfg     config.Config
	limiter *rate.Limiter

	cancelLoop context.CancelFunc
}

// New builds a Server over an already-constructed Runner. Call Start
// to open the store, recover state, and begin serving. gatherer may be
// nil to disable the /metrics route.
func New(cfg config.Config, r *runner.Runner, gatherer prometheus.Gatherer) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	s := &Server{
		echo:    e,
		runner:  r,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(10), 20), // 10 req/s, burst 20, per spec §4.7 write-path protection
	}
	s.registerRoutes()
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

// writeLimiter rate-limits the mutating routes (submit, interrupt) so a
// misbehaving client cannot flood the single-active-task kernel with
// more work than it can ever run concurrently.
func (s *Server) writeLimiter(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.limiter.Allow() {
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		}
		return next(c)
	}
}

// Start opens the store, recovers persisted state, launches the
// kernel's control loop, and begins serving HTTP in the background.
// It returns once the listener is up; use Shutdown for graceful exit.
func (s *Server) Start(ctx context.Context) error {
	if err := s.runner.Start(ctx); err != nil {
		return fmt.Errorf("server: kernel start: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancelLoop = cancel
	go func() {
		if err := s.runner.RunLoop(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("kernel run loop exited", "error", err)
		}
	}()

	addr := s.cfg.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", s.cfg.Port)
	}
	go func() {
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server exited", "error", err)
		}
	}()
	return nil
}

// Shutdown stops accepting new connections, cancels the control loop,
// and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancelLoop != nil {
		s.cancelLoop()
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
	return s.runner.Stop()
}
