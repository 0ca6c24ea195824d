// Package server exposes background removal over HTTP using echo.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/xpmourad/ori-AI-Background-Remover/internal/gemini"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/logging"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/metrics"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/store"
)

const (
	defaultAddr        = "127.0.0.1:8089"
	defaultResultTTL   = 10 * time.Minute
	defaultMaxInFlight = 4
	defaultMaxUpload   = 20 << 20
)

// Options configure a Server. Only Remover is required.
type Options struct {
	Addr           string
	Remover        gemini.Remover
	Metrics        *metrics.Registry
	Logger         *zap.SugaredLogger
	ResultTTL      time.Duration
	MaxInFlight    int
	MaxUploadBytes int64
}

// Server serves uploads, results, health and metrics.
type Server struct {
	addr      string
	remover   gemini.Remover
	reg       *metrics.Registry
	logger    *zap.SugaredLogger
	previews  *store.Memory
	results   *store.Memory
	resultTTL time.Duration
	maxUpload int64
	slots     chan struct{}

	e       *echo.Echo
	running atomic.Bool
}

// New builds the server and registers its routes.
func New(opts Options) *Server {
	logger := logging.OrNop(opts.Logger)
	reg := opts.Metrics
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	s := &Server{
		addr:      opts.Addr,
		remover:   opts.Remover,
		reg:       reg,
		logger:    logger,
		previews:  store.NewMemory(reg, logger),
		results:   store.NewMemory(reg, logger),
		resultTTL: opts.ResultTTL,
		maxUpload: opts.MaxUploadBytes,
	}
	if s.addr == "" {
		s.addr = defaultAddr
	}
	if s.resultTTL <= 0 {
		s.resultTTL = defaultResultTTL
	}
	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUpload
	}
	inFlight := opts.MaxInFlight
	if inFlight <= 0 {
		inFlight = defaultMaxInFlight
	}
	s.slots = make(chan struct{}, inFlight)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 30 * time.Second
	// model calls routinely take tens of seconds
	e.Server.WriteTimeout = 3 * time.Minute
	e.Server.IdleTimeout = 60 * time.Second

	e.Use(middleware.Recover())
	e.Use(RequestLogger(reg, logger))

	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", reg.EchoHandlerText)
	e.GET("/metrics.json", reg.EchoHandlerJSON)

	api := e.Group("/api")
	api.POST("/remove", s.handleRemove, middleware.BodyLimit(bodyLimit(s.maxUpload)))
	api.GET("/results/:id", s.handleResult)
	api.DELETE("/results/:id", s.handleDeleteResult)

	s.e = e
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.e }

// Addr returns the listen address.
func (s *Server) Addr() string { return s.addr }

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("server already running")
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Infow("server listening", "addr", s.addr)
		errc <- s.e.Start(s.addr)
	}()

	select {
	case err := <-errc:
		s.running.Store(false)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	return s.Stop(context.WithoutCancel(ctx))
}

// Stop shuts the server down, forcing connections closed after five seconds.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("server shutdown timeout"))
	defer cancel()
	if err := s.e.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.e.Close()
	}
	s.logger.Infow("server stopped")
	return nil
}

// bodyLimit renders a byte count in the unit syntax BodyLimit expects,
// leaving headroom for multipart framing.
func bodyLimit(maxUpload int64) string {
	return fmt.Sprintf("%dK", maxUpload/1024+64)
}
