package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lcalzada-xor/floodctl/internal/adapters/web/handlers"
	"github.com/lcalzada-xor/floodctl/internal/adapters/web/middleware"
	"github.com/lcalzada-xor/floodctl/internal/adapters/web/websocket"
)

// Options configures the HTTP API.
type Options struct {
	Addr string
	// Verifier guards /api, /ws and /metrics; nil disables authentication.
	Verifier middleware.TokenVerifier
	// ReportRateLimit caps HTTP report ingestion per client and minute; zero disables it.
	ReportRateLimit int
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	Addr              string
	Verifier          middleware.TokenVerifier
	WSManager         *websocket.WSManager
	ControllerHandler *handlers.ControllerHandler
	HistoryHandler    *handlers.HistoryHandler
	ReportLimiter     *middleware.RateLimiter
	Logger            *slog.Logger

	srv *http.Server
}

// NewServer creates a new web server.
func NewServer(opts Options, ws *websocket.WSManager, controller *handlers.ControllerHandler, history *handlers.HistoryHandler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		Addr:              opts.Addr,
		Verifier:          opts.Verifier,
		WSManager:         ws,
		ControllerHandler: controller,
		HistoryHandler:    history,
		Logger:            logger,
	}
	if opts.ReportRateLimit > 0 {
		s.ReportLimiter = middleware.NewRateLimiter(opts.ReportRateLimit, time.Minute)
	}
	return s
}

// Handler returns the instrumented routing tree.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(SetupRoutes(s), "floodctl-api")
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.Logger.Info("Web server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.Logger.Error("Web server shutdown error", "error", err)
		}
		if s.WSManager != nil {
			s.WSManager.Close()
		}
		if s.ReportLimiter != nil {
			s.ReportLimiter.Stop()
		}
	}()

	s.Logger.Info("Web server listening", "addr", lis.Addr().String())
	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
