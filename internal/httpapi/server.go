// Package httpapi exposes the lexid HTTP surface over Echo.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/lexilabs/lexid/internal/casefile"
	"github.com/lexilabs/lexid/internal/config"
)

// Server is the lexid HTTP server.
type Server struct {
	echo   *echo.Echo
	cases  *casefile.Service
	logger *zap.Logger
	config config.ServerConfig
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(cases *casefile.Service, logger *zap.Logger, cfg config.ServerConfig) (*Server, error) {
	if cases == nil {
		return nil, fmt.Errorf("case service is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:   e,
		cases:  cases,
		logger: logger,
		config: cfg,
	}
	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.POST("/screen-incident", s.handleScreenIncident)
	s.echo.POST("/incident", s.handleCreateIncident)
	s.echo.POST("/claim", s.handleSubmitClaim)
	s.echo.POST("/evidence/upload", s.handleUploadEvidence)
	s.echo.GET("/case/:case_id/history", s.handleHistory)
	s.echo.GET("/verdict-with-reason", s.handleVerdict)
}

// Echo returns the underlying Echo instance, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the server and blocks until ctx is cancelled, then performs
// graceful shutdown within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			s.config.ShutdownTimeout.Duration(),
		)
		defer cancel()

		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}
