// Package http provides the Echo server bootstrap shared by the
// submission backend's HTTP surface: standard middleware stack, security
// headers, and graceful shutdown. No custom Echo error handler is
// installed; handlers render internal/apperr problem JSON themselves.
// Adapted from the
// teacher's generic EVE-services server bootstrap, trimmed to the
// middleware this backend actually needs (no X-API-Key gate — API keys
// are validated by internal/middleware.Auth against the store, not a
// single shared secret).
package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// ServerConfig controls the Echo instance cmd/server builds.
type ServerConfig struct {
	Port            int
	Debug           bool
	BodyLimit       string // e.g. "10M"
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	RateLimit       float64 // requests/sec per client IP, 0 = no limit
}

// DefaultServerConfig returns the submission backend's baseline server
// settings; cmd/server overrides Port from config.Config.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            8080,
		Debug:           false,
		BodyLimit:       "10M",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		AllowedOrigins:  []string{"*"},
		RateLimit:       0,
	}
}

// NewEchoServer builds an Echo instance with the logging, recovery, CORS,
// body-limit, and request-ID middleware every /v1 route runs under. The
// Session and Auth middleware (internal/middleware) are layered on top of
// this by cmd/server, scoped to the API prefix.
func NewEchoServer(cfg ServerConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Debug

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${time_rfc3339}] ${status} ${method} ${uri} (${latency_human})\n",
	}))
	e.Use(middleware.Recover())

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	if len(cfg.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{
				http.MethodGet, http.MethodPost, http.MethodPut,
				http.MethodDelete, http.MethodPatch, http.MethodHead, http.MethodOptions,
			},
			AllowHeaders: []string{
				echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
				echo.HeaderAuthorization, "X-API-Key",
			},
		}))
	}

	e.Use(middleware.RequestID())
	e.Use(SecurityHeadersMiddleware())

	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(
			rate.Limit(cfg.RateLimit),
		)))
	}

	return e
}

// StartServer runs the Echo server until Shutdown is called elsewhere, or
// the listener fails.
func StartServer(e *echo.Echo, cfg ServerConfig) error {
	s := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	log.Printf("submission backend listening on port %d", cfg.Port)
	return e.StartServer(s)
}

// GracefulShutdown drains in-flight requests before returning, bounded by
// timeout, mirroring the teacher's shutdown sequencing.
func GracefulShutdown(e *echo.Echo, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	log.Println("shutting down submission backend")
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("submission backend stopped")
	return nil
}

// SecurityHeadersMiddleware adds the baseline response headers the
// original Python deployment's reverse proxy sets; carried here since this
// backend terminates TLS behind no guaranteed proxy in every deployment.
func SecurityHeadersMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-Content-Type-Options", "nosniff")
			c.Response().Header().Set("X-Frame-Options", "DENY")
			return next(c)
		}
	}
}
