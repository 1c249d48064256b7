// Package api exposes the signer over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/glinharesb/sm2-server/internal/audit"
	"github.com/glinharesb/sm2-server/internal/ratelimit"
	"github.com/glinharesb/sm2-server/internal/signer"
)

// Options configures the optional HTTP middleware.
type Options struct {
	// AuthToken enables bearer authentication when non-empty.
	AuthToken string
	// Limiter is shared with the gRPC listener. Nil disables rate limiting.
	Limiter *ratelimit.Bucket
}

// Server keeps the HTTP router and the services it dispatches to.
type Server struct {
	Echo *echo.Echo

	signer *signer.Service
	audit  *audit.Logger
}

// NewServer builds the router. The audit logger may be nil, in which case
// the /audit endpoint is not registered.
func NewServer(svc *signer.Service, auditLog *audit.Logger, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	s := &Server{
		Echo:   e,
		signer: svc,
		audit:  auditLog,
	}

	e.Use(middleware.RequestID())
	e.Use(requestLogger())
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			slog.Error("panic recovered",
				"path", c.Path(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"panic", err,
				"stack", string(stack),
			)
			return err
		},
	}))
	e.Use(source())
	e.Use(rateLimit(opts.Limiter))
	e.Use(bearerAuth(opts.AuthToken, "/ping"))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/ping", getPingHandler())

	g := s.Echo.Group("/sm2")
	g.POST("/keypair", postKeypairHandler(s))
	g.POST("/raw/signature", postRawSignatureHandler(s))
	g.POST("/digest/signature", postDigestSignatureHandler(s))
	g.POST("/raw/verification", postRawVerificationHandler(s))
	g.POST("/digest/verification", postDigestVerificationHandler(s))

	if s.audit != nil {
		s.Echo.GET("/audit", getAuditHandler(s))
	}
}

// Start listens on addr, with TLS when both certFile and keyFile are set.
// It returns nil after a graceful Shutdown.
func (s *Server) Start(addr, certFile, keyFile string) error {
	var err error
	if certFile != "" && keyFile != "" {
		err = s.Echo.StartTLS(addr, certFile, keyFile)
	} else {
		err = s.Echo.Start(addr)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
