// Package server is the shared-state endpoint both clients sync
// against, plus the push subscription and dispatch API. It is a thin
// shell over the blob store: state is stored and served wholesale,
// with no per-user partitioning and no write fencing.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ourday-app/ourday/internal/logger"
	"github.com/ourday-app/ourday/internal/push"
	"github.com/ourday-app/ourday/internal/store"
)

// Options configures a server.
type Options struct {
	// Store is the blob backend; nil means the deployment is
	// unconfigured and state endpoints answer 503.
	Store store.Store

	// VAPID is the web push signing material.
	VAPID push.VAPIDConfig

	// DispatchSecret gates the dispatch endpoint when non-empty.
	DispatchSecret string

	// Sender overrides the web push sender, for tests.
	Sender push.Sender

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Server is the sync and push server
type Server struct {
	store          store.Store
	vapid          push.VAPIDConfig
	dispatchSecret string
	dispatcher     *push.Dispatcher
	registry       *push.Registry
	now            func() time.Time
	echo           *echo.Echo
}

// New creates a new server
func New(opts Options) *Server {
	s := &Server{
		store:          opts.Store,
		vapid:          opts.VAPID,
		dispatchSecret: opts.DispatchSecret,
		now:            opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	if s.store != nil {
		sender := opts.Sender
		if sender == nil {
			sender = push.NewWebPushSender(opts.VAPID)
		}
		s.registry = push.NewRegistry(s.store)
		s.dispatcher = push.NewDispatcher(s.store, sender, s.now)
	}

	s.setupEcho()
	return s
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true

	// Custom logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			// Log request
			logger.Info("HTTP Request",
				logger.F("method", req.Method),
				logger.F("uri", req.RequestURI),
				logger.F("remote", req.RemoteAddr))

			// Process request
			err := next(c)

			// Log response
			res := c.Response()
			duration := time.Since(start)

			logger.Info("HTTP Response",
				logger.F("method", req.Method),
				logger.F("uri", req.RequestURI),
				logger.F("status", res.Status),
				logger.F("size", res.Size),
				logger.F("duration", duration.String()))

			return err
		}
	})

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	// Health check
	e.GET("/health", s.handleHealth)

	api := e.Group("/api")

	// Shared state (open, single-tenant)
	api.GET("/state", s.handleStateGet)
	api.POST("/state", s.handleStatePost)

	// Push
	api.GET("/push/public-key", s.handlePushPublicKey)
	api.POST("/push/subscribe", s.handlePushSubscribe)
	// Cron services ping with GET, the client keepalive POSTs.
	api.GET("/push/dispatch", s.handlePushDispatch, s.dispatchAuth)
	api.POST("/push/dispatch", s.handlePushDispatch, s.dispatchAuth)

	s.echo = e
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start starts the server
func (s *Server) Start(addr string) error {
	fmt.Printf("ourday server listening on %s\n", addr)
	return s.echo.Start(addr)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// storeUnavailable is the permanent answer of a deployment without
// store credentials. Clients treat it as "work local, tell the user
// once", so the body names what is missing.
func (s *Server) storeUnavailable(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, map[string]any{
		"error":    "storage is not configured",
		"required": []string{"OURDAY_REDIS_URL or OURDAY_POSTGRES_URL"},
	})
}
