// file: internal/server/server.go
// version: 2.0.0
// guid: 4c5d6e7f-8a9b-0c1d-2e3f-4a5b6c7d8e9f

// Package server exposes the acquisition core over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/jdfalk/media-acquirer/internal/acquisition"
	"github.com/jdfalk/media-acquirer/internal/blacklist"
	"github.com/jdfalk/media-acquirer/internal/config"
	"github.com/jdfalk/media-acquirer/internal/database"
	"github.com/jdfalk/media-acquirer/internal/download"
	"github.com/jdfalk/media-acquirer/internal/logger"
	"github.com/jdfalk/media-acquirer/internal/metrics"
	"github.com/jdfalk/media-acquirer/internal/realtime"
	"github.com/jdfalk/media-acquirer/internal/server/middleware"
)

const (
	maxCandidates   = 500
	maxTitleLength  = 1024
	uploadBodyLimit = 16 << 20
	shutdownTimeout = 30 * time.Second
)

// Deps are the collaborators the handlers call into.
type Deps struct {
	Store        database.Store
	Governor     *blacklist.Governor
	Orchestrator *acquisition.Orchestrator
	Backends     *download.Registry
	// Events enables GET /api/v1/events when set.
	Events *realtime.EventHub
}

// Server represents the HTTP server
type Server struct {
	cfg        config.ServerConfig
	deps       Deps
	router     *gin.Engine
	httpServer *http.Server
	log        *log.Entry
}

// NewServer creates a new server instance
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	if deps.Backends == nil {
		deps.Backends = &download.Registry{}
	}
	entry := logger.For("server")

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(entry))
	router.Use(middleware.BasicAuth(cfg.Username, cfg.Password, "/healthz"))
	if cfg.RateLimit > 0 {
		router.Use(middleware.NewClientRateLimiter(cfg.RateLimit, cfg.RateBurst, "/healthz", "/metrics").Middleware())
	}
	router.Use(middleware.MaxRequestBodySize(cfg.MaxBodyBytes, uploadBodyLimit))

	metrics.Register()

	s := &Server{cfg: cfg, deps: deps, router: router, log: entry}
	s.setupRoutes()
	return s
}

// Handler returns the routed engine.
func (s *Server) Handler() http.Handler { return s.router }

// setupRoutes configures all the routes
func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api/v1")
	{
		api.POST("/classify", s.classify)
		api.POST("/rank", s.rank)
		api.POST("/upgrade", s.checkUpgrade)
		api.POST("/acquire", s.acquire)

		api.GET("/blacklist", s.listBlacklist)
		api.DELETE("/blacklist/:source/:release_id", s.removeBlacklist)
		api.POST("/blacklist/sweep", s.sweepBlacklist)

		api.GET("/jobs", s.listJobs)
		api.GET("/jobs/:id", s.getJob)
		api.POST("/jobs/:id/failure", s.reportFailure)
		api.POST("/jobs/poll", s.pollJobs)

		api.GET("/backends", s.listBackends)
		api.POST("/backends/:name/test", s.testBackend)

		api.GET("/profiles", s.listProfiles)
		api.GET("/profiles/:id", s.getProfile)
		api.GET("/formats", s.listFormats)
		api.POST("/profiles/import", s.importProfiles)

		if s.deps.Events != nil {
			api.GET("/events", s.deps.Events.HandleSSE)
		}
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20, // 1MB
	}
	if s.deps.Events != nil {
		s.httpServer.RegisterOnShutdown(s.deps.Events.Close)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.Listen).Info("starting server")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", s.cfg.Listen, err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.log.Info("server exited")
	return nil
}

func (s *Server) healthCheck(c *gin.Context) {
	data := gin.H{
		"timestamp": time.Now().Unix(),
		"backends":  s.deps.Backends.Names(),
	}
	if s.deps.Events != nil {
		data["event_clients"] = s.deps.Events.ClientCount()
	}
	if _, err := s.deps.Store.ListProfiles(); err != nil {
		data["error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, StatusResponse{Status: "degraded", Code: "STORE_UNAVAILABLE", Data: data})
		return
	}
	c.JSON(http.StatusOK, StatusResponse{Status: "ok", Data: data})
}
