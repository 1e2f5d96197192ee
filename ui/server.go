package ui

import (
	"context"
	"net/http"
	"time"

	"mldash/internal/browse"
	"mldash/internal/logging"
	"mldash/ports"
	"mldash/ui/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// healthChecker is implemented by backends that expose a health probe
type healthChecker interface {
	Health(ctx context.Context) error
}

// Server is the dashboard's JSON API over browsing sessions
type Server struct {
	router   *gin.Engine
	backend  ports.BackendPort
	sessions *SessionRegistry
	log      logrus.FieldLogger
}

// NewServer creates the dashboard server. Every session reads previews
// from backend using opts.
func NewServer(backend ports.BackendPort, opts browse.Options, sessionTTL time.Duration, log logrus.FieldLogger) *Server {
	log = logging.Component(log, "ui")
	s := &Server{
		router:  gin.New(),
		backend: backend,
		log:     log,
	}
	s.sessions = NewSessionRegistry(sessionTTL, func() *browse.Session {
		return browse.NewSession(backend, opts, log)
	}, log)

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestLogger(s.log))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.GET("/datasets", s.handleListDatasets)
	api.POST("/datasets", s.handleUploadDataset)
	api.DELETE("/datasets/:id", s.handleDeleteDataset)

	api.POST("/sessions", s.handleCreateSession)
	api.DELETE("/sessions/:sid", s.handleDeleteSession)

	session := api.Group("/sessions/:sid", middleware.RequireSession(s.sessions))
	session.GET("/view", s.handleView)
	session.POST("/dataset", s.handleSwitchDataset)
	session.POST("/more", s.handleLoadMore)
	session.POST("/refresh", s.handleRefresh)
	session.PUT("/search", s.handleSetSearch)
	session.DELETE("/search", s.handleClearSearch)
	session.PUT("/page", s.handleGoToPage)
	session.POST("/columns/toggle", s.handleToggleColumn)
	session.POST("/columns/toggle-all", s.handleToggleAllColumns)
	session.GET("/export", s.handleExport)
	session.POST("/clean", s.handleClean)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions returns the session registry
func (s *Server) Sessions() *SessionRegistry {
	return s.sessions
}

// Start serves on addr and sweeps expired sessions until ctx is cancelled
func (s *Server) Start(ctx context.Context, addr string) error {
	go s.sessions.Run(ctx, time.Minute)

	srv := &http.Server{Addr: addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("dashboard listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	backend := "unknown"
	if hc, ok := s.backend.(healthChecker); ok {
		if err := hc.Health(c.Request.Context()); err != nil {
			backend = "unreachable"
		} else {
			backend = "ok"
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"backend":  backend,
		"sessions": s.sessions.Len(),
	})
}
