// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/application/service"
	appwf "github.com/garyjia/mission-orders/internal/application/workflow"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Services are the application services exposed over HTTP
type Services struct {
	Missions      service.MissionService
	Engine        appwf.WorkflowEngine
	Projects      service.ProjectService
	Notifications service.NotificationService
	Documents     service.DocumentService
	Users         port.UserRepository
	Roles         port.RoleRepository
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	auth       AuthConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, auth AuthConfig, services Services, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		auth:     auth,
		router:   gin.New(),
		services: services,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(corsMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"query", query,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.logger)

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	api.Use(authMiddleware(s.auth, s.services.Roles, s.logger))
	{
		api.GET("/me", h.Me)
		api.PUT("/me", h.UpdateMe)

		missions := api.Group("/missions")
		missions.POST("", h.CreateMission)
		missions.GET("", h.ListMissions)
		missions.GET("/stats", h.MissionStats)
		missions.GET("/:id", h.GetMission)
		missions.PUT("/:id", h.UpdateMission)
		missions.DELETE("/:id", h.DeleteMission)
		missions.POST("/:id/submit", h.SubmitMission)
		missions.POST("/:id/approve", h.ApproveMission)
		missions.POST("/:id/reject", h.RejectMission)
		missions.POST("/:id/payment", h.MarkPaid)
		missions.GET("/:id/signatures", h.ListSignatures)
		missions.GET("/:id/document", h.MissionDocument)
		missions.GET("/:id/comments", h.ListComments)
		missions.POST("/:id/comments", h.AddComment)

		api.GET("/projects", h.ListProjects)
		api.GET("/projects/:id", h.GetProject)
		api.POST("/projects", h.CreateProject)

		api.GET("/notifications", h.ListNotifications)
		api.POST("/notifications/:id/read", h.MarkNotificationRead)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or serving fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
