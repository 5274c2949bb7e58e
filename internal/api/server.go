// Package api exposes the conversation context manager over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatmesh/chatmesh/internal/core/conversation"
	"github.com/chatmesh/chatmesh/pkg/common/config"
	"github.com/chatmesh/chatmesh/pkg/observability"
)

// Server wraps the gin engine and the underlying http.Server
type Server struct {
	router *gin.Engine
	srv    *http.Server
	logger observability.Logger
}

// NewServer creates the API server and registers all routes
func NewServer(
	cfg config.APIConfig,
	manager *conversation.Manager,
	logger observability.Logger,
	metrics observability.MetricsClient,
) *Server {
	if logger == nil {
		logger = observability.NewLogger("api_server")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	conversationAPI := NewConversationAPI(manager, logger, metrics)
	conversationAPI.RegisterRoutes(router.Group("/api/v1"))

	return &Server{
		router: router,
		srv: &http.Server{
			Addr:         cfg.ListenAddress,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: logger,
	}
}

// Start runs the server until it is shut down
func (s *Server) Start() error {
	s.logger.Info("API server listening", map[string]interface{}{
		"address": s.srv.Addr,
	})
	return s.srv.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Router exposes the gin engine for tests
func (s *Server) Router() http.Handler {
	return s.router
}
