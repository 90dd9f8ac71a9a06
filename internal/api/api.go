// Package api exposes read-only HTTP endpoints over the pipeline's
// persisted state: health, the last run's status, and a paginated property
// listing — the HTTP surface a dashboard UI would consume (the dashboard
// itself is a non-goal). Grounded on tarsy's cmd/tarsy/main.go gin.Default()
// + /health handler shape.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MarcelCutts/home-finder-sub001/internal/models"
	"github.com/MarcelCutts/home-finder-sub001/internal/store"
)

// Server wraps a gin.Engine bound to a Store for read-only introspection.
type Server struct {
	engine *gin.Engine
	store  store.Store
}

// NewServer builds the router and registers every route.
func NewServer(st store.Store) *Server {
	s := &Server{engine: gin.Default(), store: st}
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/runs/last", s.handleLastRun)
	s.engine.GET("/properties", s.handleProperties)
	return s
}

// Run starts the HTTP server on addr, blocking until it exits or errors.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	run, err := s.store.GetLastPipelineRun(reqCtx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"last_run_status": lastRunStatus(run),
	})
}

func lastRunStatus(run *models.PipelineRun) models.RunStatus {
	if run == nil {
		return ""
	}
	return run.Status
}

func (s *Server) handleLastRun(c *gin.Context) {
	run, err := s.store.GetLastPipelineRun(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pipeline runs recorded yet"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// handleProperties lists properties pending notification, the read model a
// dashboard would page through (original_source's web_queries.py join,
// recovered per SPEC_FULL.md's SUPPLEMENTED FEATURES). Supports a bounded
// ?limit= query param; the underlying store call is unpaginated today, so
// this trims client-side rather than pushing OFFSET/LIMIT into SQL.
func (s *Server) handleProperties(c *gin.Context) {
	properties, err := s.store.GetPendingNotification(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit < len(properties) {
		properties = properties[:limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"count":      len(properties),
		"properties": properties,
	})
}
