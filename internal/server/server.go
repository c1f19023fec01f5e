// Package server exposes a small HTTP surface over the sync daemon: health,
// the latest cycle summaries, recent run logs, and a manual cycle trigger.
// It inspects and nudges the daemon; it is not a control plane.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/toparuz/marketsync/internal/store"
	"github.com/toparuz/marketsync/pkg/errors"
	"github.com/toparuz/marketsync/pkg/logging"
)

// StoreReader reads recent run logs and persisted marketplace-only
// products. Nil when persistence is disabled.
type StoreReader interface {
	RecentRuns(ctx context.Context, limit int64) ([]store.RunLog, error)
	RecentProducts(ctx context.Context, limit int64) ([]store.Product, error)
}

// Trigger starts one named pairing's cycle out of schedule.
type Trigger func(ctx context.Context, pairing string) error

// Server is the inspection HTTP server.
type Server struct {
	state   *State
	reader  StoreReader
	trigger Trigger
	http    *http.Server
}

// New creates the server listening on addr.
func New(addr string, state *State, reader StoreReader, trigger Trigger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{state: state, reader: reader, trigger: trigger}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.health)
	api := router.Group("/api/v1")
	api.GET("/summaries", s.summaries)
	api.GET("/summaries/history", s.history)
	api.GET("/runs", s.runLogs)
	api.GET("/unmatched", s.unmatched)
	api.POST("/sync/:pairing", s.triggerSync)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	logging.FromContext(ctx).Info().Str("addr", s.http.Addr).Msg("Inspection server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) summaries(c *gin.Context) {
	c.JSON(http.StatusOK, s.state.Latest())
}

func (s *Server) history(c *gin.Context) {
	c.JSON(http.StatusOK, s.state.History())
}

func (s *Server) runLogs(c *gin.Context) {
	if s.reader == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "persistence disabled"})
		return
	}
	runs, err := s.reader.RecentRuns(c.Request.Context(), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) unmatched(c *gin.Context) {
	if s.reader == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "persistence disabled"})
		return
	}
	products, err := s.reader.RecentProducts(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, products)
}

func (s *Server) triggerSync(c *gin.Context) {
	if s.trigger == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "scheduler not running"})
		return
	}
	pairing := c.Param("pairing")
	if err := s.trigger(c.Request.Context(), pairing); err != nil {
		status := http.StatusInternalServerError
		if errors.IsNotFound(err) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"pairing": pairing, "status": "started"})
}
