// Package server exposes health, manual runs and the Telegram webhook over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"

	"go-jobdigest/internal/browser"
	"go-jobdigest/internal/pipeline"
	"go-jobdigest/internal/scraper"
	"go-jobdigest/internal/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Runner is what POST /run triggers. *pipeline.Runner implements it.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

type Server struct {
	runner  Runner
	updates chan<- tgbotapi.Update
	logger  *zap.SugaredLogger
}

// New wires the routes. updates may be nil when the listener polls instead.
func New(runner Runner, updates chan<- tgbotapi.Update, logger *zap.SugaredLogger) *Server {
	return &Server{runner: runner, updates: updates, logger: logger}
}

func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", s.health)
	r.POST("/run", s.run)
	r.POST("/webhook/telegram", s.webhook)
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "job digest is running",
		"status":  "healthy",
	})
}

func (s *Server) run(c *gin.Context) {
	result, err := s.runner.Run(c.Request.Context())
	if errors.Is(err, pipeline.ErrRunInProgress) {
		s.logger.Info("⏳ Run requested while another is in progress")
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "kind": ErrorKind(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":     result.RunID,
		"listings":   result.Listings,
		"dispatched": result.Dispatched,
		"duration":   result.Duration.String(),
	})
}

func (s *Server) webhook(c *gin.Context) {
	if s.updates == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "webhook mode is off"})
		return
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		s.logger.Warnf("⚠️ Dropping malformed webhook update: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	select {
	case s.updates <- update:
	case <-c.Request.Context().Done():
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "listener is not draining updates"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ErrorKind names the stage that failed, for clients of /run.
func ErrorKind(err error) string {
	var (
		connErr *browser.ConnectionError
		navErr  *scraper.NavigationError
		extErr  *scraper.ExtractionError
		delErr  *telegram.DeliveryError
	)
	switch {
	case errors.As(err, &connErr):
		return "connection"
	case errors.As(err, &navErr):
		return "navigation"
	case errors.As(err, &extErr):
		return "extraction"
	case errors.As(err, &delErr):
		return "delivery"
	default:
		return "unknown"
	}
}
