// Package httpapi exposes the analysis engine over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/textgen"
)

// MaxItems caps a single analyze request.
const MaxItems = 500

type itemRequest struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

type analyzeRequest struct {
	Items []itemRequest `json:"items"`
}

// Server serves POST /v1/analyze and GET /healthz.
type Server struct {
	analyzer ports.Analyzer
	logger   *slog.Logger
	engine   *gin.Engine
	srv      *http.Server
}

// New builds the router. Gin runs in release mode unless the caller already
// switched it to test mode.
func New(addr string, analyzer ports.Analyzer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{analyzer: analyzer, logger: logger, engine: gin.New()}
	s.engine.Use(gin.Recovery(), s.accessLog())
	s.engine.GET("/healthz", s.health)

	api := s.engine.Group("/v1")
	{
		api.POST("/analyze", s.analyze)
	}

	s.srv = &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	return s
}

// Handler returns the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe blocks until the server stops; a graceful Shutdown is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Items) > MaxItems {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too many items"})
		return
	}

	items, err := toItems(req.Items)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	digest, err := s.analyzer.Run(c.Request.Context(), items)
	if err != nil {
		s.logger.Error("analyze request failed", "items", len(items), "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, textgen.ErrUnavailable) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, digest)
}

// toItems keeps only ingest fields; any enrichment sent by the client is
// discarded. Missing ids are derived from the URL.
func toItems(in []itemRequest) ([]domain.NewsItem, error) {
	out := make([]domain.NewsItem, 0, len(in))
	for i, r := range in {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			return nil, fmt.Errorf("item %d: title is required", i)
		}
		id := strings.TrimSpace(r.ID)
		if id == "" {
			if r.URL == "" {
				return nil, fmt.Errorf("item %d: id or url is required", i)
			}
			id = domain.Fingerprint(r.URL)
		}
		out = append(out, domain.NewsItem{
			ID:          id,
			Title:       title,
			Summary:     r.Summary,
			URL:         r.URL,
			Source:      r.Source,
			PublishedAt: r.PublishedAt,
		})
	}
	return out, nil
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(started).Round(time.Millisecond),
		)
	}
}
