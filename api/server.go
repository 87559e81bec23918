// Package api exposes digest runs, the job queue and library previews over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"digestbot/digest"
	"digestbot/rssfeeds"
	"digestbot/types"
)

// DigestRunner runs one digest job synchronously.
type DigestRunner interface {
	Run(ctx context.Context, job types.DigestJob) digest.Outcome
}

// JobQueue accepts digest jobs for asynchronous processing.
type JobQueue interface {
	Dispatch(ctx context.Context, job types.DigestJob) error
}

// Searcher previews a user's library.
type Searcher interface {
	Search(ctx context.Context, userID string, opts types.SearchOptions) ([]types.LibraryItem, error)
}

// FeedIngester fills a user's library from a feed.
type FeedIngester interface {
	Ingest(ctx context.Context, userID, feed string, count int) (rssfeeds.Result, error)
}

// Services are the collaborators behind the routes. Queue may be nil.
type Services struct {
	Digests  DigestRunner
	Queue    JobQueue
	Library  Searcher
	Ingester FeedIngester
	Logger   *zap.Logger
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(svc Services) *gin.Engine {
	if svc.Logger == nil {
		svc.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(svc.Logger))

	// Register resource routers
	RegisterHealthRoutes(r)
	RegisterDigestRoutes(r, svc.Digests, svc.Queue)
	RegisterArticleRoutes(r, svc.Library)
	RegisterRSSRoutes(r, svc.Ingester)
	return r
}

// RegisterHealthRoutes registers the liveness endpoint.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// Server is the digestbot HTTP server
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer creates a server for handler on port.
func NewServer(handler http.Handler, port string, logger *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start serves in the background. Errors other than a clean shutdown are
// sent on the returned channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
