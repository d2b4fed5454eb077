// Package server exposes reading sessions over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abhisek/histread/internal/assignment"
	"github.com/abhisek/histread/internal/session"
)

// Engine runs session turns.
type Engine interface {
	Begin(ctx context.Context, assignmentID string) (*session.BeginResult, error)
	Submit(ctx context.Context, sessionID, text string) (*session.SubmitResult, error)
	Advance(ctx context.Context, sessionID string) (*session.AdvanceResult, error)
	Inspect(ctx context.Context, sessionID string) (*session.Audit, error)
}

// Catalog stores assignments.
type Catalog interface {
	Get(ctx context.Context, id string) (*assignment.Assignment, error)
	List(ctx context.Context) ([]*assignment.Assignment, error)
	Save(ctx context.Context, a *assignment.Assignment) error
}

// Options configures a Server.
type Options struct {
	Engine  Engine
	Catalog Catalog

	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler

	Logger *zap.Logger
}

// Server is the HTTP front end.
type Server struct {
	engine  Engine
	catalog Catalog
	log     *zap.Logger
	router  *gin.Engine
}

// New builds a Server and its routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{
		engine:  opts.Engine,
		catalog: opts.Catalog,
		log:     opts.Logger,
		router:  gin.New(),
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.routes(opts.Metrics)
	return s
}

func (s *Server) routes(metrics http.Handler) {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metrics != nil {
		s.router.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := s.router.Group("/v1")
	{
		assignments := v1.Group("/assignments")
		{
			assignments.GET("", s.listAssignments)
			assignments.POST("", s.createAssignment)
			assignments.GET("/:id", s.getAssignment)
		}
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", s.beginSession)
			sessions.GET("/:id", s.inspectSession)
			sessions.POST("/:id/utterances", s.submitUtterance)
			sessions.POST("/:id/advance", s.requestAdvance)
		}
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}
