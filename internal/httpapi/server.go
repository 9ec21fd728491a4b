package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sandeepkv93/streakly/internal/digest"
	"github.com/sandeepkv93/streakly/internal/model"
	"github.com/sandeepkv93/streakly/internal/reminder"
	"github.com/sandeepkv93/streakly/internal/tracker"
	"github.com/sandeepkv93/streakly/pkg/log"
)

// Tracker is the part of tracker.Service the daemon exposes.
type Tracker interface {
	Today() model.Date
	Agenda(ctx context.Context) ([]tracker.TodayItem, error)
	Digest(ctx context.Context) (digest.Digest, error)
	Mark(ctx context.Context, id string, day model.Date, status model.CompletionStatus) error
	Schedule(ctx context.Context, id string) (reminder.ScheduleState, error)
	Sync(ctx context.Context, defensive bool) error
	Rollover(ctx context.Context) (tracker.RolloverResult, error)
}

type Config struct {
	Addr string
	Mode string
}

// Server is the local call-in surface of the daemon: other processes notify it
// of task edits, completions and day changes.
type Server struct {
	gin     *gin.Engine
	tracker Tracker
	logger  log.Logger
	addr    string
}

func New(t Tracker, logger log.Logger, cfg Config) (*Server, error) {
	if t == nil {
		return nil, errors.New("httpapi: tracker is required")
	}
	if logger == nil {
		return nil, errors.New("httpapi: logger is required")
	}
	if cfg.Mode == "" {
		cfg.Mode = gin.ReleaseMode
	}
	gin.SetMode(cfg.Mode)

	srv := &Server{
		gin:     gin.New(),
		tracker: t,
		logger:  logger,
		addr:    cfg.Addr,
	}
	srv.routes()
	return srv, nil
}

func (s *Server) Handler() http.Handler { return s.gin }

func (s *Server) routes() {
	s.gin.Use(gin.Recovery(), s.requestLog())
	s.gin.GET("/health", s.health)

	v1 := s.gin.Group("/v1")
	v1.GET("/today", s.today)
	v1.GET("/digest", s.digest)
	v1.POST("/tasks-changed", s.tasksChanged)
	v1.POST("/rearm", s.rearm)
	v1.POST("/day-rolled", s.dayRolled)
	v1.POST("/tasks/:id/complete", s.complete)
	v1.GET("/tasks/:id/schedule", s.schedule)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	hs := &http.Server{
		Addr:              s.addr,
		Handler:           s.gin,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof(ctx, "http call-ins listening on %s", s.addr)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debugf(c.Request.Context(), "%s %s status=%d took=%s",
			c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
