// Package server exposes the analysis and matching pipelines over HTTP.
package server

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spigell/skillsynx/internal/pipeline"
	"github.com/spigell/skillsynx/internal/store"
	"go.uber.org/zap"
)

const (
	HeaderUserID = "X-User-ID"

	defaultListen       = ":8080"
	defaultBodyLimit    = 10 * 1024 * 1024
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 2 * time.Minute
	shutdownTimeout     = 10 * time.Second
)

// ErrBusy is returned when the user already has a run of the same kind in flight.
var ErrBusy = errors.New("a run of this kind is already in progress for this user")

// Config holds HTTP listener settings.
type Config struct {
	Listen       string        `mapstructure:"listen"`
	BodyLimit    int           `mapstructure:"body-limit"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Listen) == "" {
		c.Listen = defaultListen
	}
	if c.BodyLimit <= 0 {
		c.BodyLimit = defaultBodyLimit
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	return c
}

// Deps are the collaborators of the HTTP handlers. Store may be nil, in
// which case the history endpoints answer 501.
type Deps struct {
	Analyzer *pipeline.Analyzer
	Matcher  *pipeline.Matcher
	Store    store.Gateway
	Logger   *zap.Logger
}

type Server struct {
	cfg    Config
	app    *fiber.App
	deps   Deps
	logger *zap.Logger
	// busy holds user ids with an analysis in flight.
	busy sync.Map
}

func New(cfg Config, deps Deps) *Server {
	cfg = cfg.withDefaults()
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "skillsynx",
		DisableStartupMessage: true,
		BodyLimit:             cfg.BodyLimit,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(s.logRequests)

	api := s.app.Group("/api/v1")
	api.Get("/health", s.health)
	api.Post("/analyses", s.createAnalysis)
	api.Get("/analyses", s.listAnalyses)
	api.Get("/analyses/:id", s.getAnalysis)
	api.Post("/jobs", s.matchJobs)

	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until ctx is done, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("listen", s.cfg.Listen))
		errCh <- s.app.Listen(s.cfg.Listen)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down http server")
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			return err
		}
		return <-errCh
	}
}

// acquire marks key busy. Anonymous callers are never guarded.
func (s *Server) acquire(userID string) (func(), bool) {
	if userID == "" {
		return func() {}, true
	}
	if _, loaded := s.busy.LoadOrStore(userID, struct{}{}); loaded {
		return nil, false
	}
	return func() { s.busy.Delete(userID) }, true
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	} else if err != nil {
		status = statusFor(err)
	}

	s.logger.Debug("http request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("latency", time.Since(start)),
		zap.String("user_id", c.Get(HeaderUserID)),
	)
	return err
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func session(c *fiber.Ctx) pipeline.Session {
	token, _ := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	return pipeline.Session{
		UserID: strings.TrimSpace(c.Get(HeaderUserID)),
		Token:  strings.TrimSpace(token),
	}
}
