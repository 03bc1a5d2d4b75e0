// Package api implements the admin HTTP surface: health, status, manual
// queue control, cadence updates and metrics.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonesrussell/gomeme/internal/config"
	"github.com/jonesrussell/gomeme/internal/domain"
	"github.com/jonesrussell/gomeme/internal/logger"
	"github.com/jonesrussell/gomeme/internal/queue"
	"github.com/jonesrussell/gomeme/internal/scheduler"
)

// readHeaderTimeout bounds header reads on the admin listener.
const readHeaderTimeout = 10 * time.Second

// Injector prepares a manually chosen URL and places it in the publish
// slot.
type Injector interface {
	Inject(ctx context.Context, url string) (*domain.QueueItem, error)
}

// Releaser deletes local media files of cleared queue items.
type Releaser interface {
	DeleteFile(path string) error
}

// Stats reports history row counts for the status endpoint.
type Stats interface {
	Stats(ctx context.Context) (posts, fingerprints int64, err error)
}

// Schedule is the cadence control subset of the scheduler.
type Schedule interface {
	Cadence() scheduler.Cadence
	SetCadence(scheduler.Cadence) error
	NextTimes() (preload, publish time.Time)
}

// Server is the admin API server.
type Server struct {
	cfg      *config.ServerConfig
	log      logger.Interface
	http     *http.Server
	version  string
	injector Injector
	slot     *queue.Slot
	releaser Releaser
	stats    Stats
	schedule Schedule
	registry *prometheus.Registry
}

// Params holds the dependencies for creating a Server.
type Params struct {
	Config   *config.ServerConfig
	Logger   logger.Interface
	Version  string
	Injector Injector
	Slot     *queue.Slot
	Releaser Releaser
	Stats    Stats
	Schedule Schedule
	Registry *prometheus.Registry
}

// NewServer creates the admin API server.
func NewServer(p Params) *Server {
	s := &Server{
		cfg:      p.Config,
		log:      p.Logger.WithComponent("api"),
		version:  p.Version,
		injector: p.Injector,
		slot:     p.Slot,
		releaser: p.Releaser,
		stats:    p.Stats,
		schedule: p.Schedule,
		registry: p.Registry,
	}

	s.http = &http.Server{
		Addr:              p.Config.Address,
		Handler:           s.router(),
		ReadTimeout:       p.Config.ReadTimeout,
		WriteTimeout:      p.Config.WriteTimeout,
		IdleTimeout:       p.Config.IdleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s
}

// router configures the Gin engine with all admin routes.
func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(s.log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if s.registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	v1.GET("/status", s.handleStatus)
	v1.GET("/queue", s.handleQueueGet)
	v1.POST("/queue", s.handleQueuePost)
	v1.DELETE("/queue", s.handleQueueDelete)
	v1.PUT("/schedule", s.handleSchedulePut)

	return router
}

// Start runs the listener until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("admin api listening", "address", s.cfg.Address)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func loggingMiddleware(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("HTTP Request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
