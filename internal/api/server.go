// Package api serves the crash report HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/crashcalc/internal/logging"
	"github.com/zulandar/crashcalc/internal/metrics"
	"gorm.io/gorm"
)

const (
	requestIDHeader = "X-Request-ID"
	shutdownTimeout = 10 * time.Second
)

// RouterOpts holds the dependencies of the HTTP handlers.
type RouterOpts struct {
	DB          *gorm.DB
	Logger      *logrus.Logger
	Notifier    Dispatcher
	Metrics     *metrics.Metrics
	CORSOrigins []string
}

// StartOpts holds configuration for the API server.
type StartOpts struct {
	RouterOpts
	Addr string
	// Drain is called after the listener stops, to let background work finish.
	Drain func()
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(opts RouterOpts) (*gin.Engine, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("api: db is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(opts.Logger))
	router.Use(corsMiddleware(opts.CORSOrigins))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
	}

	h := &handlers{
		db:       opts.DB,
		notifier: opts.Notifier,
		log:      opts.Logger.WithField("component", "api"),
	}
	registerRoutes(router, h, opts.Metrics)
	return router, nil
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	router, err := NewRouter(opts.RouterOpts)
	if err != nil {
		return err
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}

	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	log.WithField("addr", opts.Addr).Info("api listening")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	if opts.Drain != nil {
		opts.Drain()
	}
	log.Info("api stopped")
	return nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Authorization", requestIDHeader},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// requestLogger logs one line per request and echoes a request id.
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHeader, reqID)

		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"request_id": reqID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("error", c.Errors.String())
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}
