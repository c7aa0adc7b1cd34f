package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/muizidn/cs-ai-help-admin-management/internal/config"
	"github.com/muizidn/cs-ai-help-admin-management/internal/log"
	"github.com/muizidn/cs-ai-help-admin-management/internal/metrics"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/query"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/service"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/storage"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// Options configure the router.
type Options struct {
	AllowedOrigins []string
	Version        string
	Logger         *logrus.Logger
}

// NewRouter wires the execution log API onto a gin engine.
func NewRouter(svc *service.ExecutionLogService, store storage.TraceStore, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.GetLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(logger), observe())
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	r.GET("/health", healthHandler(store, opts.Version))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/ai-execution-log")
	api.GET("", listHandler(svc))
	api.GET("/stats", statsHandler(svc))
	api.GET("/:id", detailHandler(svc))
	api.GET("/:id/steps", stepsHandler(svc))
	return r
}

// StartServer serves the API on cfg.Addr() until ctx is cancelled, then drains in-flight
// requests.
func StartServer(ctx context.Context, cfg config.Config, store storage.TraceStore) error {
	logger := log.GetLogger()
	svc := service.NewExecutionLogService(store, logger)
	router := NewRouter(svc, store, Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Version:        cfg.AppVersion,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting execution log server on %s", cfg.Addr())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down execution log server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AllowMethods = []string{http.MethodGet, http.MethodOptions}
	c.AllowHeaders = append(c.AllowHeaders, requestIDHeader)
	c.ExposeHeaders = []string{requestIDHeader}
	return c
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  c.GetString(requestIDKey),
		}).Debug("Request served")
	}
}

func observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

func healthHandler(store storage.TraceStore, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			log.GetLogger().WithError(err).Warn("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"timestamp": time.Now().UTC(),
				"error":     "Database connection failed",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"version":   version,
		})
	}
}

func listHandler(svc *service.ExecutionLogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q query.Query
		if err := c.ShouldBindQuery(&q); err != nil {
			badRequest(c, err)
			return
		}
		env := svc.List(c.Request.Context(), q)
		c.JSON(statusCode(env.Err()), env)
	}
}

func statsHandler(svc *service.ExecutionLogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q query.Query
		if err := c.ShouldBindQuery(&q); err != nil {
			badRequest(c, err)
			return
		}
		env := svc.Stats(c.Request.Context(), q)
		c.JSON(statusCode(env.Err()), env)
	}
}

func detailHandler(svc *service.ExecutionLogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		env := svc.Detail(c.Request.Context(), c.Param("id"))
		if env.OK() {
			d := env.Data.FinalDecision
			metrics.DecisionServed(string(d), d.IsCanonical())
		}
		c.JSON(statusCode(env.Err()), env)
	}
}

type stepsQuery struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

func stepsHandler(svc *service.ExecutionLogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q stepsQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			badRequest(c, err)
			return
		}
		env := svc.Steps(c.Request.Context(), c.Param("id"), q.Page, q.Limit)
		c.JSON(statusCode(env.Err()), env)
	}
}

// badRequest reports query parameters that could not be decoded at all.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"status":  service.StatusError,
		"message": "Invalid query parameters",
		"errors":  []string{err.Error()},
	})
}

func statusCode(err error) int {
	var verr *query.ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
