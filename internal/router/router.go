package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/regsalud/reps-sync/internal/handler/health"
	syncHandler "github.com/regsalud/reps-sync/internal/handler/sync"
	"github.com/regsalud/reps-sync/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
}

type Router struct {
	engine  *gin.Engine
	auth    *middleware.AuthMiddleware
	syncH   *syncHandler.Handler
	healthH *health.Handler
	cfg     Config
	metrics *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func newRouterMetrics() *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		}, []string{"method", "path", "status"}),
		requestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
	}
}

func NewRouter(auth *middleware.AuthMiddleware, syncH *syncHandler.Handler, healthH *health.Handler, cfg Config) *Router {
	return &Router{
		engine:  gin.New(),
		auth:    auth,
		syncH:   syncH,
		healthH: healthH,
		cfg:     cfg,
		metrics: newRouterMetrics(),
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) Setup() {
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Logger())
	r.engine.Use(middleware.Recovery())
	r.engine.Use(r.observe())

	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := r.engine.Group("/")
	r.healthH.RegisterRoutes(public)

	api := r.engine.Group("/api/v1")
	api.Use(r.auth.RequireAuth())
	if r.cfg.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  r.cfg.RateLimit,
			Burst: r.cfg.RateBurst,
		})
		api.Use(limiter.RateLimit())
	}
	r.syncH.RegisterRoutes(api)
}

func (r *Router) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
