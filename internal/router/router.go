package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lifetag/lifetag-api/internal/handler"
	"github.com/lifetag/lifetag-api/internal/middleware"
	"github.com/lifetag/lifetag-api/pkg/logger"
	"github.com/lifetag/lifetag-api/pkg/metrics"
)

// Handler registers its routes on a group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// StatsHandler additionally serves the verification dashboard stats.
type StatsHandler interface {
	Handler
	GetStats(*gin.Context)
}

type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
	StatsCacheTTL  time.Duration
	CORS           middleware.CORSConfig
}

type Router struct {
	engine        *gin.Engine
	auth          *middleware.AuthMiddleware
	authH         Handler
	statusH       Handler
	verificationH StatsHandler
	adminH        Handler
	store         handler.Pinger
	metrics       *metrics.Metrics
	config        Config
}

func New(
	auth *middleware.AuthMiddleware,
	authH Handler,
	statusH Handler,
	verificationH StatsHandler,
	adminH Handler,
	store handler.Pinger,
	m *metrics.Metrics,
	l *logger.Logger,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:        engine,
		auth:          auth,
		authH:         authH,
		statusH:       statusH,
		verificationH: verificationH,
		adminH:        adminH,
		store:         store,
		metrics:       m,
		config:        config,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(l),
		middleware.Logger(l),
		r.metricsMiddleware(),
		middleware.CORS(config.CORS),
		middleware.NewRateLimiter(config.RateLimitRPS, config.RateLimitBurst).Limit(),
	)

	return r
}

// Setup mounts all routes.
func (r *Router) Setup() {
	r.engine.GET("/health", handler.HealthCheck(r.store))
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")

	// Public routes
	r.authH.RegisterRoutes(api)

	// Any signed-in user
	authed := api.Group("")
	authed.Use(r.auth.Authenticate())
	r.statusH.RegisterRoutes(authed)

	// Admin-only routes
	admin := api.Group("/admin")
	admin.Use(r.auth.Authenticate(), r.auth.RequireAdmin())
	r.verificationH.RegisterRoutes(admin)
	r.adminH.RegisterRoutes(admin)

	// Stats recompute aggregates on every call; serve brief repeats from
	// cache.
	stats := admin.Group("/stats", middleware.CacheResponses(r.config.StatsCacheTTL))
	stats.GET("/verification", r.verificationH.GetStats)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		r.metrics.HTTPRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		r.metrics.HTTPDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
