package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/longevaiapp/EVEREST-sub000/internal/middleware"
	"github.com/longevaiapp/EVEREST-sub000/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine         *gin.Engine
	auth           *middleware.AuthMiddleware
	health         Handler
	metricsHandler gin.HandlerFunc
	handlers       []Handler
	rateLimiter    *middleware.RateLimiter
}

type RouterConfig struct {
	Mode         string
	RateLimit    rate.Limit
	RateBurst    int
	MaxBodyBytes int64
	CORSConfig   middleware.CORSConfig
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	m *metrics.Metrics,
	health Handler,
	metricsHandler gin.HandlerFunc,
	handlers []Handler,
	config RouterConfig,
) *Router {
	if config.Mode == "" {
		config.Mode = gin.ReleaseMode
	}
	gin.SetMode(config.Mode)

	engine := gin.New() // Use New() instead of Default() for more control

	r := &Router{
		engine:         engine,
		auth:           auth,
		health:         health,
		metricsHandler: metricsHandler,
		handlers:       handlers,
		rateLimiter: middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		}),
	}

	// Add core middlewares
	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorLogger(),
		middleware.Metrics(m),
		middleware.CORS(config.CORSConfig),
	)
	if config.MaxBodyBytes > 0 {
		engine.Use(middleware.SizeLimit(config.MaxBodyBytes))
	}

	return r
}

func (r *Router) Setup() {
	// Probes and scraping stay outside auth and rate limiting.
	root := r.engine.Group("")
	if r.health != nil {
		r.health.RegisterRoutes(root)
	}
	if r.metricsHandler != nil {
		root.GET("/metrics", r.metricsHandler)
	}

	api := r.engine.Group("/api/v1")
	api.Use(
		r.auth.Authenticate(),
		r.rateLimiter.RateLimit(),
	)
	for _, h := range r.handlers {
		h.RegisterRoutes(api)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
