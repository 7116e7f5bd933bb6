package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"voicecare-backend/internal/calls"
	"voicecare-backend/internal/relay"
	"voicecare-backend/internal/services/health"
	"voicecare-backend/internal/shared/auth"
	"voicecare-backend/internal/shared/config"
	"voicecare-backend/internal/shared/metrics"
	"voicecare-backend/internal/shared/server/middleware"
	"voicecare-backend/internal/shared/server/respond"
	"voicecare-backend/internal/users"
)

// RouterDeps holds the handlers mounted by NewRouter. Nil handlers are skipped.
type RouterDeps struct {
	Config       config.Config
	Verifier     auth.Verifier
	Health       *health.Service
	CallsHandler *calls.Handler
	UsersHandler *users.Handler
	RelayHandler *relay.Handler
	Limiter      *middleware.RateLimiter
}

var rateLimitRules = map[string]middleware.RateLimitRule{
	middleware.RateGroupDefault: {Rate: 5, Burst: 20},
	middleware.RateGroupUpload:  {Rate: 0.2, Burst: 5},
	middleware.RateGroupPublic:  {Rate: 1, Burst: 10},
}

var rateLimitRoutes = map[string]string{
	"POST /api/v1/calls":                  middleware.RateGroupUpload,
	"GET /api/v1/public/analyses/:callId": middleware.RateGroupPublic,
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(time.Now)
	}
	rateLimit := middleware.RateLimit(middleware.RateLimitConfig{
		Rules:    rateLimitRules,
		GroupFor: middleware.RouteGroups(rateLimitRoutes),
		Limiter:  limiter,
	})

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, healthSvc.Status())
	})
	api.GET("/ready", func(c *gin.Context) {
		ready, checks := healthSvc.Ready(c.Request.Context())
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, gin.H{"ok": ready, "checks": checks})
	})

	public := api.Group("", rateLimit)
	if deps.CallsHandler != nil {
		deps.CallsHandler.RegisterPublicRoutes(public)
	}

	authed := api.Group("", middleware.Auth(deps.Verifier, deps.Config.Env), rateLimit)
	if deps.CallsHandler != nil {
		deps.CallsHandler.RegisterRoutes(authed)
	}
	if deps.UsersHandler != nil {
		deps.UsersHandler.RegisterRoutes(authed)
	}

	if deps.RelayHandler != nil {
		internal := r.Group("/internal", middleware.InternalToken(deps.Config.InternalToken))
		deps.RelayHandler.RegisterRoutes(internal)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
