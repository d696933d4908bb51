package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	googleauth "easyread/internal/auth"
	"easyread/internal/documents"
	"easyread/internal/extract"
	"easyread/internal/pdfrender"
	"easyread/internal/services/health"
	"easyread/internal/shared/config"
	"easyread/internal/shared/metrics"
	"easyread/internal/shared/server/middleware"
	"easyread/internal/shared/server/respond"
	"easyread/internal/simplify"
	"easyread/internal/users"
)

const proxyGroup = "PROXY"

// RouterDeps carries the handlers the router mounts. Nil handlers are
// skipped, which keeps partial wiring usable in tests.
type RouterDeps struct {
	Config           config.Config
	Health           *health.Service
	UsersHandler     *users.Handler
	DocumentsHandler *documents.Handler
	ExtractHandler   *extract.Handler
	SimplifyHandler  *simplify.Handler
	RenderHandler    *pdfrender.Handler
	GoogleAuth       *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, healthSvc.Status())
	})

	if deps.UsersHandler != nil {
		deps.UsersHandler.RegisterRoutes(api)
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}

	protected := api.Group("")
	protected.Use(middleware.Auth())

	if deps.UsersHandler != nil {
		deps.UsersHandler.RegisterProtectedRoutes(protected)
	}
	if deps.DocumentsHandler != nil {
		deps.DocumentsHandler.RegisterRoutes(protected)
	}

	// Provider proxies are the expensive routes; they get a per-user
	// token bucket on top of auth.
	proxy := protected.Group("")
	proxy.Use(middleware.RateLimit(proxyRateLimit(deps.Config)))

	if deps.ExtractHandler != nil {
		deps.ExtractHandler.RegisterRoutes(proxy)
	}
	if deps.SimplifyHandler != nil {
		deps.SimplifyHandler.RegisterRoutes(proxy)
	}
	if deps.RenderHandler != nil {
		deps.RenderHandler.RegisterRoutes(proxy)
	}

	return r
}

func proxyRateLimit(cfg config.Config) middleware.RateLimitConfig {
	perMin := cfg.ProxyRatePerMin
	if perMin <= 0 {
		perMin = 30
	}
	burst := perMin / 6
	if burst < 3 {
		burst = 3
	}
	return middleware.RateLimitConfig{
		DefaultGroup: proxyGroup,
		Rules: map[string]middleware.RateLimitRule{
			proxyGroup: {
				Rate:  float64(perMin) / 60.0,
				Burst: burst,
			},
		},
	}
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
