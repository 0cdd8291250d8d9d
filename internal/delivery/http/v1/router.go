package v1

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"rsi-website-backend/config"
	"rsi-website-backend/internal/delivery/http/middleware"
	"rsi-website-backend/internal/delivery/http/response"
	"rsi-website-backend/internal/domain"
	"rsi-website-backend/pkg/redis"
	"rsi-website-backend/pkg/security"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

//go:embed templates/*.html
var pageFS embed.FS

type RouterDeps struct {
	ContactUC domain.ContactUsecase
	Config    *config.Config
	Redis     *goredis.Client // optional, backs the rate limiter
	Events    *security.SecurityLogger
}

func NewRouter(deps RouterDeps) (*gin.Engine, error) {
	cfg := deps.Config
	r := gin.New()

	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}
	pages, err := template.ParseFS(pageFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}
	r.SetHTMLTemplate(pages)

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins, cfg.Environment.IsDevelopment())) // CORS must be first!
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.SecurityHeadersMiddleware(!cfg.Environment.IsDevelopment()))
	r.Use(middleware.CSRFMiddleware(middleware.CSRFConfig{
		Secure: !cfg.Environment.IsDevelopment(),
		// JSON clients are not browsers holding our cookie; CAPTCHA and the
		// rate limit guard this route instead
		ExemptPaths: []string{"/v1/contact"},
		Events:      deps.Events,
	}))
	r.Use(middleware.ErrorHandler())

	limiter := middleware.RateLimitMiddleware(middleware.ContactRateLimitConfig(cfg, deps.Redis, deps.Events))

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/contact")
	})

	v1 := r.Group("/v1")

	// Health Check
	v1.GET("/health", func(c *gin.Context) {
		store := "memory"
		if deps.Redis != nil {
			if err := redis.HealthCheck(c.Request.Context(), deps.Redis); err != nil {
				response.Error(c, http.StatusServiceUnavailable, "Rate limit store unavailable", nil)
				return
			}
			store = "redis"
		}
		response.Success(c, http.StatusOK, "System operational", gin.H{"rate_limit_store": store})
	})

	NewContactHandler(&r.RouterGroup, v1, deps.ContactUC, cfg.SiteName, cfg.Recaptcha.SiteKey, limiter)

	return r, nil
}
