package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ts-dashboard/internal/mw"
)

// RouterOptions tune the middleware.
type RouterOptions struct {
	RateLimit      rate.Limit
	RateBurst      int
	LoginRateLimit rate.Limit
	CacheTTL       time.Duration
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, opts RouterOptions, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(mw.Logger(logger), mw.Recovery(logger))
	r.SetHTMLTemplate(loadTemplates())

	rateLimiter := mw.RateLimiter(opts.RateLimit, opts.RateBurst)
	loginLimiter := mw.RateLimiter(opts.LoginRateLimit, opts.RateBurst)

	cacheStore := cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	caching := mw.Cache(cacheStore, opts.CacheTTL, stationKey)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/", h.LoginPage)
	r.POST("/login", loginLimiter, h.LoginForm)
	r.POST("/logout", h.Logout)
	r.GET("/dashboard", h.requireSession, h.DashboardPage)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/login", loginLimiter, h.LoginJSON)
		api.GET("/session", h.GetSession)

		authed := api.Group("", h.requireSession)
		authed.GET("/stations", caching, h.GetStations)
		authed.GET("/filter-options", caching, h.GetFilterOptions)

		dash := authed.Group("/dashboard")
		dash.GET("", h.GetDashboard)
		dash.POST("/select", h.SelectTarget)
		dash.POST("/filters", h.ApplyFilters)
		dash.POST("/page", h.ChangePage)
		dash.GET("/export.csv", h.ExportCSV)
		dash.POST("/banners/:id/dismiss", h.DismissBanner)
	}
	// Streams are long-lived and not rate limited.
	r.GET("/api/dashboard/ws", h.requireSession, h.StreamDashboard)

	return r
}
