package server

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = JSONErrorHandler()

	e.Use(SetJSONContentType)
	e.Use(SetNoCacheHeaders)

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)

	// Everything but health sits behind the optional API key
	api := v1.Group("")
	if cfg.APIKey != "" {
		api.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(key), []byte(cfg.APIKey)) == 1, nil
			},
		}))
	}

	api.GET("/runs/recent", h.RecentRuns)
	api.GET("/runs/latest", h.LatestRun)

	mutations := middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(1),
		Burst:     5,
		ExpiresIn: 2 * time.Minute,
	}))

	trading := api.Group("/trading")
	trading.GET("", h.TradingStatus)
	trading.POST("/halt", h.HaltTrading, mutations)
	trading.POST("/resume", h.ResumeTrading, mutations)

	flagGroup := api.Group("/flags")
	flagGroup.GET("", h.FlagsList)
	flagGroup.POST("", h.FlagsUpsert, mutations)
	flagGroup.GET("/:key", h.FlagsGet)
	flagGroup.PUT("/:key", h.FlagsUpdate, mutations)
	flagGroup.DELETE("/:key", h.FlagsDelete, mutations)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
