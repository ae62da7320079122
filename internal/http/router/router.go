package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"forest.app/forest/internal/http/handler"
	"forest.app/forest/internal/http/middleware"
	"forest.app/forest/internal/service"
)

type RouterConfig struct {
	// RateLimiter guards the API routes. Nil disables rate limiting.
	RateLimiter *middleware.IPRateLimiter
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/")
	if cfg.RateLimiter != nil {
		api.Use(middleware.RateLimit(cfg.RateLimiter))
	}
	{
		onboardingHandler := handler.NewOnboardingHandler(services.Onboarding())
		OnboardingRouter(api.Group("/onboarding"), onboardingHandler)

		commandHandler := handler.NewCommandHandler(services.Commands())
		taskHandler := handler.NewTaskHandler(services.Completions(), services.Snapshots())
		CommandRouter(api, commandHandler, taskHandler)

		snapshotHandler := handler.NewSnapshotHandler(services.Snapshots())
		SnapshotRouter(api, snapshotHandler, taskHandler)
	}
}
