package server

import (
	"github.com/gin-gonic/gin"
	"github.com/nulzo/vision-grader/internal/server/middleware"
	v1 "github.com/nulzo/vision-grader/internal/server/v1"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) SetupRoutes() {
	s.router.Use(middleware.ErrorHandler(s.logger))

	healthHandler := v1.NewHealthHandler(s.deps.Grader)
	s.router.GET("/health", healthHandler.Health)

	gatherer := s.deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	limiter := middleware.NewRateLimiter(s.config.RateLimit.RequestsPerSecond, s.config.RateLimit.Burst, s.logger)

	api := s.router.Group("/v1")
	{
		slots := api.Group("/slots/:slot")
		{
			gradeHandler := v1.NewGradeHandler(s.deps.Grader, s.deps.Slots, s.validator)
			slots.POST("/grade", limiter.Middleware(), gradeHandler.Grade)
			slots.POST("/test", limiter.Middleware(), gradeHandler.Test)

			strategyHandler := v1.NewStrategyHandler(s.deps.Grader)
			slots.GET("/strategy", strategyHandler.Get)
			slots.DELETE("/strategy", strategyHandler.Delete)
		}

		engineHandler := v1.NewEngineHandler(s.deps.Grader)
		api.GET("/engine", engineHandler.Status)
		api.POST("/engine/stop", engineHandler.Stop)
		api.POST("/engine/resume", engineHandler.Resume)
		api.POST("/engine/config-changed", engineHandler.ConfigChanged)

		if s.deps.Analytics != nil {
			analyticsHandler := v1.NewAnalyticsHandler(s.deps.Analytics)
			api.GET("/calls", analyticsHandler.Calls)
			api.GET("/calls/stats", analyticsHandler.Stats)
		}
	}
}
