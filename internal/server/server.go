package server

import (
	"net/http"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/nulzo/vision-grader/internal/analytics"
	"github.com/nulzo/vision-grader/internal/config"
	"github.com/nulzo/vision-grader/internal/server/middleware"
	v1 "github.com/nulzo/vision-grader/internal/server/v1"
	"github.com/nulzo/vision-grader/internal/server/validator"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Deps are the services the HTTP layer exposes.
type Deps struct {
	Grader v1.Grader
	Slots  v1.SlotResolver
	// Analytics is nil when the call store is disabled.
	Analytics analytics.Service
	Gatherer  prometheus.Gatherer
}

type Server struct {
	router    *gin.Engine
	config    *config.Config
	logger    *zap.Logger
	deps      Deps
	validator *validator.Validator
}

func New(cfg *config.Config, logger *zap.Logger, deps Deps) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(ginzap.RecoveryWithZap(logger, true))
	if cfg.Tracing.Enabled {
		engine.Use(middleware.Tracing(cfg.Tracing.ServiceName))
	}
	engine.Use(middleware.Logger(logger, "/health", "/metrics"))

	s := &Server{
		router:    engine,
		config:    cfg,
		logger:    logger,
		deps:      deps,
		validator: validator.New(),
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}
