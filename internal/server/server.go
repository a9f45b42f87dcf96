package server

import (
	"net/http"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modelrelay/relay-api/internal/config"
	"github.com/modelrelay/relay-api/internal/registry"
	"github.com/modelrelay/relay-api/internal/relay"
	"github.com/modelrelay/relay-api/internal/server/middleware"
	"github.com/modelrelay/relay-api/internal/telemetry"
)

const serviceName = "relay-api"

type Services struct {
	Registry  registry.Service
	Relay     relay.Service
	Telemetry telemetry.Service
}

type Server struct {
	router   *gin.Engine
	config   *config.Config
	logger   *zap.Logger
	services Services
}

func New(cfg *config.Config, logger *zap.Logger, services Services) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(ginzap.RecoveryWithZap(logger, true))
	engine.Use(middleware.Logger(logger))
	engine.Use(middleware.CORS())
	engine.Use(middleware.ErrorHandler(logger))
	if cfg.Tracing.Enabled {
		engine.Use(middleware.Tracing(serviceName))
	}

	s := &Server{
		router:   engine,
		config:   cfg,
		logger:   logger,
		services: services,
	}

	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run() error {
	return s.router.Run(s.config.Addr())
}
