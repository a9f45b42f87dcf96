package server

import (
	v1 "github.com/modelrelay/relay-api/internal/server/v1"
)

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")

	health := v1.NewHealthHandler()
	api.GET("/health", health.Health)

	models := v1.NewModelHandler(s.logger, s.services.Registry)
	api.GET("/models", models.List)
	api.POST("/models", models.Upsert)
	api.DELETE("/models/:id", models.Delete)

	chat := v1.NewChatHandler(s.logger, s.services.Relay)
	api.POST("/chat", chat.Relay)

	metrics := v1.NewMetricsHandler(s.logger, s.services.Telemetry)
	api.GET("/metrics", metrics.Summary)

	cfg := v1.NewConfigHandler(s.config)
	api.GET("/config", cfg.Get)
}
