package http

import (
	"github.com/gin-gonic/gin"
	"github.com/logbookhq/logbook-server/internal/agents"
	"github.com/logbookhq/logbook-server/internal/api/http/handler"
	"github.com/logbookhq/logbook-server/internal/api/http/middleware"
	"github.com/logbookhq/logbook-server/internal/ingest"
	"github.com/logbookhq/logbook-server/internal/logs"
	"github.com/logbookhq/logbook-server/internal/metrics"
)

type Services struct {
	AgentService      *agents.Service
	LogCoordinator    *ingest.Coordinator[ingest.LogPayload, *logs.Entry]
	MetricCoordinator *ingest.Coordinator[ingest.MetricPayload, *metrics.Entry]
}

func SetupRoute(engine *gin.Engine, cfg Config, srvs *Services) {
	engine.Use(middleware.RequestLogger())

	healthHandler := handler.NewHealthHandler()
	engine.GET("/health", healthHandler.Check)

	agentsHandler := handler.NewAgentsHandler(srvs.AgentService)
	logsHandler := handler.NewLogsHandler(srvs.LogCoordinator)
	metricsHandler := handler.NewMetricsHandler(srvs.MetricCoordinator)
	adminHandler := handler.NewAdminHandler(srvs.AgentService)

	api := engine.Group("/api")
	{
		api.POST("/agents/register", agentsHandler.Register)
		api.POST("/agents/:id/heartbeat", agentsHandler.Heartbeat)
		api.GET("/agents/:id/config", agentsHandler.Config)

		api.POST("/logs/ingest", logsHandler.Ingest)
		api.POST("/logs/batch", logsHandler.Batch)

		api.POST("/metrics/ingest", metricsHandler.Ingest)
		api.POST("/metrics/batch", metricsHandler.Batch)

		admin := api.Group("/admin", middleware.APIKeyAuth(cfg.AdminAPIKey))
		{
			admin.GET("/agents", adminHandler.ListAgents)
			admin.POST("/agents/:id/rotate-token", adminHandler.RotateToken)
		}
	}
}
