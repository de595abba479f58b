package server

import (
	"github.com/OFFIS-RIT/lexgraph/internal/server/middleware"
	"github.com/OFFIS-RIT/lexgraph/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Probes
	e.GET("/health", routes.HealthHandler)
	e.GET("/ready", routes.ReadyHandler)

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Run routes
	apiRoutes.POST("/runs", routes.SubmitRunHandler)
	apiRoutes.GET("/reports/:document_id/:run_id", routes.GetRunReportHandler)
}
