package server

import (
	"github.com/delve-hq/delve/backend/internal/server/middleware"
	"github.com/delve-hq/delve/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Session routes
	apiRoutes.GET("/sessions", routes.GetSessionsHandler, middleware.RequirePermission("session.view:all"))
	apiRoutes.POST("/sessions", routes.CreateSessionHandler, middleware.RequirePermission("session.create"))
	apiRoutes.GET("/sessions/:id", routes.GetSessionHandler, middleware.RequirePermission("session.view"))

	// Turn routes
	apiRoutes.POST("/sessions/:id/turns", routes.PostTurnHandler, middleware.RequirePermission("session.turn"))

	// Audit routes
	apiRoutes.GET("/sessions/:id/decisions", routes.GetDecisionsHandler, middleware.RequirePermission("session.view"))
	apiRoutes.GET("/sessions/:id/graph", routes.GetGraphHandler, middleware.RequirePermission("session.view"))
}
