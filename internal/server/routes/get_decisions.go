package routes

import (
	"net/http"

	"github.com/delve-hq/delve/backend/internal/server/middleware"
	"github.com/delve-hq/delve/backend/pkg/logger"
	"github.com/delve-hq/delve/backend/pkg/store"

	"github.com/labstack/echo/v4"
)

// GetDecisionsHandler returns the per-turn strategy decisions of a session,
// including the full scoring decomposition of every candidate.
func GetDecisionsHandler(c echo.Context) error {
	type getDecisionsResponse struct {
		Message   string               `json:"message"`
		Decisions []store.TurnDecision `json:"decisions"`
	}

	sessionID := c.Param("id")
	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	if _, err := app.Storage.GetSession(ctx, sessionID); err != nil {
		return c.JSON(http.StatusNotFound, getDecisionsResponse{
			Message: "Session not found",
		})
	}

	decisions, err := app.Storage.GetDecisions(ctx, sessionID)
	if err != nil {
		logger.Error("Failed to load decisions", "session", sessionID, "err", err)
		return c.JSON(http.StatusInternalServerError, getDecisionsResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getDecisionsResponse{
		Message:   "OK",
		Decisions: decisions,
	})
}
