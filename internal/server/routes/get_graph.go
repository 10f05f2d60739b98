package routes

import (
	"net/http"

	"github.com/delve-hq/delve/backend/internal/server/middleware"
	"github.com/delve-hq/delve/backend/pkg/canonical"
	"github.com/delve-hq/delve/backend/pkg/common"
	"github.com/delve-hq/delve/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

// GetGraphHandler returns the session's concept graph together with the
// canonical slot layer and its reassignment history.
func GetGraphHandler(c echo.Context) error {
	type getGraphResponse struct {
		Message       string                   `json:"message"`
		Concepts      []common.Concept         `json:"concepts"`
		Relationships []common.Relationship    `json:"relationships"`
		Slots         []canonical.Slot         `json:"slots,omitempty"`
		Reassignments []canonical.Reassignment `json:"reassignments,omitempty"`
	}

	sessionID := c.Param("id")
	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	if _, err := app.Storage.GetSession(ctx, sessionID); err != nil {
		return c.JSON(http.StatusNotFound, getGraphResponse{
			Message: "Session not found",
		})
	}

	concepts, err := app.Storage.GetConcepts(ctx, sessionID)
	if err != nil {
		logger.Error("Failed to load concepts", "session", sessionID, "err", err)
		return c.JSON(http.StatusInternalServerError, getGraphResponse{
			Message: "Internal server error",
		})
	}

	relationships, err := app.Storage.GetRelationships(ctx, sessionID)
	if err != nil {
		logger.Error("Failed to load relationships", "session", sessionID, "err", err)
		return c.JSON(http.StatusInternalServerError, getGraphResponse{
			Message: "Internal server error",
		})
	}

	slots, err := app.Storage.GetCanonicalSlots(ctx, sessionID)
	if err != nil {
		logger.Error("Failed to load canonical slots", "session", sessionID, "err", err)
		return c.JSON(http.StatusInternalServerError, getGraphResponse{
			Message: "Internal server error",
		})
	}

	reassignments, err := app.Storage.GetReassignments(ctx, sessionID)
	if err != nil {
		logger.Error("Failed to load reassignments", "session", sessionID, "err", err)
		return c.JSON(http.StatusInternalServerError, getGraphResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getGraphResponse{
		Message:       "OK",
		Concepts:      concepts,
		Relationships: relationships,
		Slots:         slots,
		Reassignments: reassignments,
	})
}
