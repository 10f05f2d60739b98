package routes

import (
	"net/http"

	"github.com/delve-hq/delve/backend/internal/queue"
	"github.com/delve-hq/delve/backend/internal/server/middleware"
	"github.com/delve-hq/delve/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PostTurnHandler accepts one respondent answer and enqueues it for the
// worker. Processing is asynchronous; callers poll the transcript for the
// next question.
func PostTurnHandler(c echo.Context) error {
	type postTurnBody struct {
		Answer string `json:"answer" validate:"required"`
	}

	type postTurnResponse struct {
		Message string `json:"message"`
		Turn    int    `json:"turn,omitempty"`
	}

	sessionID := c.Param("id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, postTurnResponse{
			Message: "Missing session id",
		})
	}

	data := new(postTurnBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, postTurnResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, postTurnResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, postTurnResponse{
			Message: "Unauthorized",
		})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	session, err := app.Storage.GetSession(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusNotFound, postTurnResponse{
			Message: "Session not found",
		})
	}
	if session.MaxTurns > 0 && session.Turn >= session.MaxTurns {
		return c.JSON(http.StatusConflict, postTurnResponse{
			Message: "Session has reached its turn budget",
		})
	}

	err = queue.PublishTurn(app.Queue, queue.TurnMessage{
		SessionID: sessionID,
		Answer:    data.Answer,
	})
	if err != nil {
		logger.Error("Failed to enqueue turn", "session", sessionID, "err", err)
		return c.JSON(http.StatusInternalServerError, postTurnResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, postTurnResponse{
		Message: "Turn queued",
		Turn:    session.Turn + 1,
	})
}
