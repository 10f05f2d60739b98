package routes

import (
	"net/http"

	"github.com/delve-hq/delve/backend/internal/server/middleware"
	"github.com/delve-hq/delve/backend/pkg/common"
	"github.com/delve-hq/delve/backend/pkg/interview"
	"github.com/delve-hq/delve/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CreateSessionHandler starts a new interview session and returns its
// opening question.
func CreateSessionHandler(c echo.Context) error {
	type createSessionBody struct {
		Topic         string `json:"topic" validate:"required"`
		MethodologyID string `json:"methodology_id" validate:"required"`
		Mode          string `json:"mode" validate:"omitempty,oneof=automatic manual"`
		MaxTurns      int    `json:"max_turns" validate:"omitempty,min=1,max=200"`
	}

	type createSessionResponse struct {
		Message  string          `json:"message"`
		Session  *common.Session `json:"session,omitempty"`
		Question string          `json:"question,omitempty"`
	}

	data := new(createSessionBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createSessionResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createSessionResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, createSessionResponse{
			Message: "Unauthorized",
		})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	session, question, err := app.Interview.StartSession(ctx, interview.StartSessionParams{
		Topic:         data.Topic,
		MethodologyID: data.MethodologyID,
		Mode:          data.Mode,
		MaxTurns:      data.MaxTurns,
	})
	if err != nil {
		logger.Error("Failed to start session", "err", err)
		return c.JSON(http.StatusBadRequest, createSessionResponse{
			Message: "Could not start session",
		})
	}

	return c.JSON(http.StatusCreated, createSessionResponse{
		Message:  "Session started",
		Session:  session,
		Question: question,
	})
}
