package routes

import (
	"net/http"

	"github.com/delve-hq/delve/backend/internal/server/middleware"
	"github.com/delve-hq/delve/backend/pkg/common"
	"github.com/delve-hq/delve/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

// GetSessionsHandler lists all sessions.
func GetSessionsHandler(c echo.Context) error {
	type getSessionsResponse struct {
		Message  string           `json:"message"`
		Sessions []common.Session `json:"sessions"`
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	sessions, err := app.Storage.ListSessions(ctx)
	if err != nil {
		logger.Error("Failed to list sessions", "err", err)
		return c.JSON(http.StatusInternalServerError, getSessionsResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getSessionsResponse{
		Message:  "OK",
		Sessions: sessions,
	})
}

// GetSessionHandler returns one session with its transcript.
func GetSessionHandler(c echo.Context) error {
	type getSessionResponse struct {
		Message    string             `json:"message"`
		Session    *common.Session    `json:"session,omitempty"`
		Transcript []common.Utterance `json:"transcript,omitempty"`
	}

	sessionID := c.Param("id")
	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	session, err := app.Storage.GetSession(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusNotFound, getSessionResponse{
			Message: "Session not found",
		})
	}

	transcript, err := app.Storage.GetTranscript(ctx, sessionID)
	if err != nil {
		logger.Error("Failed to load transcript", "session", sessionID, "err", err)
		return c.JSON(http.StatusInternalServerError, getSessionResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getSessionResponse{
		Message:    "OK",
		Session:    session,
		Transcript: transcript,
	})
}
