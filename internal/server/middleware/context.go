package middleware

import (
	"github.com/MicahParks/keyfunc/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/delve-hq/delve/backend/pkg/interview"
	"github.com/delve-hq/delve/backend/pkg/store"
)

type AppUser struct {
	UserID      string
	Role        string
	Permissions []string
}

type App struct {
	DBConn         *pgxpool.Pool
	Queue          *amqp091.Channel
	Key            *keyfunc.Keyfunc
	Interview      *interview.Client
	Storage        store.InterviewStorage
	MasterAPIKey   string
	MasterUserID   string
	MasterUserRole string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{
				Context: c,
				App:     app,
			}
			return next(cc)
		}
	}
}
