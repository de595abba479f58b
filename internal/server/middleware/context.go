package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/lexgraph/internal/queue"
	"github.com/OFFIS-RIT/lexgraph/internal/storage"
)

// Check reports whether a dependency of the service is usable.
type Check func(ctx context.Context) error

type App struct {
	// Queue receives submitted runs. Without it submissions are rejected.
	Queue    queue.Publisher
	RunQueue string
	Objects  storage.ObjectStore
	APIKey   string
	Checks   map[string]Check
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
