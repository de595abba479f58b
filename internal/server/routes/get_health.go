package routes

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/lexgraph/internal/server/middleware"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger"
)

const readyTimeout = 3 * time.Second

func HealthHandler(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// ReadyHandler runs every registered check and answers 503 naming the
// failing ones.
func ReadyHandler(c echo.Context) error {
	type readyResponse struct {
		Ready  bool              `json:"ready"`
		Failed map[string]string `json:"failed,omitempty"`
	}

	checks := c.(*middleware.AppContext).App.Checks
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(c.Request().Context(), readyTimeout)
	defer cancel()

	res := readyResponse{Ready: true}
	for _, name := range names {
		if err := checks[name](ctx); err != nil {
			logger.Warn("[Server] Readiness check failed", "check", name, "err", err)
			if res.Failed == nil {
				res.Failed = map[string]string{}
			}
			res.Failed[name] = err.Error()
			res.Ready = false
		}
	}

	if !res.Ready {
		return c.JSON(http.StatusServiceUnavailable, res)
	}
	return c.JSON(http.StatusOK, res)
}
