package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/lexgraph/internal/server/middleware"
	"github.com/OFFIS-RIT/lexgraph/internal/storage"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger"
)

// GetRunReportHandler returns the stored result of a finished run.
func GetRunReportHandler(c echo.Context) error {
	type getReportParams struct {
		DocumentID string `param:"document_id" validate:"required"`
		RunID      string `param:"run_id" validate:"required"`
	}

	params := new(getReportParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request params"})
	}

	objects := c.(*middleware.AppContext).App.Objects
	if objects == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"message": "Report storage not configured"})
	}

	key := storage.ReportKey(params.DocumentID, params.RunID)
	body, err := objects.Get(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNoSuchKey) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Report not found"})
		}
		logger.Error("[Server] Failed to load report", "key", key, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSONBlob(http.StatusOK, body)
}
