package routes

import (
	"encoding/json"
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/OFFIS-RIT/lexgraph/internal/queue"
	"github.com/OFFIS-RIT/lexgraph/internal/server/middleware"
	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger"
	"github.com/OFFIS-RIT/lexgraph/pkg/pipeline"
)

// SubmitRunHandler enqueues a construction run for the worker.
func SubmitRunHandler(c echo.Context) error {
	type submitRunBody struct {
		RunID      string          `json:"run_id" validate:"omitempty,max=64"`
		DocumentID string          `json:"document_id" validate:"required,max=256"`
		Tags       common.Tags     `json:"tags"`
		InputKey   string          `json:"input_key" validate:"omitempty,max=1024"`
		Input      *pipeline.Input `json:"input"`
	}

	type submitRunResponse struct {
		Message    string `json:"message"`
		RunID      string `json:"run_id,omitempty"`
		DocumentID string `json:"document_id,omitempty"`
	}

	data := new(submitRunBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, submitRunResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, submitRunResponse{Message: "Invalid request body"})
	}

	req := queue.RunRequest{
		RunID:      data.RunID,
		DocumentID: data.DocumentID,
		Tags:       data.Tags,
		InputKey:   data.InputKey,
		Input:      data.Input,
	}
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, submitRunResponse{Message: err.Error()})
	}

	app := c.(*middleware.AppContext).App
	if app.Queue == nil {
		return c.JSON(http.StatusServiceUnavailable, submitRunResponse{Message: "Run queue not configured"})
	}

	if req.RunID == "" {
		id, err := gonanoid.New()
		if err != nil {
			logger.Error("[Server] Failed to generate run id", "err", err)
			return c.JSON(http.StatusInternalServerError, submitRunResponse{Message: "Internal server error"})
		}
		req.RunID = id
	}

	payload, err := json.Marshal(req)
	if err != nil {
		logger.Error("[Server] Failed to encode run request", "err", err)
		return c.JSON(http.StatusInternalServerError, submitRunResponse{Message: "Internal server error"})
	}
	if err := queue.PublishFIFO(c.Request().Context(), app.Queue, app.RunQueue, payload, nil); err != nil {
		logger.Error("[Server] Failed to enqueue run", "run_id", req.RunID, "err", err)
		return c.JSON(http.StatusInternalServerError, submitRunResponse{Message: "Internal server error"})
	}

	logger.Info("[Server] Run submitted", "run_id", req.RunID, "document_id", req.DocumentID)
	return c.JSON(http.StatusAccepted, submitRunResponse{
		Message:    "Run submitted",
		RunID:      req.RunID,
		DocumentID: req.DocumentID,
	})
}
