package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"forest.app/forest/common/logger"
	"forest.app/forest/internal/http/dto"
	"forest.app/forest/internal/service"
)

type TaskHandler struct {
	completionService service.CompletionService
	snapshotService   service.SnapshotService
}

func NewTaskHandler(completionService service.CompletionService, snapshotService service.SnapshotService) *TaskHandler {
	return &TaskHandler{completionService: completionService, snapshotService: snapshotService}
}

func (h *TaskHandler) Complete(c *gin.Context) {
	var req dto.TaskCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(c.Request.Context(), "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{UserID: &req.UserID, TaskID: &req.TaskID})

	res, err := h.completionService.Complete(ctx, req.UserID, req.TaskID, req.Success)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSnapshotNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User snapshot not found."})
		case errors.Is(err, service.ErrNotActivated):
			c.JSON(http.StatusForbidden, gin.H{"error": "User onboarding not complete."})
		default:
			slog.ErrorContext(ctx, "failed to complete task", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process task completion"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.TaskCompletionResponse{Detail: "Task completion processed", Result: res})
}

func (h *TaskHandler) Events(c *gin.Context) {
	taskID := c.Param("task_id")
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{TaskID: &taskID})

	logs, err := h.snapshotService.TaskEvents(ctx, taskID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list task events", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list task events"})
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskEventResponses(logs))
}
