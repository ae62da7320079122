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

type SnapshotHandler struct {
	snapshotService service.SnapshotService
}

func NewSnapshotHandler(snapshotService service.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{snapshotService: snapshotService}
}

// Latest returns the user's full snapshot document.
func (h *SnapshotHandler) Latest(c *gin.Context) {
	userID := c.Param("user_id")
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{UserID: &userID})

	snap, err := h.snapshotService.Latest(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrSnapshotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to load snapshot", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load snapshot"})
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (h *SnapshotHandler) ReflectionEvents(c *gin.Context) {
	reflectionID := c.Param("reflection_id")
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{ReflectionID: &reflectionID})

	logs, err := h.snapshotService.ReflectionEvents(ctx, reflectionID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list reflection events", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reflection events"})
		return
	}

	c.JSON(http.StatusOK, dto.ToReflectionEventResponses(logs))
}
