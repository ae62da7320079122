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

type CommandHandler struct {
	commandService service.CommandService
}

func NewCommandHandler(commandService service.CommandService) *CommandHandler {
	return &CommandHandler{commandService: commandService}
}

func (h *CommandHandler) Process(c *gin.Context) {
	var req dto.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(c.Request.Context(), "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{UserID: &req.UserID})

	res, err := h.commandService.Process(ctx, req.UserID, req.Command)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSnapshotNotFound):
			c.JSON(http.StatusForbidden, gin.H{"error": "Onboarding not started. Use /onboarding/set_goal."})
		case errors.Is(err, service.ErrNotActivated):
			c.JSON(http.StatusForbidden, gin.H{"error": "Onboarding incomplete. Use /onboarding/add_context."})
		case errors.Is(err, service.ErrGoalNotSet):
			c.JSON(http.StatusForbidden, gin.H{"error": "Onboarding not complete. Use /onboarding/set_goal first."})
		default:
			slog.ErrorContext(ctx, "failed to process command", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process command"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToRichCommandResponse(res))
}
