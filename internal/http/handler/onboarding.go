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

type OnboardingHandler struct {
	onboardingService service.OnboardingService
}

func NewOnboardingHandler(onboardingService service.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{onboardingService: onboardingService}
}

func (h *OnboardingHandler) SetGoal(c *gin.Context) {
	var req dto.SetGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(c.Request.Context(), "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{UserID: &req.UserID})

	res, err := h.onboardingService.SetGoal(ctx, req.UserID, req.GoalIntention)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set goal", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set goal"})
		return
	}

	c.JSON(http.StatusOK, dto.ToOnboardingResponse(req.UserID, res))
}

func (h *OnboardingHandler) AddContext(c *gin.Context) {
	var req dto.AddContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(c.Request.Context(), "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{UserID: &req.UserID})

	res, err := h.onboardingService.AddContext(ctx, req.UserID, req.ContextReflection)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSnapshotNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found or goal not set. Use /onboarding/set_goal first."})
		case errors.Is(err, service.ErrGoalNotSet):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Goal must be set before adding context."})
		default:
			slog.ErrorContext(ctx, "failed to add context", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete onboarding"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToOnboardingResponse(req.UserID, res))
}
