package dto

import (
	"forest.app/forest/internal/domain"
	"forest.app/forest/internal/service"
)

type SetGoalRequest struct {
	UserID        string `json:"user_id" binding:"required,max=255"`
	GoalIntention string `json:"goal_intention" binding:"required"`
}

type AddContextRequest struct {
	UserID            string `json:"user_id" binding:"required,max=255"`
	ContextReflection string `json:"context_reflection" binding:"required"`
}

type OnboardingResponse struct {
	UserID      string       `json:"user_id"`
	Status      string       `json:"status"`
	Message     string       `json:"message"`
	RefinedGoal string       `json:"refined_goal,omitempty"`
	FirstTask   *domain.Task `json:"first_task,omitempty"`
}

func ToOnboardingResponse(userID string, r *service.OnboardingResult) *OnboardingResponse {
	return &OnboardingResponse{
		UserID:      userID,
		Status:      r.Status,
		Message:     r.Message,
		RefinedGoal: r.RefinedGoal,
		FirstTask:   r.FirstTask,
	}
}
