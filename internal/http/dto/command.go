package dto

import (
	"forest.app/forest/internal/domain"
	"forest.app/forest/internal/mastery"
	"forest.app/forest/internal/reward"
	"forest.app/forest/internal/service"
	"forest.app/forest/internal/trigger"
)

type CommandRequest struct {
	UserID  string `json:"user_id" binding:"required,max=255"`
	Command string `json:"command" binding:"required"`
}

// RichCommandResponse answers /command. Trigger phrases fill only Trigger
// and the withering level; reflections fill everything else.
type RichCommandResponse struct {
	Task                 *domain.Task       `json:"task,omitempty"`
	Offering             *reward.Offering   `json:"offering"`
	MasteryChallenge     *mastery.Challenge `json:"mastery_challenge"`
	MagnitudeDescription string             `json:"magnitude_description,omitempty"`
	ArbiterResponse      string             `json:"arbiter_response,omitempty"`
	ResonanceTheme       string             `json:"resonance_theme,omitempty"`
	RoutingScore         float64            `json:"routing_score"`
	WitheringLevel       float64            `json:"withering_level"`
	OnboardingStatus     string             `json:"onboarding_status"`
	ReflectionID         string             `json:"reflection_id,omitempty"`
	Trigger              *trigger.Result    `json:"trigger,omitempty"`
}

func ToRichCommandResponse(r *service.CommandResult) *RichCommandResponse {
	resp := &RichCommandResponse{
		WitheringLevel:   r.WitheringLevel,
		OnboardingStatus: service.StatusCompleted,
		ReflectionID:     r.ReflectionID,
		Trigger:          r.Trigger,
	}
	if out := r.Reflection; out != nil {
		task := out.Task
		resp.Task = &task
		resp.Offering = out.Offering
		resp.MasteryChallenge = out.MasteryChallenge
		resp.MagnitudeDescription = out.MagnitudeDescription
		resp.ArbiterResponse = out.ArbiterResponse
		resp.ResonanceTheme = out.ResonanceTheme
		resp.RoutingScore = out.RoutingScore
	}
	return resp
}
