package dto

import (
	"time"

	"forest.app/forest/internal/brain"
	"forest.app/forest/internal/model"
)

type TaskCompletionRequest struct {
	UserID string `json:"user_id" binding:"required,max=255"`
	TaskID string `json:"task_id" binding:"required"`
	// Success defaults to false when omitted.
	Success bool `json:"success"`
}

type TaskCompletionResponse struct {
	Detail string                  `json:"detail"`
	Result *brain.CompletionResult `json:"result"`
}

type TaskEventResponse struct {
	ID                  int64      `json:"id,string"`
	TaskID              string     `json:"task_id"`
	EventType           string     `json:"event_type"`
	Timestamp           time.Time  `json:"timestamp"`
	LinkedHTANodeID     *string    `json:"linked_hta_node_id"`
	CapacityAtEvent     *float64   `json:"capacity_at_event"`
	ShadowScoreAtEvent  *float64   `json:"shadow_score_at_event"`
	ActiveSeedName      *string    `json:"active_seed_name"`
	ActiveArchetypeName *string    `json:"active_archetype_name"`
	EventMetadata       model.JSON `json:"event_metadata"`
}

func ToTaskEventResponses(logs []model.TaskEventLog) []TaskEventResponse {
	out := make([]TaskEventResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, TaskEventResponse{
			ID:                  l.ID,
			TaskID:              l.TaskID,
			EventType:           l.EventType,
			Timestamp:           l.Timestamp,
			LinkedHTANodeID:     l.LinkedHTANodeID,
			CapacityAtEvent:     l.CapacityAtEvent,
			ShadowScoreAtEvent:  l.ShadowScoreAtEvent,
			ActiveSeedName:      l.ActiveSeedName,
			ActiveArchetypeName: l.ActiveArchetypeName,
			EventMetadata:       l.EventMetadata,
		})
	}
	return out
}

type ReflectionEventResponse struct {
	ID                  int64      `json:"id,string"`
	ReflectionID        string     `json:"reflection_id"`
	EventType           string     `json:"event_type"`
	Timestamp           time.Time  `json:"timestamp"`
	SentimentScore      *float64   `json:"sentiment_score"`
	CapacityAtEvent     *float64   `json:"capacity_at_event"`
	ShadowScoreAtEvent  *float64   `json:"shadow_score_at_event"`
	ActiveSeedName      *string    `json:"active_seed_name"`
	ActiveArchetypeName *string    `json:"active_archetype_name"`
	EventMetadata       model.JSON `json:"event_metadata"`
}

func ToReflectionEventResponses(logs []model.ReflectionEventLog) []ReflectionEventResponse {
	out := make([]ReflectionEventResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, ReflectionEventResponse{
			ID:                  l.ID,
			ReflectionID:        l.ReflectionID,
			EventType:           l.EventType,
			Timestamp:           l.Timestamp,
			SentimentScore:      l.SentimentScore,
			CapacityAtEvent:     l.CapacityAtEvent,
			ShadowScoreAtEvent:  l.ShadowScoreAtEvent,
			ActiveSeedName:      l.ActiveSeedName,
			ActiveArchetypeName: l.ActiveArchetypeName,
			EventMetadata:       l.EventMetadata,
		})
	}
	return out
}
