package model

import (
	"time"

	"gorm.io/gorm"

	"forest.app/forest/common/id"
)

type TaskEventType string

const (
	TaskEventGenerated TaskEventType = "generated"
	TaskEventCompleted TaskEventType = "completed"
)

type ReflectionEventType string

const ReflectionEventProcessed ReflectionEventType = "processed"

// TaskEventLog records something that happened to an issued task, together
// with the user state at that moment.
type TaskEventLog struct {
	ID                  int64     `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	TaskID              string    `gorm:"column:task_id;not null;index" json:"task_id"`
	EventType           string    `gorm:"column:event_type;not null" json:"event_type"`
	Timestamp           time.Time `gorm:"column:timestamp" json:"timestamp"`
	LinkedHTANodeID     *string   `gorm:"column:linked_hta_node_id" json:"linked_hta_node_id,omitempty"`
	CapacityAtEvent     *float64  `gorm:"column:capacity_at_event" json:"capacity_at_event,omitempty"`
	ShadowScoreAtEvent  *float64  `gorm:"column:shadow_score_at_event" json:"shadow_score_at_event,omitempty"`
	ActiveSeedName      *string   `gorm:"column:active_seed_name" json:"active_seed_name,omitempty"`
	ActiveArchetypeName *string   `gorm:"column:active_archetype_name" json:"active_archetype_name,omitempty"`
	EventMetadata       JSON      `gorm:"column:event_metadata;type:jsonb" json:"event_metadata,omitempty"`
}

func (TaskEventLog) TableName() string { return "task_event_logs" }

func (e *TaskEventLog) BeforeCreate(*gorm.DB) error {
	if e.ID == 0 {
		e.ID = id.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return nil
}

// ReflectionEventLog records the processing of one reflection.
type ReflectionEventLog struct {
	ID                  int64     `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	ReflectionID        string    `gorm:"column:reflection_id;not null;index" json:"reflection_id"`
	EventType           string    `gorm:"column:event_type;not null" json:"event_type"`
	Timestamp           time.Time `gorm:"column:timestamp" json:"timestamp"`
	SentimentScore      *float64  `gorm:"column:sentiment_score" json:"sentiment_score,omitempty"`
	CapacityAtEvent     *float64  `gorm:"column:capacity_at_event" json:"capacity_at_event,omitempty"`
	ShadowScoreAtEvent  *float64  `gorm:"column:shadow_score_at_event" json:"shadow_score_at_event,omitempty"`
	ActiveSeedName      *string   `gorm:"column:active_seed_name" json:"active_seed_name,omitempty"`
	ActiveArchetypeName *string   `gorm:"column:active_archetype_name" json:"active_archetype_name,omitempty"`
	EventMetadata       JSON      `gorm:"column:event_metadata;type:jsonb" json:"event_metadata,omitempty"`
}

func (ReflectionEventLog) TableName() string { return "reflection_event_logs" }

func (e *ReflectionEventLog) BeforeCreate(*gorm.DB) error {
	if e.ID == 0 {
		e.ID = id.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return nil
}
