package model

import (
	"time"

	"gorm.io/gorm"

	"forest.app/forest/common/id"
)

// MemorySnapshot is one saved version of a user's snapshot document. The
// newest row by UpdatedAt is the current state.
type MemorySnapshot struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	UserID       string    `gorm:"column:user_id;not null;index" json:"user_id"`
	SnapshotData JSON      `gorm:"column:snapshot_data;type:jsonb;not null" json:"snapshot_data"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (MemorySnapshot) TableName() string { return "memory_snapshots" }

func (s *MemorySnapshot) BeforeCreate(*gorm.DB) error {
	if s.ID == 0 {
		s.ID = id.New()
	}
	return nil
}
