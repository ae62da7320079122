package store

import (
	"context"

	"gorm.io/gorm"

	"forest.app/forest/internal/model"
)

type taskEventStore struct {
	orm *gorm.DB
}

func newTaskEventStore(orm *gorm.DB) TaskEventStore {
	return &taskEventStore{orm: orm}
}

func (s *taskEventStore) Create(ctx context.Context, log *model.TaskEventLog) error {
	return s.orm.WithContext(ctx).Create(log).Error
}

func (s *taskEventStore) ListByTask(ctx context.Context, taskID string) ([]model.TaskEventLog, error) {
	var logs []model.TaskEventLog
	err := s.orm.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("timestamp ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

type reflectionEventStore struct {
	orm *gorm.DB
}

func newReflectionEventStore(orm *gorm.DB) ReflectionEventStore {
	return &reflectionEventStore{orm: orm}
}

func (s *reflectionEventStore) Create(ctx context.Context, log *model.ReflectionEventLog) error {
	return s.orm.WithContext(ctx).Create(log).Error
}

func (s *reflectionEventStore) ListByReflection(ctx context.Context, reflectionID string) ([]model.ReflectionEventLog, error) {
	var logs []model.ReflectionEventLog
	err := s.orm.WithContext(ctx).
		Where("reflection_id = ?", reflectionID).
		Order("timestamp ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
