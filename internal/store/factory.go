package store

import "gorm.io/gorm"

type Stores struct {
	orm *gorm.DB
}

func NewStores(orm *gorm.DB) *Stores {
	return &Stores{orm: orm}
}

func (s *Stores) Snapshots() SnapshotStore {
	return newSnapshotStore(s.orm)
}

func (s *Stores) TaskEvents() TaskEventStore {
	return newTaskEventStore(s.orm)
}

func (s *Stores) ReflectionEvents() ReflectionEventStore {
	return newReflectionEventStore(s.orm)
}
