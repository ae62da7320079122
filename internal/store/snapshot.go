package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"forest.app/forest/internal/model"
)

type snapshotStore struct {
	orm *gorm.DB
}

func newSnapshotStore(orm *gorm.DB) SnapshotStore {
	return &snapshotStore{orm: orm}
}

func (s *snapshotStore) Latest(ctx context.Context, userID string) (*model.MemorySnapshot, error) {
	var snap model.MemorySnapshot
	err := s.orm.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Take(&snap).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &snap, nil
}

func (s *snapshotStore) Create(ctx context.Context, snap *model.MemorySnapshot) error {
	return s.orm.WithContext(ctx).Create(snap).Error
}

// Update rewrites the snapshot document and bumps updated_at.
func (s *snapshotStore) Update(ctx context.Context, snap *model.MemorySnapshot) error {
	res := s.orm.WithContext(ctx).
		Model(snap).
		Select("snapshot_data", "updated_at").
		Updates(snap)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
