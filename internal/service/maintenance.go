package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"forest.app/forest/common"
	"forest.app/forest/internal/brain"
	"forest.app/forest/internal/seed"
	"forest.app/forest/internal/store"
)

// MaintenanceService holds the operations run by the worker and forestctl
// rather than by the API.
type MaintenanceService interface {
	// Rebalance regenerates the user's HTA tree after completedNodeID.
	Rebalance(ctx context.Context, userID, completedNodeID string) error
	// ExportFlow writes the user's compressed snapshot history into dir and
	// returns the file path.
	ExportFlow(ctx context.Context, userID, dir string) (string, error)
	// ImportFlow replaces the user's compressed snapshot history with the
	// records in path.
	ImportFlow(ctx context.Context, userID, path string) error
	PlantSeed(ctx context.Context, userID, intention, domain string) (*seed.Seed, error)
	EvolveSeed(ctx context.Context, userID, seedID, evolution, intention string) error
}

type maintenanceService struct {
	snapshots store.SnapshotStore
	orch      Orchestrator
}

func NewMaintenanceService(snapshots store.SnapshotStore, orch Orchestrator) MaintenanceService {
	return &maintenanceService{snapshots: snapshots, orch: orch}
}

func (s *maintenanceService) Rebalance(ctx context.Context, userID, completedNodeID string) error {
	snap, row, err := loadSnapshot(ctx, s.snapshots, userID, s.orch.Now())
	if err != nil {
		return err
	}
	if err := s.orch.Rebalance(ctx, snap, completedNodeID); err != nil {
		return err
	}
	_, err = saveSnapshot(ctx, s.snapshots, userID, snap, row)
	return err
}

// FlowExportPath is where the compressed history of userID is written in dir.
func FlowExportPath(dir, userID string) (string, error) {
	name, err := common.Slugify(userID, "user")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".json"), nil
}

func (s *maintenanceService) ExportFlow(ctx context.Context, userID, dir string) (string, error) {
	snap, _, err := loadSnapshot(ctx, s.snapshots, userID, s.orch.Now())
	if err != nil {
		return "", err
	}
	st, err := brain.LoadStates(snap, s.orch.Archetypes())
	if err != nil {
		slog.WarnContext(ctx, "continuing with partially loaded states", "error", err)
	}

	path, err := FlowExportPath(dir, userID)
	if err != nil {
		return "", err
	}
	if err := st.Flow.Export(path); err != nil {
		return "", fmt.Errorf("exporting snapshot flow: %w", err)
	}
	slog.InfoContext(ctx, "snapshot flow exported", "path", path, "records", len(st.Flow.Records))
	return path, nil
}

func (s *maintenanceService) ImportFlow(ctx context.Context, userID, path string) error {
	snap, row, err := loadSnapshot(ctx, s.snapshots, userID, s.orch.Now())
	if err != nil {
		return err
	}
	st, err := brain.LoadStates(snap, s.orch.Archetypes())
	if err != nil {
		slog.WarnContext(ctx, "continuing with partially loaded states", "error", err)
	}

	if err := st.Flow.Import(path); err != nil {
		return fmt.Errorf("importing snapshot flow: %w", err)
	}
	if err := st.Save(snap); err != nil {
		return fmt.Errorf("saving component states: %w", err)
	}
	_, err = saveSnapshot(ctx, s.snapshots, userID, snap, row)
	return err
}

func (s *maintenanceService) PlantSeed(ctx context.Context, userID, intention, domain string) (*seed.Seed, error) {
	snap, row, err := loadSnapshot(ctx, s.snapshots, userID, s.orch.Now())
	if err != nil {
		return nil, err
	}
	planted, err := s.orch.PlantSeed(ctx, snap, intention, domain, seed.Context{})
	if err != nil {
		return nil, err
	}
	if _, err := saveSnapshot(ctx, s.snapshots, userID, snap, row); err != nil {
		return nil, err
	}
	return planted, nil
}

func (s *maintenanceService) EvolveSeed(ctx context.Context, userID, seedID, evolution, intention string) error {
	snap, row, err := loadSnapshot(ctx, s.snapshots, userID, s.orch.Now())
	if err != nil {
		return err
	}
	if err := s.orch.EvolveSeed(ctx, snap, seedID, evolution, intention); err != nil {
		return err
	}
	_, err = saveSnapshot(ctx, s.snapshots, userID, snap, row)
	return err
}
