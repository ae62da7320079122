package service

import "forest.app/forest/internal/store"

type Services struct {
	stores   *store.Stores
	txRunner TxRunner
	orch     Orchestrator
}

func NewServices(stores *store.Stores, txRunner TxRunner, orch Orchestrator) *Services {
	return &Services{
		stores:   stores,
		txRunner: txRunner,
		orch:     orch,
	}
}

func (s *Services) Onboarding() OnboardingService {
	return NewOnboardingService(s.stores.Snapshots(), s.orch)
}

func (s *Services) Commands() CommandService {
	return NewCommandService(s.stores.Snapshots(), s.txRunner, s.orch)
}

func (s *Services) Completions() CompletionService {
	return NewCompletionService(s.stores.Snapshots(), s.txRunner, s.orch)
}

func (s *Services) Snapshots() SnapshotService {
	return NewSnapshotService(s.stores.Snapshots(), s.stores.TaskEvents(), s.stores.ReflectionEvents())
}

func (s *Services) Maintenance() MaintenanceService {
	return NewMaintenanceService(s.stores.Snapshots(), s.orch)
}
