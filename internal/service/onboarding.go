package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"forest.app/forest/internal/domain"
	"forest.app/forest/internal/snapshot"
	"forest.app/forest/internal/store"
)

// Onboarding statuses reported to the client.
const (
	StatusGoalSet          = "Goal Set"
	StatusGoalAlreadySet   = "Goal Already Set"
	StatusActivated        = "Activated"
	StatusAlreadyActivated = "Already Activated"
	StatusCompleted        = "Completed"
)

type OnboardingResult struct {
	Status      string
	Message     string
	RefinedGoal string
	FirstTask   *domain.Task
}

type OnboardingService interface {
	// SetGoal refines and stores the user's North Star. Users without a
	// snapshot get their first one here.
	SetGoal(ctx context.Context, userID, intention string) (*OnboardingResult, error)
	// AddContext builds the initial plan from a context reflection and
	// activates the user.
	AddContext(ctx context.Context, userID, contextReflection string) (*OnboardingResult, error)
}

type onboardingService struct {
	snapshots store.SnapshotStore
	orch      Orchestrator
}

func NewOnboardingService(snapshots store.SnapshotStore, orch Orchestrator) OnboardingService {
	return &onboardingService{snapshots: snapshots, orch: orch}
}

func (s *onboardingService) SetGoal(ctx context.Context, userID, intention string) (*OnboardingResult, error) {
	snap, row, err := loadSnapshot(ctx, s.snapshots, userID, s.orch.Now())
	if err != nil {
		if !errors.Is(err, ErrSnapshotNotFound) {
			return nil, err
		}
		snap = snapshot.New(s.orch.Now())
	}

	if snap.ActivatedState.GoalSet {
		slog.WarnContext(ctx, "goal already set")
		return &OnboardingResult{
			Status:  StatusGoalAlreadySet,
			Message: "Goal already set. Use /onboarding/add_context or /command.",
		}, nil
	}

	goal, err := s.orch.SetGoal(ctx, snap, intention)
	if err != nil {
		return nil, fmt.Errorf("setting goal: %w", err)
	}
	if _, err := saveSnapshot(ctx, s.snapshots, userID, snap, row); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "onboarding goal set", "goal_title", goal.Title)
	return &OnboardingResult{
		Status:      StatusGoalSet,
		Message:     "Your North Star goal has been set. Now, please provide initial context via /onboarding/add_context.",
		RefinedGoal: fmt.Sprintf("%s: %s", goal.Title, goal.Description),
	}, nil
}

func (s *onboardingService) AddContext(ctx context.Context, userID, contextReflection string) (*OnboardingResult, error) {
	snap, row, err := loadSnapshot(ctx, s.snapshots, userID, s.orch.Now())
	if err != nil {
		return nil, err
	}

	if !snap.ActivatedState.GoalSet {
		return nil, ErrGoalNotSet
	}
	if snap.ActivatedState.Activated {
		return &OnboardingResult{
			Status:  StatusAlreadyActivated,
			Message: "Onboarding already complete. Use /command.",
		}, nil
	}

	act, err := s.orch.Activate(ctx, snap, contextReflection)
	if err != nil {
		return nil, fmt.Errorf("activating user: %w", err)
	}
	if _, err := saveSnapshot(ctx, s.snapshots, userID, snap, row); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "onboarding complete, user activated")
	return &OnboardingResult{
		Status:      StatusActivated,
		Message:     "Onboarding complete! Your initial path is set.",
		RefinedGoal: fmt.Sprintf("%s: %s", act.Goal.Title, act.Goal.Description),
		FirstTask:   act.FirstTask,
	}, nil
}
