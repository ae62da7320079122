package handler_test

import (
	"context"

	"forest.app/forest/internal/brain"
	"forest.app/forest/internal/model"
	"forest.app/forest/internal/service"
	"forest.app/forest/internal/snapshot"
)

type mockOnboardingService struct {
	setGoalFn    func(ctx context.Context, userID, intention string) (*service.OnboardingResult, error)
	addContextFn func(ctx context.Context, userID, contextReflection string) (*service.OnboardingResult, error)
}

func (m *mockOnboardingService) SetGoal(ctx context.Context, userID, intention string) (*service.OnboardingResult, error) {
	if m.setGoalFn != nil {
		return m.setGoalFn(ctx, userID, intention)
	}
	return &service.OnboardingResult{}, nil
}

func (m *mockOnboardingService) AddContext(ctx context.Context, userID, contextReflection string) (*service.OnboardingResult, error) {
	if m.addContextFn != nil {
		return m.addContextFn(ctx, userID, contextReflection)
	}
	return &service.OnboardingResult{}, nil
}

type mockCommandService struct {
	processFn func(ctx context.Context, userID, command string) (*service.CommandResult, error)
}

func (m *mockCommandService) Process(ctx context.Context, userID, command string) (*service.CommandResult, error) {
	if m.processFn != nil {
		return m.processFn(ctx, userID, command)
	}
	return &service.CommandResult{}, nil
}

type mockCompletionService struct {
	completeFn func(ctx context.Context, userID, taskID string, success bool) (*brain.CompletionResult, error)
}

func (m *mockCompletionService) Complete(ctx context.Context, userID, taskID string, success bool) (*brain.CompletionResult, error) {
	if m.completeFn != nil {
		return m.completeFn(ctx, userID, taskID, success)
	}
	return &brain.CompletionResult{}, nil
}

type mockSnapshotService struct {
	latestFn           func(ctx context.Context, userID string) (*snapshot.Snapshot, error)
	taskEventsFn       func(ctx context.Context, taskID string) ([]model.TaskEventLog, error)
	reflectionEventsFn func(ctx context.Context, reflectionID string) ([]model.ReflectionEventLog, error)
}

func (m *mockSnapshotService) Latest(ctx context.Context, userID string) (*snapshot.Snapshot, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx, userID)
	}
	return nil, service.ErrSnapshotNotFound
}

func (m *mockSnapshotService) TaskEvents(ctx context.Context, taskID string) ([]model.TaskEventLog, error) {
	if m.taskEventsFn != nil {
		return m.taskEventsFn(ctx, taskID)
	}
	return nil, nil
}

func (m *mockSnapshotService) ReflectionEvents(ctx context.Context, reflectionID string) ([]model.ReflectionEventLog, error) {
	if m.reflectionEventsFn != nil {
		return m.reflectionEventsFn(ctx, reflectionID)
	}
	return nil, nil
}
