package service

import "errors"

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrGoalNotSet       = errors.New("goal not set")
	ErrNotActivated     = errors.New("onboarding not complete")
)
