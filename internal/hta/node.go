// Package hta models the Hierarchical Task Analysis tree that breaks a
// user's goal into actionable steps.
package hta

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Status is the lifecycle state of a node or task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
	StatusPruned    Status = "pruned"
)

var allowedStatuses = []Status{
	StatusPending, StatusActive, StatusCompleted, StatusSkipped, StatusFailed, StatusPruned,
}

// ParseStatus normalizes s and rejects unknown statuses.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(allowedStatuses, st) {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// Done reports whether the status no longer blocks its parent.
func (s Status) Done() bool {
	return s == StatusCompleted || s == StatusPruned
}

// Resource cost levels used for capacity filtering.
const (
	ResourceLow    = "low"
	ResourceMedium = "medium"
	ResourceHigh   = "high"
)

var resourceMap = map[string]float64{
	ResourceLow:    0.3,
	ResourceMedium: 0.6,
	ResourceHigh:   0.9,
}

// ResourceCost maps an estimate label to its capacity demand. Unknown labels cost 0.5.
func ResourceCost(level string) float64 {
	if v, ok := resourceMap[strings.ToLower(level)]; ok {
		return v
	}
	return 0.5
}

type Node struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Status          Status   `json:"status"`
	Priority        float64  `json:"priority"`
	DependsOn       []string `json:"depends_on"`
	EstimatedEnergy string   `json:"estimated_energy"`
	EstimatedTime   string   `json:"estimated_time"`
	RelevantIndexes []string `json:"relevant_indexes,omitempty"`
	Children        []*Node  `json:"children"`
	LinkedTasks     []string `json:"linked_tasks"`
}

// NewNode returns a pending node with medium energy and time estimates.
func NewNode(id, title, description string, priority float64) *Node {
	return &Node{
		ID:              id,
		Title:           title,
		Description:     description,
		Status:          StatusPending,
		Priority:        priority,
		DependsOn:       []string{},
		EstimatedEnergy: ResourceMedium,
		EstimatedTime:   ResourceMedium,
		Children:        []*Node{},
		LinkedTasks:     []string{},
	}
}

func (n *Node) LinkTask(taskID string) {
	if slices.Contains(n.LinkedTasks, taskID) {
		return
	}
	n.LinkedTasks = append(n.LinkedTasks, taskID)
}

func (n *Node) UpdateStatus(s Status) {
	if n.Status == s {
		return
	}
	slog.Debug("hta node status changed", "node_id", n.ID, "from", n.Status, "to", s)
	n.Status = s
}

func (n *Node) MarkCompleted() {
	n.UpdateStatus(StatusCompleted)
}

// AdjustPriorityByContext scales priority by 1 + (capacity - 0.5), never below zero.
func (n *Node) AdjustPriorityByContext(capacity float64) {
	n.Priority *= 1 + (capacity - 0.5)
	if n.Priority < 0 {
		n.Priority = 0
	}
}

// PruneIf marks the node pruned when cond holds.
func (n *Node) PruneIf(cond bool) {
	if cond {
		n.UpdateStatus(StatusPruned)
	}
}

// EnergyCost is the larger of the energy and time demands.
func (n *Node) EnergyCost() float64 {
	return max(ResourceCost(n.EstimatedEnergy), ResourceCost(n.EstimatedTime))
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

func (n *Node) normalize() {
	if n.Status == "" {
		n.Status = StatusPending
	}
	if n.EstimatedEnergy == "" {
		n.EstimatedEnergy = ResourceMedium
	}
	if n.EstimatedTime == "" {
		n.EstimatedTime = ResourceMedium
	}
	if n.DependsOn == nil {
		n.DependsOn = []string{}
	}
	if n.Children == nil {
		n.Children = []*Node{}
	}
	if n.LinkedTasks == nil {
		n.LinkedTasks = []string{}
	}
	for _, c := range n.Children {
		c.normalize()
	}
}
