package hta

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNodeNotFound = errors.New("hta node not found")
	ErrRemoveRoot   = errors.New("cannot remove the root node")
	ErrEmptyTree    = errors.New("hta tree has no root")
)

// Tree is an HTA tree rooted at the user's goal. It serializes as {"root": {...}}.
type Tree struct {
	Root *Node `json:"root,omitempty"`
}

func NewTree(root *Node) *Tree {
	return &Tree{Root: root}
}

// ParseTree decodes a serialized tree and fills defaults for missing fields.
func ParseTree(data []byte) (*Tree, error) {
	var t Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decoding hta tree: %w", err)
	}
	if t.Root != nil {
		if t.Root.ID == "" {
			return nil, fmt.Errorf("decoding hta tree: root node has no id")
		}
		t.Root.normalize()
	}
	return &t, nil
}

// Clone returns a deep copy.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return &Tree{}
	}
	clone, err := ParseTree(data)
	if err != nil {
		return &Tree{}
	}
	return clone
}

// Flatten lists every node in pre-order.
func (t *Tree) Flatten() []*Node {
	if t == nil || t.Root == nil {
		return nil
	}
	var nodes []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		nodes = append(nodes, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(t.Root)
	return nodes
}

// Depths maps node ids to their depth below the root (root = 0).
func (t *Tree) Depths() map[string]int {
	depths := make(map[string]int)
	if t == nil || t.Root == nil {
		return depths
	}
	var walk func(n *Node, d int)
	walk = func(n *Node, d int) {
		depths[n.ID] = d
		for _, c := range n.Children {
			walk(c, d+1)
		}
	}
	walk(t.Root, 0)
	return depths
}

func (t *Tree) Find(id string) *Node {
	for _, n := range t.Flatten() {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Add appends child under the node with parentID.
func (t *Tree) Add(parentID string, child *Node) error {
	parent := t.Find(parentID)
	if parent == nil {
		return fmt.Errorf("adding under %q: %w", parentID, ErrNodeNotFound)
	}
	child.normalize()
	parent.Children = append(parent.Children, child)
	return nil
}

// Remove detaches the node (and its subtree). The root cannot be removed.
func (t *Tree) Remove(id string) error {
	if t == nil || t.Root == nil {
		return ErrEmptyTree
	}
	if t.Root.ID == id {
		return ErrRemoveRoot
	}
	var remove func(parent *Node) bool
	remove = func(parent *Node) bool {
		for i, c := range parent.Children {
			if c.ID == id {
				parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
				return true
			}
			if remove(c) {
				return true
			}
		}
		return false
	}
	if !remove(t.Root) {
		return fmt.Errorf("removing %q: %w", id, ErrNodeNotFound)
	}
	return nil
}

// PropagateStatus marks every node whose children are all completed or
// pruned as completed, bottom-up.
func (t *Tree) PropagateStatus() {
	if t == nil || t.Root == nil {
		return
	}
	var propagate func(n *Node) bool
	propagate = func(n *Node) bool {
		if n.IsLeaf() {
			return n.Status.Done()
		}
		allDone := true
		for _, c := range n.Children {
			if !propagate(c) {
				allDone = false
			}
		}
		if allDone && !n.Status.Done() {
			n.MarkCompleted()
		}
		return n.Status.Done()
	}
	propagate(t.Root)
}

// DependenciesMet reports whether every dependency of n is completed.
// Ancestors of n count as met: a parent only completes once its children
// have, so waiting on it would deadlock the subtree.
func (t *Tree) DependenciesMet(n *Node) bool {
	if len(n.DependsOn) == 0 {
		return true
	}
	ancestors := t.ancestors(n.ID)
	for _, depID := range n.DependsOn {
		if ancestors[depID] {
			continue
		}
		dep := t.Find(depID)
		if dep == nil || dep.Status != StatusCompleted {
			return false
		}
	}
	return true
}

func (t *Tree) ancestors(id string) map[string]bool {
	result := make(map[string]bool)
	if t == nil || t.Root == nil {
		return result
	}
	var path []string
	var walk func(n *Node) bool
	walk = func(n *Node) bool {
		if n.ID == id {
			for _, p := range path {
				result[p] = true
			}
			return true
		}
		path = append(path, n.ID)
		for _, c := range n.Children {
			if walk(c) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	walk(t.Root)
	return result
}
