package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"forest.app/forest/common/llm"
	"forest.app/forest/internal/hta"
)

var ErrInvalidHTA = errors.New("llm returned an invalid hta tree")

const skeletonSystemPrompt = `You create the initial plan (a Hierarchical Task Analysis tree) for a user's personal growth goal. The goal is the root node.
1. Generate the first level of child nodes: 2-4 logical steps or phases branching directly from the root.
2. Each child has id (unique placeholder such as node_L1_1), title (concise), description (1-2 sentences), priority (0.0-1.0, higher is more important), depends_on (only the root id), estimated_energy and estimated_time (low, medium or high).
3. Include one child focused on exploration or curiosity relevant to the goal, with moderate priority.
Return the root node, with its original details and the generated children, under hta_root.`

const rebalanceSystemPrompt = `You adapt a user's Hierarchical Task Analysis (HTA) plan to their progress.
1. Analyze the impact of completing the given node.
2. Re-evaluate priorities, statuses (mark the completed node, check its parents) and relevance of the remaining nodes.
3. If the completion suggests an unexpected but relevant new step, add it as a new child node.
4. Prune branches that are clearly irrelevant now.
Return the complete updated tree under hta_root. Keep existing node ids.`

type htaResponse struct {
	HTARoot json.RawMessage `json:"hta_root"`
}

// htaSchema is written by hand because the node type is recursive.
var htaSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []string{"hta_root"},
	"properties": map[string]any{
		"hta_root": map[string]any{"$ref": "#/$defs/node"},
	},
	"$defs": map[string]any{
		"node": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []string{"id", "title", "description", "priority", "depends_on", "estimated_energy", "estimated_time", "children"},
			"properties": map[string]any{
				"id":               map[string]any{"type": "string"},
				"title":            map[string]any{"type": "string"},
				"description":      map[string]any{"type": "string"},
				"status":           map[string]any{"type": "string", "enum": []string{"pending", "active", "completed", "skipped", "failed", "pruned"}},
				"priority":         map[string]any{"type": "number"},
				"depends_on":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"estimated_energy": map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}},
				"estimated_time":   map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}},
				"children":         map[string]any{"type": "array", "items": map[string]any{"$ref": "#/$defs/node"}},
			},
		},
	},
}

type HTAPlanner struct {
	llm llm.Client
}

func NewHTAPlanner(client llm.Client) *HTAPlanner {
	return &HTAPlanner{llm: client}
}

// Skeleton asks the LLM for the first level of steps under root.
func (p *HTAPlanner) Skeleton(ctx context.Context, root *hta.Node, contextReflection string, userContext map[string]any) (*hta.Tree, error) {
	rootJSON, _ := json.Marshal(map[string]any{"id": root.ID, "title": root.Title, "description": root.Description})
	ctxJSON, _ := json.Marshal(userContext)

	tree, err := p.call(ctx, "hta_skeleton", skeletonSystemPrompt, fmt.Sprintf(
		"Root goal: %s\nUser's initial context reflection:\n%s\nUser context summary: %s\nCurrent level/stage: Awakening (initial)",
		rootJSON, contextReflection, ctxJSON))
	if err != nil {
		return nil, err
	}
	if tree.Root.ID != root.ID {
		slog.WarnContext(ctx, "llm changed the root node id, restoring it", "llm_root_id", tree.Root.ID)
		tree.Root.ID = root.ID
	}
	return tree, nil
}

// Rebalance asks the LLM to adapt current after completedNodeID was finished.
// The returned tree keeps the original root id and marks the completed node.
func (p *HTAPlanner) Rebalance(ctx context.Context, current *hta.Tree, completedNodeID string, userContext map[string]any, stage string) (*hta.Tree, error) {
	if current == nil || current.Root == nil {
		return nil, hta.ErrEmptyTree
	}
	treeJSON, _ := json.MarshalIndent(current.Root, "", "  ")
	ctxJSON, _ := json.Marshal(userContext)

	tree, err := p.call(ctx, "hta_rebalance", rebalanceSystemPrompt, fmt.Sprintf(
		"The user just completed the task linked to HTA node %q.\nCurrent HTA tree:\n%s\n\nUser context summary: %s\nCurrent level/stage: %s",
		completedNodeID, treeJSON, ctxJSON, stage))
	if err != nil {
		return nil, err
	}

	tree.Root.ID = current.Root.ID
	if n := tree.Find(completedNodeID); n != nil {
		n.MarkCompleted()
	}
	carryLinkedTasks(current, tree)
	tree.PropagateStatus()
	return tree, nil
}

func (p *HTAPlanner) call(ctx context.Context, schemaName, system, user string) (*hta.Tree, error) {
	var out htaResponse
	_, err := p.llm.Chat(ctx, llm.Request{
		SystemPrompt: system,
		UserPrompt:   user,
		SchemaName:   schemaName,
		Schema:       htaSchema,
		MaxTokens:    2000,
		Temperature:  llm.Temp(0.4),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", schemaName, err)
	}
	if len(out.HTARoot) == 0 || string(out.HTARoot) == "null" {
		return nil, fmt.Errorf("%s: %w: missing hta_root", schemaName, ErrInvalidHTA)
	}

	tree, err := hta.ParseTree([]byte(`{"root":` + string(out.HTARoot) + `}`))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", schemaName, ErrInvalidHTA, err)
	}
	if tree.Root == nil {
		return nil, fmt.Errorf("%s: %w: empty root", schemaName, ErrInvalidHTA)
	}
	dedupeIDs(tree)
	return tree, nil
}

// dedupeIDs gives a fresh id to every node whose id is empty or already seen.
func dedupeIDs(t *hta.Tree) {
	seen := map[string]bool{}
	for _, n := range t.Flatten() {
		if n.ID == "" || seen[n.ID] {
			n.ID = uuid.NewString()
		}
		seen[n.ID] = true
	}
}

// carryLinkedTasks copies task links from nodes of prev that survive in next.
func carryLinkedTasks(prev, next *hta.Tree) {
	for _, old := range prev.Flatten() {
		n := next.Find(old.ID)
		if n == nil {
			continue
		}
		for _, id := range old.LinkedTasks {
			n.LinkTask(id)
		}
	}
}
