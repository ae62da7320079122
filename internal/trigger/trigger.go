// Package trigger recognizes the fixed command phrases a user can send
// instead of a reflection.
package trigger

import (
	"fmt"
	"strings"

	"forest.app/forest/internal/domain"
)

type Action string

const (
	ActionActivate        Action = "activate"
	ActionChangeDecor     Action = "change_decor"
	ActionAuditScores     Action = "audit_scores"
	ActionShowTodo        Action = "show_todo"
	ActionIntegrateMemory Action = "integrate_memory"
)

var phrases = map[string]Action{
	"activate the forest":                    ActionActivate,
	"forest, change the decor":               ActionChangeDecor,
	"forest, audit the scores":               ActionAuditScores,
	"forest, show me the running to-do list": ActionShowTodo,
	"forest, integrate memory":               ActionIntegrateMemory,
}

const NoTrigger = "No trigger detected."

// Env is what the handler needs to answer a phrase.
type Env struct {
	Backlog []domain.Task
	// Context is the latest memory context, appended to the activation reply.
	Context string
}

type Result struct {
	Triggered bool   `json:"triggered"`
	Action    Action `json:"action,omitempty"`
	Message   string `json:"message"`
}

// Detect matches input against the known phrases, ignoring case and
// surrounding whitespace.
func Detect(input string) (Action, bool) {
	a, ok := phrases[strings.ToLower(strings.TrimSpace(input))]
	return a, ok
}

func Handle(input string, env Env) Result {
	action, ok := Detect(input)
	if !ok {
		return Result{Message: NoTrigger}
	}

	var msg string
	switch action {
	case ActionActivate:
		msg = "Forest activated. All systems are online."
		if env.Context != "" {
			msg += "\n" + env.Context
		}
	case ActionChangeDecor:
		msg = "Decor changes applied: persistent task commitment enabled and daily-specific tags activated."
	case ActionAuditScores:
		msg = "Scores audited: XP, Shadow, Capacity, and Development Index details are logged."
	case ActionShowTodo:
		msg = renderTodo(env.Backlog)
	case ActionIntegrateMemory:
		msg = "Memory integrated successfully."
	}
	return Result{Triggered: true, Action: action, Message: msg}
}

func renderTodo(backlog []domain.Task) string {
	if len(backlog) == 0 {
		return "No tasks found."
	}
	var b strings.Builder
	b.WriteString("Current To-Do List:")
	for _, t := range backlog {
		fmt.Fprintf(&b, "\nID: %s, Title: %s", t.ID, t.Title)
	}
	return b.String()
}
