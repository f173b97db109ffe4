// Package agent implements the behavioral agents behind each session mode
// and the registry the gateway dispatches through.
//
// Every agent answers one capability: given a prompt and session context,
// produce a response string, optionally calling the LLM provider. New modes
// plug in by registering another Agent; the dispatcher never changes.
package agent

import (
	"context"

	"github.com/atelieredu/traza/pkg/cognitive"
	"github.com/atelieredu/traza/pkg/llm"
)

// historyWindow is how many recent traces an agent replays into the
// provider conversation.
const historyWindow = 5

// Request carries everything an agent may use to respond.
type Request struct {
	Prompt  string
	Session *cognitive.Session

	// RecentTraces is the tail of the session's trace sequence, oldest
	// first. Blocked traces carry no usable assistant turn and are skipped
	// when building provider history.
	RecentTraces []*cognitive.Trace
}

// Agent is one mode's behavior.
type Agent interface {
	// Mode is the session mode this agent serves.
	Mode() cognitive.AgentMode

	// Respond produces the assistant response for the prompt. Provider
	// failures are returned as-is; the gateway decides how to surface them.
	Respond(ctx context.Context, req Request) (string, error)
}

// Registry maps session modes to agents.
type Registry struct {
	agents map[cognitive.AgentMode]Agent
}

// NewRegistry builds a registry from the given agents. Later agents with
// the same mode replace earlier ones.
func NewRegistry(agents ...Agent) *Registry {
	r := &Registry{agents: make(map[cognitive.AgentMode]Agent, len(agents))}
	for _, a := range agents {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the agent for its mode.
func (r *Registry) Register(a Agent) {
	r.agents[a.Mode()] = a
}

// Get returns the agent for mode.
func (r *Registry) Get(mode cognitive.AgentMode) (Agent, bool) {
	a, ok := r.agents[mode]
	return a, ok
}

// Modes lists the registered modes.
func (r *Registry) Modes() []cognitive.AgentMode {
	out := make([]cognitive.AgentMode, 0, len(r.agents))
	for m := range r.agents {
		out = append(out, m)
	}
	return out
}

// conversation turns the request into a provider message history: the last
// historyWindow unblocked traces as user/assistant pairs, then the current
// prompt.
func conversation(req Request) []llm.Message {
	recent := req.RecentTraces
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}

	var messages []llm.Message
	for _, t := range recent {
		if t.Blocked() {
			continue
		}
		messages = append(messages, llm.UserMessage(t.Content))
		if t.Response != "" {
			messages = append(messages, llm.AssistantMessage(t.Response))
		}
	}
	return append(messages, llm.UserMessage(req.Prompt))
}
