// Package agent runs the invitation assistant: a root agent that collects the
// invitation and sub-agents that dispatch it, driving an LLM provider through
// function calling while the workflow decides which moves are allowed.
package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Rrens/invitation-agent/internal/invitation"
	"github.com/Rrens/invitation-agent/internal/llm"
	"github.com/google/uuid"
)

// TransferToolName is the built-in delegation tool every agent gets.
const TransferToolName = "transfer_to_agent"

// ToolContext is the per-turn context a tool runs against. State is the
// working copy of the session state; tools mutate it in place.
type ToolContext struct {
	SessionID uuid.UUID
	State     *invitation.State
	Policy    invitation.Policy
}

// HandlerFunc executes a tool call.
type HandlerFunc func(ctx context.Context, tc *ToolContext, args Args) Result

// Tool is a function an agent may call.
type Tool struct {
	Name        string
	Description string
	Parameters  *llm.Schema
	Handler     HandlerFunc
}

func (t Tool) declaration() llm.Tool {
	return llm.Tool{Name: t.Name, Description: t.Description, Parameters: t.Parameters}
}

// Agent is one role in the conversation: its prompt, its tools and the agents
// it may hand control to.
type Agent struct {
	Name        string
	Description string
	Instruction func(state *invitation.State) string
	Tools       []Tool
	SubAgents   []string
}

func (a *Agent) tool(name string) (Tool, bool) {
	for _, t := range a.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// Team is the set of agents of one deployment.
type Team struct {
	root   string
	agents map[string]*Agent
}

// NewTeam builds a team around root. Every sub-agent becomes a delegation
// target of the root agent.
func NewTeam(root *Agent, subAgents ...*Agent) (*Team, error) {
	t := &Team{root: root.Name, agents: map[string]*Agent{root.Name: root}}
	root.SubAgents = nil
	for _, sub := range subAgents {
		if _, exists := t.agents[sub.Name]; exists {
			return nil, fmt.Errorf("duplicate agent %q", sub.Name)
		}
		t.agents[sub.Name] = sub
		root.SubAgents = append(root.SubAgents, sub.Name)
	}
	for _, a := range t.agents {
		names := make(map[string]bool)
		for _, tool := range a.Tools {
			if tool.Name == TransferToolName || names[tool.Name] {
				return nil, fmt.Errorf("agent %q: tool %q declared twice", a.Name, tool.Name)
			}
			names[tool.Name] = true
		}
	}
	return t, nil
}

// Root returns the root agent.
func (t *Team) Root() *Agent {
	return t.agents[t.root]
}

// Get returns the named agent, falling back to the root agent.
func (t *Team) Get(name string) *Agent {
	if a, ok := t.agents[name]; ok {
		return a
	}
	return t.Root()
}

// Has reports whether the team contains the named agent.
func (t *Team) Has(name string) bool {
	_, ok := t.agents[name]
	return ok
}

// Names lists the team's agents, sorted.
func (t *Team) Names() []string {
	names := make([]string, 0, len(t.agents))
	for name := range t.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// targets returns the agents a may transfer to.
func (t *Team) targets(a *Agent) []*Agent {
	if a.Name != t.root {
		return []*Agent{t.Root()}
	}
	out := make([]*Agent, 0, len(a.SubAgents))
	for _, name := range a.SubAgents {
		out = append(out, t.agents[name])
	}
	return out
}

// declarations is the tool list sent to the model for a.
func (t *Team) declarations(a *Agent) []llm.Tool {
	decls := make([]llm.Tool, 0, len(a.Tools)+1)
	for _, tool := range a.Tools {
		decls = append(decls, tool.declaration())
	}

	targets := t.targets(a)
	if len(targets) == 0 {
		return decls
	}

	names := make([]string, 0, len(targets))
	lines := make([]string, 0, len(targets))
	for _, target := range targets {
		names = append(names, target.Name)
		lines = append(lines, fmt.Sprintf("%s: %s", target.Name, target.Description))
	}

	decls = append(decls, llm.Tool{
		Name:        TransferToolName,
		Description: "Transfer the conversation to another agent. Available agents: " + strings.Join(lines, "; "),
		Parameters: llm.Object(map[string]*llm.Schema{
			"agent_name": {
				Type:        llm.TypeString,
				Description: "Name of the agent to transfer to.",
				Enum:        names,
			},
		}, "agent_name"),
	})
	return decls
}
