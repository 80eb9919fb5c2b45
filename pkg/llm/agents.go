package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/nlpodyssey/openai-agents-go/agents"
)

// AgentProvider implements Provider on top of an openai-agents-go runner.
// The runner reads its credentials from OPENAI_API_KEY
type AgentProvider struct {
	agent *agents.Agent
}

// NewAgentProvider creates a single-turn agent with the given instructions
func NewAgentProvider(name, instructions, model string) *AgentProvider {
	agent := agents.New(name).
		WithInstructions(instructions).
		WithModel(model)

	return &AgentProvider{agent: agent}
}

// Generate runs the agent once with prompt as input
func (p *AgentProvider) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := agents.Run(ctx, p.agent, prompt)
	if err != nil {
		return "", Classify(fmt.Errorf("agent execution failed: %w", err))
	}

	if result == nil || result.FinalOutput == nil {
		return "", nil
	}

	return strings.TrimSpace(fmt.Sprint(result.FinalOutput)), nil
}
