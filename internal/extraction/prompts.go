package extraction

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Prompts holds the task instructions sent with each extraction call
type Prompts struct {
	Summary     string `yaml:"summary"`
	Decisions   string `yaml:"decisions"`
	ActionItems string `yaml:"action_items"`
}

// DefaultPrompts returns the compiled-in instructions
func DefaultPrompts() Prompts {
	return Prompts{
		Summary: "Summarize this meeting transcript in 4-5 concise sentences.",
		Decisions: `Extract all key decisions from this meeting transcript as a JSON list of strings.
Output only JSON: ["decision1", "decision2"]`,
		ActionItems: `Extract action items from this meeting transcript. For each, auto-assign an owner from the participants.
If no clear owner, use 'Unassigned'. Infer due dates as YYYY-MM-DD if mentioned, else use null.
Output only JSON as an array of objects: [{"task": "str", "owner": "str", "due_date": "str or null"}]`,
	}
}

// LoadPrompts reads a YAML prompt file. Fields missing from the file keep
// their default instruction
func LoadPrompts(path string) (Prompts, error) {
	prompts := DefaultPrompts()
	if path == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return prompts, fmt.Errorf("failed to read prompt file: %w", err)
	}

	var override Prompts
	if err := yaml.Unmarshal(data, &override); err != nil {
		return prompts, fmt.Errorf("failed to parse prompt file: %w", err)
	}

	if override.Summary != "" {
		prompts.Summary = override.Summary
	}
	if override.Decisions != "" {
		prompts.Decisions = override.Decisions
	}
	if override.ActionItems != "" {
		prompts.ActionItems = override.ActionItems
	}

	return prompts, nil
}
