package llm

import (
	"fmt"
	"strings"
)

// PromptBuilder assembles a task instruction with labelled facts and
// free-text sections into a single prompt
type PromptBuilder struct {
	instruction string
	facts       [][2]string
	sections    [][2]string
}

// NewPromptBuilder creates a new prompt builder with a base instruction
func NewPromptBuilder(instruction string) *PromptBuilder {
	return &PromptBuilder{instruction: strings.TrimSpace(instruction)}
}

// AddFact adds a key-value fact to the prompt, kept in insertion order
func (pb *PromptBuilder) AddFact(key, value string) *PromptBuilder {
	pb.facts = append(pb.facts, [2]string{key, value})
	return pb
}

// AddSection appends a titled block of text such as a transcript
func (pb *PromptBuilder) AddSection(title, body string) *PromptBuilder {
	pb.sections = append(pb.sections, [2]string{title, body})
	return pb
}

// Build constructs the final prompt
func (pb *PromptBuilder) Build() string {
	parts := []string{pb.instruction}

	for _, fact := range pb.facts {
		parts = append(parts, fmt.Sprintf("%s: %s", fact[0], fact[1]))
	}

	for _, section := range pb.sections {
		parts = append(parts, fmt.Sprintf("\n%s:\n%s", section[0], section[1]))
	}

	return strings.Join(parts, "\n")
}
