// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"
)

// Rule answers prompts that contain Match
type Rule struct {
	Match    string
	Response string
	Err      error
}

// FakeProvider answers prompts from a list of rules, first match wins.
// Prompts that match no rule get Default / DefaultErr
type FakeProvider struct {
	Rules      []Rule
	Default    string
	DefaultErr error

	mu      sync.Mutex
	prompts []string
}

// Generate records the prompt and returns the scripted answer
func (f *FakeProvider) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	for _, rule := range f.Rules {
		if strings.Contains(prompt, rule.Match) {
			return rule.Response, rule.Err
		}
	}
	return f.Default, f.DefaultErr
}

// Calls returns how many prompts were received
func (f *FakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// Prompts returns a copy of the received prompts in order
func (f *FakeProvider) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}
