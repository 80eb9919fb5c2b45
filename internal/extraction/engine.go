// Package extraction turns an aggregated meeting transcript into a summary,
// decisions and action items using a generative model.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ethanbaker/minutes/internal/stores/meeting"
	"github.com/ethanbaker/minutes/internal/transcript"
	"github.com/ethanbaker/minutes/pkg/llm"
)

const (
	NoTranscriptSummary = "No valid transcript provided for summary."
	EmptySummary        = "Unable to generate summary."
	FailedSummary       = "Summary generation failed."
)

// DefaultMaxTranscriptChars bounds the transcript sent with each prompt
const DefaultMaxTranscriptChars = 10000

// Fallback keywords for action items when the model is unavailable
var actionKeywords = []string{"task", "action", "do", "assigned"}

// ActionItem is one extracted follow-up task
type ActionItem struct {
	Task    string
	Owner   string
	DueDate *time.Time
}

// Result is the output of one extraction run
type Result struct {
	Summary     string
	Decisions   []string
	ActionItems []ActionItem
}

// Derived converts the result into the rows written by the reconciler
func (r *Result) Derived() meeting.Derived {
	items := make([]meeting.ActionItem, 0, len(r.ActionItems))
	for _, item := range r.ActionItems {
		items = append(items, meeting.ActionItem{
			Task:    item.Task,
			Owner:   item.Owner,
			DueDate: item.DueDate,
		})
	}

	return meeting.Derived{
		Summary:     r.Summary,
		Decisions:   r.Decisions,
		ActionItems: items,
	}
}

// Config holds the tunable parts of the engine
type Config struct {
	MaxTranscriptChars int
	Retry              llm.RetryPolicy
	Prompts            Prompts
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		MaxTranscriptChars: DefaultMaxTranscriptChars,
		Retry:              llm.DefaultRetryPolicy(),
		Prompts:            DefaultPrompts(),
	}
}

// Engine runs the summary, decision and action item calls for a transcript
type Engine struct {
	provider llm.Provider
	cfg      Config
}

func New(provider llm.Provider, cfg Config) *Engine {
	defaults := DefaultPrompts()
	if cfg.Prompts.Summary == "" {
		cfg.Prompts.Summary = defaults.Summary
	}
	if cfg.Prompts.Decisions == "" {
		cfg.Prompts.Decisions = defaults.Decisions
	}
	if cfg.Prompts.ActionItems == "" {
		cfg.Prompts.ActionItems = defaults.ActionItems
	}

	return &Engine{provider: provider, cfg: cfg}
}

// Extract produces the summary, decisions and action items for a transcript.
// Malformed model output degrades to empty results; only exhausted rate
// limits and cancellation are returned as errors
func (e *Engine) Extract(ctx context.Context, text string, participants []string) (Result, error) {
	if transcript.IsEmpty(text) {
		log.Printf("[EXTRACTION]: Empty or invalid transcript, skipping model calls")
		return Result{Summary: NoTranscriptSummary, Decisions: []string{}, ActionItems: []ActionItem{}}, nil
	}

	prepared, cut := transcript.Prepare(text, e.cfg.MaxTranscriptChars)
	if cut {
		log.Printf("[EXTRACTION]: Transcript truncated to %d characters", e.cfg.MaxTranscriptChars)
	}

	summary, err := e.summarize(ctx, prepared)
	if err != nil {
		return Result{}, fmt.Errorf("summary: %w", err)
	}

	decisions, err := e.decisions(ctx, prepared)
	if err != nil {
		return Result{}, fmt.Errorf("decisions: %w", err)
	}

	items, err := e.actionItems(ctx, prepared, participants)
	if err != nil {
		return Result{}, fmt.Errorf("action items: %w", err)
	}

	return Result{Summary: summary, Decisions: decisions, ActionItems: items}, nil
}

// generate calls the provider under the retry policy. The bool result is
// false when the call failed in a way that should fall back to heuristics
func (e *Engine) generate(ctx context.Context, prompt string) (string, bool, error) {
	out, err := llm.Retry(ctx, e.cfg.Retry, func(ctx context.Context) (string, error) {
		return e.provider.Generate(ctx, prompt)
	})
	if err == nil {
		return strings.TrimSpace(out), true, nil
	}

	if errors.Is(err, llm.ErrRateLimited) || ctx.Err() != nil {
		return "", false, err
	}

	log.Printf("[EXTRACTION]: Model call failed, using fallback: %v", err)
	return "", false, nil
}

func (e *Engine) summarize(ctx context.Context, text string) (string, error) {
	prompt := llm.NewPromptBuilder(e.cfg.Prompts.Summary).AddSection("Transcript", text).Build()

	out, ok, err := e.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if !ok {
		return fallbackSummary(text), nil
	}
	if out == "" {
		log.Printf("[EXTRACTION]: Empty summary generated")
		return EmptySummary, nil
	}
	return out, nil
}

func (e *Engine) decisions(ctx context.Context, text string) ([]string, error) {
	prompt := llm.NewPromptBuilder(e.cfg.Prompts.Decisions).AddSection("Transcript", text).Build()

	out, ok, err := e.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return fallbackDecisions(text), nil
	}

	decisions, parsed := parseDecisions(out)
	if !parsed {
		log.Printf("[EXTRACTION]: Invalid JSON in decisions response: %q", out)
		return []string{}, nil
	}
	return decisions, nil
}

func (e *Engine) actionItems(ctx context.Context, text string, participants []string) ([]ActionItem, error) {
	names := strings.Join(participants, ", ")
	if names == "" {
		names = meeting.Unassigned
	}

	prompt := llm.NewPromptBuilder(e.cfg.Prompts.ActionItems).
		AddFact("Participants", names).
		AddSection("Transcript", text).
		Build()

	out, ok, err := e.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return fallbackActionItems(text), nil
	}

	items, parsed := parseActionItems(out)
	if !parsed {
		log.Printf("[EXTRACTION]: Invalid JSON in action items response: %q", out)
		return []ActionItem{}, nil
	}
	return items, nil
}

// fallbackSummary keeps the first four sentences of the transcript
func fallbackSummary(text string) string {
	var sentences []string
	for s := range strings.SplitSeq(text, ".") {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}

	if len(sentences) == 0 {
		return FailedSummary
	}
	return strings.Join(sentences[:min(4, len(sentences))], " ") + "."
}

// fallbackDecisions keeps lines that mention a decision
func fallbackDecisions(text string) []string {
	decisions := []string{}
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line != "" && strings.Contains(strings.ToLower(line), "decision") {
			decisions = append(decisions, line)
		}
	}
	return decisions
}

// fallbackActionItems keeps lines that look like task assignments
func fallbackActionItems(text string) []ActionItem {
	items := []ActionItem{}
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		for _, keyword := range actionKeywords {
			if strings.Contains(lower, keyword) {
				items = append(items, ActionItem{Task: line, Owner: meeting.Unassigned})
				break
			}
		}
	}
	return items
}
