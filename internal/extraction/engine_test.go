package extraction

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethanbaker/minutes/internal/stores/meeting"
	"github.com/ethanbaker/minutes/internal/transcript"
	"github.com/ethanbaker/minutes/pkg/llm"
	"github.com/ethanbaker/minutes/pkg/llm/llmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	summaryMatch  = "Summarize this meeting"
	decisionMatch = "Extract all key decisions"
	actionMatch   = "Extract action items"
)

// testConfig records backoff delays instead of sleeping
func testConfig(delays *[]time.Duration) Config {
	cfg := DefaultConfig()
	cfg.Retry.Sleep = func(ctx context.Context, d time.Duration) error {
		if delays != nil {
			*delays = append(*delays, d)
		}
		return nil
	}
	return cfg
}

func TestExtractGuardMakesNoCalls(t *testing.T) {
	for _, text := range []string{"", "   \n", transcript.NoTranscript} {
		provider := &llmtest.FakeProvider{Default: "should not be used"}
		engine := New(provider, testConfig(nil))

		result, err := engine.Extract(context.Background(), text, []string{"Alice"})
		require.NoError(t, err)

		assert.Equal(t, NoTranscriptSummary, result.Summary)
		assert.Empty(t, result.Decisions)
		assert.NotNil(t, result.Decisions)
		assert.Empty(t, result.ActionItems)
		assert.Zero(t, provider.Calls())
	}
}

func TestExtract(t *testing.T) {
	provider := &llmtest.FakeProvider{Rules: []llmtest.Rule{
		{Match: summaryMatch, Response: "  The team agreed to ship on Friday.  "},
		{Match: decisionMatch, Response: "```json\n[\"Ship Friday\", 42, \"\"]\n```"},
		{Match: actionMatch, Response: `[
			{"task": "Write docs", "owner": "Bob", "due_date": "2024-03-01"},
			{"task": "Announce release", "owner": "", "due_date": "not a date"},
			{"task": "", "owner": "Alice"},
			{"owner": "Alice"},
			{"task": "Book demo", "owner": "Alice", "due_date": null}
		]`},
	}}
	engine := New(provider, testConfig(nil))

	result, err := engine.Extract(context.Background(), "Alice: We will ship Friday.\nBob: I'll write docs.", []string{"Alice", "Bob"})
	require.NoError(t, err)

	assert.Equal(t, "The team agreed to ship on Friday.", result.Summary)
	assert.Equal(t, []string{"Ship Friday"}, result.Decisions)

	require.Len(t, result.ActionItems, 3)
	assert.Equal(t, "Write docs", result.ActionItems[0].Task)
	assert.Equal(t, "Bob", result.ActionItems[0].Owner)
	require.NotNil(t, result.ActionItems[0].DueDate)
	assert.Equal(t, "2024-03-01", result.ActionItems[0].DueDate.Format(meeting.DateLayout))

	assert.Equal(t, meeting.Unassigned, result.ActionItems[1].Owner)
	assert.Nil(t, result.ActionItems[1].DueDate)
	assert.Nil(t, result.ActionItems[2].DueDate)

	assert.Equal(t, 3, provider.Calls())

	prompts := provider.Prompts()
	assert.Contains(t, prompts[2], "Participants: Alice, Bob")
	assert.Contains(t, prompts[2], "Bob: I'll write docs.")
}

func TestExtractMalformedJSONDegrades(t *testing.T) {
	provider := &llmtest.FakeProvider{Rules: []llmtest.Rule{
		{Match: summaryMatch, Response: ""},
		{Match: decisionMatch, Response: "Decisions: ship it"},
		{Match: actionMatch, Response: `{"task": "not a list"}`},
	}}
	engine := New(provider, testConfig(nil))

	result, err := engine.Extract(context.Background(), "Alice: hello", nil)
	require.NoError(t, err)

	assert.Equal(t, EmptySummary, result.Summary)
	assert.Empty(t, result.Decisions)
	assert.Empty(t, result.ActionItems)

	assert.Contains(t, provider.Prompts()[2], "Participants: "+meeting.Unassigned)
}

func TestExtractRateLimitExhaustion(t *testing.T) {
	var delays []time.Duration
	provider := &llmtest.FakeProvider{DefaultErr: errors.New("429 Too Many Requests")}
	engine := New(provider, testConfig(&delays))

	_, err := engine.Extract(context.Background(), "Alice: hello", []string{"Alice"})
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrRateLimited)

	assert.Equal(t, 3, provider.Calls(), "exactly three attempts")
	require.Len(t, delays, 2, "no sleep after the last attempt")
	for i := 1; i < len(delays); i++ {
		assert.GreaterOrEqual(t, delays[i], delays[i-1])
	}
}

func TestExtractRecoversFromTransientRateLimit(t *testing.T) {
	calls := 0
	provider := llm.ProviderFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("quota exceeded")
		}
		switch {
		case strings.Contains(prompt, summaryMatch):
			return "Short summary.", nil
		default:
			return "[]", nil
		}
	})
	engine := New(provider, testConfig(nil))

	result, err := engine.Extract(context.Background(), "Alice: hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "Short summary.", result.Summary)
	assert.Equal(t, 4, calls)
}

func TestExtractProviderErrorFallsBack(t *testing.T) {
	provider := &llmtest.FakeProvider{DefaultErr: errors.New("connection reset")}
	engine := New(provider, testConfig(nil))

	text := "Alice: First point. Second point. Third point. Fourth point. Fifth point.\nBob: Our decision is to ship.\nAlice: Bob, your task is the docs."
	result, err := engine.Extract(context.Background(), text, []string{"Alice", "Bob"})
	require.NoError(t, err)

	assert.Equal(t, "Alice: First point Second point Third point Fourth point.", result.Summary)
	assert.Equal(t, []string{"Bob: Our decision is to ship."}, result.Decisions)
	require.Len(t, result.ActionItems, 1)
	assert.Equal(t, "Alice: Bob, your task is the docs.", result.ActionItems[0].Task)
	assert.Equal(t, meeting.Unassigned, result.ActionItems[0].Owner)

	assert.Equal(t, 3, provider.Calls(), "generic errors are not retried")
}

func TestExtractCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := New(&llmtest.FakeProvider{Default: "ok"}, testConfig(nil))

	_, err := engine.Extract(ctx, "Alice: hello", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractTruncatesLongTranscripts(t *testing.T) {
	provider := &llmtest.FakeProvider{Default: "[]"}
	cfg := testConfig(nil)
	cfg.MaxTranscriptChars = 20
	engine := New(provider, cfg)

	_, err := engine.Extract(context.Background(), strings.Repeat("x", 50), nil)
	require.NoError(t, err)

	prompt := provider.Prompts()[0]
	assert.Contains(t, prompt, strings.Repeat("x", 20)+transcript.TruncationMarker)
	assert.NotContains(t, prompt, strings.Repeat("x", 21))
}

func TestResultDerived(t *testing.T) {
	due := ParseDueDate("2024-03-01")
	result := Result{
		Summary:     "s",
		Decisions:   []string{"d"},
		ActionItems: []ActionItem{{Task: "t", Owner: "Alice", DueDate: due}},
	}

	derived := result.Derived()
	assert.Equal(t, "s", derived.Summary)
	assert.Equal(t, []string{"d"}, derived.Decisions)
	require.Len(t, derived.ActionItems, 1)
	assert.Equal(t, "Alice", derived.ActionItems[0].Owner)
	assert.Equal(t, due, derived.ActionItems[0].DueDate)
}

func TestParseDueDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-03-01", "2024-03-01"},
		{" 2025-12-31 ", "2025-12-31"},
		{"not a date", ""},
		{"Not set", ""},
		{"03/01/2024", ""},
		{"2024-02-30", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseDueDate(tt.in)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Format(meeting.DateLayout))
		})
	}
}

func TestParseDecisions(t *testing.T) {
	got, ok := parseDecisions(`{"decisions": ["Use Postgres"]}`)
	assert.True(t, ok)
	assert.Equal(t, []string{"Use Postgres"}, got)

	got, ok = parseDecisions("```\n[\"A\", \"B\"]\n```")
	assert.True(t, ok)
	assert.Equal(t, []string{"A", "B"}, got)

	_, ok = parseDecisions(`{"other": []}`)
	assert.False(t, ok)

	_, ok = parseDecisions("")
	assert.False(t, ok)
}

func TestLoadPrompts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("summary: Give a one line recap.\n"), 0o644))

	prompts, err := LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, "Give a one line recap.", prompts.Summary)
	assert.Equal(t, DefaultPrompts().Decisions, prompts.Decisions)

	_, err = LoadPrompts(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	prompts, err = LoadPrompts("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPrompts(), prompts)
}
