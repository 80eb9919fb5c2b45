// Package qa answers free-form questions about a meeting's transcript.
package qa

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ethanbaker/minutes/internal/metrics"
	"github.com/ethanbaker/minutes/internal/stores/meeting"
	"github.com/ethanbaker/minutes/internal/transcript"
	"github.com/ethanbaker/minutes/pkg/llm"
)

const (
	NoTranscriptAnswer = "No transcript available yet. Please upload meeting audio, image, or text first."
	UnavailableAnswer  = "Answer not available."
)

// DefaultInstruction is used when no prompt file is configured
const DefaultInstruction = `You are a helpful assistant.
Use the meeting transcript below to answer the user's question concisely.`

// Store is the part of the meeting store the service reads
type Store interface {
	GetMeeting(ctx context.Context, id string) (*meeting.Meeting, error)
	ListArtifacts(ctx context.Context, meetingID string) ([]meeting.Artifact, error)
}

// Service answers questions with a generative model
type Service struct {
	store       Store
	provider    llm.Provider
	instruction string
	maxChars    int
	metrics     *metrics.Metrics
}

// New creates a question answering service. An empty instruction uses
// DefaultInstruction
func New(store Store, provider llm.Provider, instruction string, maxChars int, m *metrics.Metrics) *Service {
	if instruction == "" {
		instruction = DefaultInstruction
	}
	if m == nil {
		m = metrics.Default
	}

	return &Service{
		store:       store,
		provider:    provider,
		instruction: instruction,
		maxChars:    maxChars,
		metrics:     m,
	}
}

// Transcript rebuilds the aggregated transcript of a meeting
func (s *Service) Transcript(ctx context.Context, meetingID string) (string, error) {
	if _, err := s.store.GetMeeting(ctx, meetingID); err != nil {
		return "", err
	}

	artifacts, err := s.store.ListArtifacts(ctx, meetingID)
	if err != nil {
		return "", fmt.Errorf("failed to load artifacts: %w", err)
	}

	texts := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		texts = append(texts, a.TranscriptText)
	}
	return transcript.Aggregate(texts), nil
}

// Ask answers a question about a meeting. Only store errors are returned;
// model failures produce a placeholder answer
func (s *Service) Ask(ctx context.Context, meetingID, question string) (string, error) {
	text, err := s.Transcript(ctx, meetingID)
	if err != nil {
		return "", err
	}

	if transcript.IsEmpty(text) {
		log.Printf("[QA]: No transcript available for meeting %s", meetingID)
		return NoTranscriptAnswer, nil
	}

	prepared, _ := transcript.Prepare(text, s.maxChars)
	prompt := llm.NewPromptBuilder(s.instruction).
		AddSection("Transcript", prepared).
		AddSection("Question", strings.TrimSpace(question)).
		Build()

	answer, err := s.provider.Generate(ctx, prompt)
	if err != nil {
		log.Printf("[QA]: Answer error for meeting %s: %v", meetingID, err)
		s.metrics.RecordQuestion(false)
		return UnavailableAnswer, nil
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		s.metrics.RecordQuestion(false)
		return UnavailableAnswer, nil
	}

	s.metrics.RecordQuestion(true)
	return answer, nil
}
