// Package avatar reads a meeting's latest summary aloud.
package avatar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/ethanbaker/minutes/internal/stores/meeting"
	"github.com/ethanbaker/minutes/pkg/llm"
	"github.com/openai/openai-go/v2"
)

const (
	NoSummaryText = "Hello! No summary is available for this meeting yet."
	MoreSuffix    = "... The full details contain more."

	// MaxSpeechChars bounds the text sent for synthesis
	MaxSpeechChars = 1000
)

// Synthesizer turns text into MP3 audio
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)
}

// Store is the part of the meeting store the avatar reads
type Store interface {
	GetMeeting(ctx context.Context, id string) (*meeting.Meeting, error)
	LatestSummary(ctx context.Context, meetingID string) (*meeting.Summary, error)
}

// Service produces the spoken summary of a meeting
type Service struct {
	store       Store
	synthesizer Synthesizer
}

func New(store Store, synthesizer Synthesizer) *Service {
	return &Service{store: store, synthesizer: synthesizer}
}

// Text returns what the avatar says for a meeting
func (s *Service) Text(ctx context.Context, meetingID string) (string, error) {
	if _, err := s.store.GetMeeting(ctx, meetingID); err != nil {
		return "", err
	}

	summary, err := s.store.LatestSummary(ctx, meetingID)
	if errors.Is(err, meeting.ErrNotFound) {
		return NoSummaryText, nil
	}
	if err != nil {
		return "", err
	}

	return SpeechText(summary.Text), nil
}

// Speak synthesizes the avatar text for a meeting. The caller closes the stream
func (s *Service) Speak(ctx context.Context, meetingID string) (io.ReadCloser, error) {
	text, err := s.Text(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	if s.synthesizer == nil {
		return nil, errors.New("no speech synthesizer configured")
	}

	audio, err := s.synthesizer.Synthesize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	return audio, nil
}

// SpeechText shortens long summaries to MaxSpeechChars characters
func SpeechText(text string) string {
	if text == "" {
		return NoSummaryText
	}
	if utf8.RuneCountInString(text) <= MaxSpeechChars {
		return text
	}

	runes := []rune(text)
	return string(runes[:MaxSpeechChars]) + MoreSuffix
}

// OpenAISynthesizer uses the OpenAI speech endpoint
type OpenAISynthesizer struct {
	client openai.Client
	model  string
	voice  string
}

func NewOpenAISynthesizer(client openai.Client, model, voice string) *OpenAISynthesizer {
	if model == "" {
		model = string(openai.SpeechModelTTS1)
	}
	if voice == "" {
		voice = string(openai.AudioSpeechNewParamsVoiceAlloy)
	}
	return &OpenAISynthesizer{client: client, model: model, voice: voice}
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(s.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, llm.Classify(err)
	}
	return resp.Body, nil
}
