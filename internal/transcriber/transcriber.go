// Package transcriber fills in the transcripts of audio and image artifacts
package transcriber

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ethanbaker/minutes/internal/metrics"
	"github.com/ethanbaker/minutes/internal/stores/meeting"
)

const (
	NoAudioText = "No transcription available from audio."
	NoImageText = "No text extracted from image."

	audioFailurePrefix = "Audio transcription failed: "
	imageFailurePrefix = "Image analysis failed: "
)

// DefaultMaxAttempts is how many times a failed artifact is retried
const DefaultMaxAttempts = 3

// Recognizer turns a stored file into text
type Recognizer interface {
	Recognize(ctx context.Context, path string) (string, error)
}

// RecognizerFunc adapts a plain function to Recognizer
type RecognizerFunc func(ctx context.Context, path string) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// Store is the part of the meeting store the transcriber needs
type Store interface {
	ListArtifacts(ctx context.Context, meetingID string) ([]meeting.Artifact, error)
	UpdateTranscript(ctx context.Context, artifactID uint, text string, failed bool) error
}

// Transcriber runs the speech and vision recognizers over a meeting's artifacts
type Transcriber struct {
	store       Store
	speech      Recognizer
	vision      Recognizer
	maxAttempts int
	metrics     *metrics.Metrics
}

// New creates a transcriber. A nil recognizer marks its artifacts as failed
func New(store Store, speech, vision Recognizer, maxAttempts int) *Transcriber {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Transcriber{
		store:       store,
		speech:      speech,
		vision:      vision,
		maxAttempts: maxAttempts,
	}
}

// WithMetrics records every transcription attempt on m
func (t *Transcriber) WithMetrics(m *metrics.Metrics) *Transcriber {
	t.metrics = m
	return t
}

// MaxAttempts returns the retry cap for failed artifacts
func (t *Transcriber) MaxAttempts() int {
	return t.maxAttempts
}

// NeedsTranscript reports whether an artifact should be sent to a recognizer
func (t *Transcriber) NeedsTranscript(a *meeting.Artifact) bool {
	if a.Kind == meeting.KindText {
		return false
	}
	if a.TranscriptText == "" {
		return true
	}
	return a.TranscriptFailed && a.TranscriptAttempts < t.maxAttempts
}

// Transcribe processes every artifact of a meeting that still needs a
// transcript and returns all artifacts with their current text. Recognizer
// failures are recorded on the artifact; only store errors are returned
func (t *Transcriber) Transcribe(ctx context.Context, meetingID string) ([]meeting.Artifact, error) {
	artifacts, err := t.store.ListArtifacts(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifacts: %w", err)
	}

	for i := range artifacts {
		a := &artifacts[i]
		if !t.NeedsTranscript(a) {
			continue
		}

		text, failed := t.recognize(ctx, a)
		if err := t.store.UpdateTranscript(ctx, a.ID, text, failed); err != nil {
			return nil, fmt.Errorf("failed to save transcript for artifact %d: %w", a.ID, err)
		}

		a.TranscriptText = text
		a.TranscriptFailed = failed
		a.TranscriptAttempts++

		if t.metrics != nil {
			t.metrics.RecordTranscription(string(a.Kind), failed)
		}
		if failed {
			log.Printf("[TRANSCRIBER]: Artifact %d of meeting %s failed (attempt %d/%d): %s", a.ID, meetingID, a.TranscriptAttempts, t.maxAttempts, text)
		}
	}

	return artifacts, nil
}

// recognize returns the transcript text for one artifact and whether it is a
// failure message
func (t *Transcriber) recognize(ctx context.Context, a *meeting.Artifact) (string, bool) {
	var (
		recognizer Recognizer
		prefix     string
		emptyText  string
	)

	switch a.Kind {
	case meeting.KindAudio:
		recognizer, prefix, emptyText = t.speech, audioFailurePrefix, NoAudioText
	case meeting.KindImage:
		recognizer, prefix, emptyText = t.vision, imageFailurePrefix, NoImageText
	default:
		return fmt.Sprintf("Unsupported artifact kind %q", a.Kind), true
	}

	if a.FilePath == "" {
		return prefix + "no file stored for artifact", true
	}
	if recognizer == nil {
		return prefix + "no recognizer configured", true
	}

	text, err := recognizer.Recognize(ctx, a.FilePath)
	if err != nil {
		return prefix + err.Error(), true
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return emptyText, false
	}

	return text, false
}
