// Package processing runs the transcribe, aggregate, extract and reconcile
// pipeline for a meeting and keeps at most one run per meeting in flight.
package processing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ethanbaker/minutes/internal/events"
	"github.com/ethanbaker/minutes/internal/extraction"
	"github.com/ethanbaker/minutes/internal/metrics"
	"github.com/ethanbaker/minutes/internal/stores/meeting"
	"github.com/ethanbaker/minutes/internal/transcript"
)

// ErrAlreadyProcessing is returned when a run for the meeting is in flight
var ErrAlreadyProcessing = errors.New("meeting is already being processed")

// Store is the part of the meeting store a run needs
type Store interface {
	GetMeeting(ctx context.Context, id string) (*meeting.Meeting, error)
	ParticipantNames(ctx context.Context, meetingID string) ([]string, error)
	ReplaceDerived(ctx context.Context, meetingID string, d meeting.Derived) error
}

// Transcriber fills in missing artifact transcripts
type Transcriber interface {
	Transcribe(ctx context.Context, meetingID string) ([]meeting.Artifact, error)
}

// Extractor produces summary, decisions and action items from a transcript
type Extractor interface {
	Extract(ctx context.Context, text string, participants []string) (extraction.Result, error)
}

// Publisher announces finished runs
type Publisher interface {
	PublishProcessed(ctx context.Context, event events.ProcessedEvent) error
}

// Processor runs the full pipeline for one meeting
type Processor struct {
	store       Store
	transcriber Transcriber
	extractor   Extractor
	publisher   Publisher
	metrics     *metrics.Metrics
}

// NewProcessor creates a processor. A nil publisher skips events and nil
// metrics uses the default registry
func NewProcessor(store Store, transcriber Transcriber, extractor Extractor, publisher Publisher, m *metrics.Metrics) *Processor {
	if m == nil {
		m = metrics.Default
	}

	return &Processor{
		store:       store,
		transcriber: transcriber,
		extractor:   extractor,
		publisher:   publisher,
		metrics:     m,
	}
}

// Process transcribes, aggregates and extracts a meeting, then replaces its
// derived records. Extraction finishes before anything is replaced, so a
// failed run leaves the previous results in place
func (p *Processor) Process(ctx context.Context, meetingID string) (err error) {
	start := time.Now()
	p.metrics.ProcessingActive.Inc()
	defer func() {
		p.metrics.ProcessingActive.Dec()
		p.metrics.RecordRun(err, time.Since(start).Seconds())
	}()

	if _, err := p.store.GetMeeting(ctx, meetingID); err != nil {
		return err
	}

	artifacts, err := p.transcriber.Transcribe(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}

	texts := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		texts = append(texts, a.TranscriptText)
	}
	text := transcript.Aggregate(texts)

	names, err := p.store.ParticipantNames(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("failed to load participants: %w", err)
	}

	result, err := p.extractor.Extract(ctx, text, names)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	if err := p.store.ReplaceDerived(ctx, meetingID, result.Derived()); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	log.Printf("[PROCESSING]: Meeting %s processed (%d decisions, %d action items) in %s", meetingID, len(result.Decisions), len(result.ActionItems), time.Since(start).Round(time.Millisecond))

	if p.publisher != nil {
		event := events.ProcessedEvent{
			MeetingID:   meetingID,
			Summary:     result.Summary,
			Decisions:   len(result.Decisions),
			ActionItems: len(result.ActionItems),
			ProcessedAt: time.Now().UTC(),
		}
		if err := p.publisher.PublishProcessed(ctx, event); err != nil {
			log.Printf("[PROCESSING]: Warning, could not publish event for meeting %s: %v", meetingID, err)
		}
	}

	return nil
}
