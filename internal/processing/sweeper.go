package processing

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// RetryStore lists meetings with failed transcripts worth another attempt
type RetryStore interface {
	MeetingsWithRetryableTranscripts(ctx context.Context, maxAttempts int) ([]string, error)
}

// Sweeper periodically dispatches meetings whose transcription failed
type Sweeper struct {
	store       RetryStore
	dispatcher  *Dispatcher
	maxAttempts int
	cron        *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSweeper schedules sweeps on a standard five-field cron spec
func NewSweeper(store RetryStore, dispatcher *Dispatcher, maxAttempts int, spec string) (*Sweeper, error) {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Sweeper{
		store:       store,
		dispatcher:  dispatcher,
		maxAttempts: maxAttempts,
		cron:        cron.New(),
		ctx:         ctx,
		cancel:      cancel,
	}

	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.Sweep(s.ctx); err != nil {
			log.Printf("[SWEEPER]: Sweep failed: %v", err)
		}
	}); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}

	return s, nil
}

// Start begins running scheduled sweeps
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to return
func (s *Sweeper) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// Sweep dispatches every meeting with retryable transcripts and returns the
// ids that were started
func (s *Sweeper) Sweep(ctx context.Context) ([]string, error) {
	ids, err := s.store.MeetingsWithRetryableTranscripts(ctx, s.maxAttempts)
	if err != nil {
		return nil, err
	}

	started := make([]string, 0, len(ids))
	for _, id := range ids {
		err := s.dispatcher.Dispatch(ctx, id)
		switch {
		case err == nil:
			started = append(started, id)
		case errors.Is(err, ErrAlreadyProcessing):
			continue
		default:
			return started, fmt.Errorf("failed to dispatch meeting %s: %w", id, err)
		}
	}

	if len(started) > 0 {
		log.Printf("[SWEEPER]: Retrying transcription for %d meetings", len(started))
	}
	return started, nil
}
