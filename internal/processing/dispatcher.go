package processing

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ethanbaker/minutes/internal/metrics"
)

// Runner processes a single meeting
type Runner interface {
	Process(ctx context.Context, meetingID string) error
}

// Dispatcher starts processing runs in the background, one per meeting
type Dispatcher struct {
	runner  Runner
	guard   Guard
	metrics *metrics.Metrics

	// Runs outlive the request that started them
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// OnDone is called after each run with its result, if set
	OnDone func(meetingID string, err error)
}

// NewDispatcher creates a dispatcher. A nil guard uses a MemoryGuard
func NewDispatcher(runner Runner, guard Guard, m *metrics.Metrics) *Dispatcher {
	if guard == nil {
		guard = NewMemoryGuard()
	}
	if m == nil {
		m = metrics.Default
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		runner:  runner,
		guard:   guard,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Dispatch starts a run for the meeting and returns without waiting for it.
// ErrAlreadyProcessing is returned when a run is already in flight
func (d *Dispatcher) Dispatch(ctx context.Context, meetingID string) error {
	if err := d.ctx.Err(); err != nil {
		return err
	}

	release, ok, err := d.guard.TryAcquire(ctx, meetingID)
	if err != nil {
		return err
	}
	if !ok {
		d.metrics.ProcessingRejected.Inc()
		return ErrAlreadyProcessing
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer release()

		err := d.runner.Process(d.ctx, meetingID)
		if err != nil {
			log.Printf("[PROCESSING]: Run for meeting %s failed: %v", meetingID, err)
		}
		if d.OnDone != nil {
			d.OnDone(meetingID, err)
		}
	}()

	return nil
}

// Busy reports whether a run for the meeting is in flight
func (d *Dispatcher) Busy(ctx context.Context, meetingID string) (bool, error) {
	return d.guard.Busy(ctx, meetingID)
}

// Wait blocks until every dispatched run has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown waits for in-flight runs until ctx expires, then cancels whatever
// is still running
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		log.Printf("[PROCESSING]: Shutdown deadline reached, cancelling in-flight runs")
	}

	d.cancel()

	// Cancelled runs return quickly; give them a moment to release their locks
	if err != nil {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
		}
	}

	return err
}
