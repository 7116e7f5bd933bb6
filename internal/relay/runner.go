package relay

import (
	"context"
	"sync"

	"voicecare-backend/internal/events"
	"voicecare-backend/internal/shared/telemetry"
)

const defaultConcurrency = 4

// Runner executes relay work in the background with bounded concurrency.
// Work is detached from the submitting request; Wait blocks until it drains.
type Runner struct {
	Service *Service

	sem chan struct{}
	wg  sync.WaitGroup
}

// NewRunner constructs a Runner. Concurrency below one uses the default.
func NewRunner(svc *Service, concurrency int) *Runner {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Runner{Service: svc, sem: make(chan struct{}, concurrency)}
}

// Go schedules fn. It blocks while all slots are busy.
func (r *Runner) Go(ctx context.Context, trigger string, fn func(ctx context.Context) (Outcome, error)) {
	detached := context.WithoutCancel(ctx)
	r.sem <- struct{}{}
	r.wg.Add(1)
	go func() {
		defer func() {
			<-r.sem
			r.wg.Done()
		}()
		out, err := fn(detached)
		if err != nil {
			telemetry.Error("relay.run_failed", map[string]any{
				"trigger": trigger,
				"outcome": string(out),
				"error":   err,
			})
		}
	}()
}

// Submit schedules a finalize event. Its signature matches events.Handler.
func (r *Runner) Submit(ctx context.Context, ev events.Finalize) {
	r.Go(ctx, triggerFinalize, func(ctx context.Context) (Outcome, error) {
		return r.Service.HandleFinalize(ctx, ev)
	})
}

// Replay schedules a replay of a stored recording.
func (r *Runner) Replay(ctx context.Context, userID, callID string) {
	r.Go(ctx, triggerReplay, func(ctx context.Context) (Outcome, error) {
		return r.Service.Replay(ctx, userID, callID)
	})
}

// Wait blocks until all scheduled work has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
