// Package retry re-queues failed entities for another sync attempt,
// bounded by a per-entity attempt ceiling and gated on the platform's
// circuit breaker.
package retry

import (
	"context"
	"time"

	"github.com/adlift/adsync/internal/breaker"
	"github.com/adlift/adsync/internal/logging"
	"github.com/adlift/adsync/internal/model"
)

// DefaultMaxAttempts is the ceiling applied when the caller gives none.
const DefaultMaxAttempts = 3

// DefaultInterval is how often Run sweeps when no interval is configured.
const DefaultInterval = 5 * time.Minute

// FailedEntity is the persistence layer's view of an entity stuck in
// the failed state.
type FailedEntity struct {
	LocalID    string
	EntityType model.EntityType
	Platform   model.Platform
	RetryCount int
}

// Source lists entities eligible for a retry sweep.
type Source interface {
	ListFailed(ctx context.Context, maxAttempts int) ([]FailedEntity, error)
}

// Sink applies retry decisions back to persisted sync state.
type Sink interface {
	// ResetToPending marks the entity pending with the given attempt
	// count so the next sync run picks it up.
	ResetToPending(ctx context.Context, localID string, retryCount int) error
	// MarkPermanentFailure moves the entity to its terminal state;
	// it is never retried again.
	MarkPermanentFailure(ctx context.Context, localID string) error
}

// Result summarizes one sweep.
type Result struct {
	Processed         int
	Requeued          int
	Skipped           int
	PermanentFailures int
	Errors            []error
}

// Coordinator periodically re-queues failed entities.
type Coordinator struct {
	source      Source
	sink        Sink
	breakers    *breaker.Registry
	maxAttempts int
	interval    time.Duration
}

// Options tune a Coordinator; zero values fall back to defaults.
type Options struct {
	MaxAttempts int
	Interval    time.Duration
}

func New(source Source, sink Sink, breakers *breaker.Registry, opts Options) *Coordinator {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Coordinator{
		source:      source,
		sink:        sink,
		breakers:    breakers,
		maxAttempts: opts.MaxAttempts,
		interval:    opts.Interval,
	}
}

// Sweep examines every eligible failed entity once. An entity whose
// platform breaker is open is skipped untouched; one whose next
// attempt would exceed the ceiling becomes a permanent failure;
// everything else returns to pending with its attempt count bumped.
func (c *Coordinator) Sweep(ctx context.Context) (*Result, error) {
	stop := logging.Timer("retry sweep")
	defer stop()

	entities, err := c.source.ListFailed(ctx, c.maxAttempts)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, e := range entities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Processed++

		// State, not Allow: a sweep makes no platform call, so it
		// must not consume the open breaker's probe slot.
		if c.breakers.For(e.Platform).State() == breaker.StateOpen {
			res.Skipped++
			continue
		}

		attempt := e.RetryCount + 1
		if attempt >= c.maxAttempts {
			if err := c.sink.MarkPermanentFailure(ctx, e.LocalID); err != nil {
				res.Errors = append(res.Errors, err)
				continue
			}
			res.PermanentFailures++
			logging.Warn("entity exhausted retries",
				logging.Platform(string(e.Platform)),
				logging.Entity(e.LocalID),
				logging.EntityType(string(e.EntityType)))
			continue
		}

		if err := c.sink.ResetToPending(ctx, e.LocalID, attempt); err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Requeued++
	}

	if res.Processed > 0 {
		logging.Info("retry sweep complete",
			logging.Count(res.Processed),
			"requeued", res.Requeued,
			"skipped", res.Skipped,
			"permanent", res.PermanentFailures)
	}
	return res, nil
}

// Run sweeps on the configured interval until the context is
// cancelled. Sweep errors are logged and the loop continues.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := c.Sweep(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logging.Error("retry sweep failed", logging.Err(err))
			}
		}
	}
}
