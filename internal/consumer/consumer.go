// Package consumer drains the vote queue and writes authoritative rows.
package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pscheid92/votepulse/internal/domain"
	"github.com/pscheid92/votepulse/internal/logging"
	"github.com/pscheid92/votepulse/internal/metrics"
	"github.com/pscheid92/votepulse/internal/retry"
)

// Consumer is the single background loop between the queue and the
// relational store. Entries are removed from the queue at drain time,
// so delivery is at-least-once; the vote upsert makes replays harmless.
type Consumer struct {
	queue  domain.VoteQueue
	votes  domain.VoteRepository
	policy retry.Policy
}

// Options bound the persistence retry loop.
type Options struct {
	MaxAttempts    int
	InitialBackoff time.Duration
}

func New(queue domain.VoteQueue, votes domain.VoteRepository, opts Options) *Consumer {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 200 * time.Millisecond
	}

	return &Consumer{
		queue: queue,
		votes: votes,
		policy: retry.Policy{
			MaxAttempts:    opts.MaxAttempts,
			InitialBackoff: opts.InitialBackoff,
			MaxBackoff:     5 * time.Second,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				metrics.ConsumerRetriesTotal.Inc()
				slog.Warn("vote persistence failed, retrying",
					"attempt", attempt,
					"backoff", backoff,
					logging.WithError(err))
			},
		},
	}
}

// Run drains the queue until ctx is cancelled. An entry already drained
// when cancellation arrives is still processed to completion so it is
// not lost.
func (c *Consumer) Run(ctx context.Context) error {
	slog.Info("vote consumer started")

	for {
		entry, err := c.queue.DrainBlocking(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("vote consumer stopped")
				return nil
			}
			slog.Error("failed to drain queue", logging.WithError(err))
			select {
			case <-time.After(time.Second):
				continue
			case <-ctx.Done():
				slog.Info("vote consumer stopped")
				return nil
			}
		}

		// The entry is already off the queue. Finish it even if we are
		// shutting down.
		c.process(context.WithoutCancel(ctx), entry)
		c.sampleDepth(context.WithoutCancel(ctx))

		select {
		case <-ctx.Done():
			slog.Info("vote consumer stopped")
			return nil
		default:
		}
	}
}

func (c *Consumer) process(ctx context.Context, entry domain.QueueEntry) {
	if entry.DecodeErr != nil {
		slog.Warn("discarding malformed queue entry",
			"payload_bytes", len(entry.Raw),
			logging.WithError(entry.DecodeErr))
		c.deadLetter(ctx, entry.Raw, "malformed")
		metrics.ConsumerProcessedTotal.WithLabelValues("malformed").Inc()
		return
	}

	start := time.Now()
	err := retry.DoVoid(ctx, c.policy, retry.RetryAll, func() error {
		return c.votes.Upsert(ctx, entry.Event)
	})
	metrics.ConsumerPersistDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		slog.Error("vote persistence exhausted retries, dead-lettering",
			logging.WithCompetition(entry.Event.CompetitionID),
			logging.WithVoter(entry.Event.VoterID),
			logging.WithError(err))
		c.deadLetter(ctx, entry.Raw, "persist_failed")
		metrics.ConsumerProcessedTotal.WithLabelValues("dead_lettered").Inc()
		return
	}

	slog.Debug("vote persisted",
		logging.WithCompetition(entry.Event.CompetitionID),
		logging.WithVoter(entry.Event.VoterID),
		"choice", entry.Event.Choice)
	metrics.ConsumerProcessedTotal.WithLabelValues("persisted").Inc()
}

func (c *Consumer) deadLetter(ctx context.Context, raw []byte, reason string) {
	if err := c.queue.DeadLetter(ctx, raw, reason); err != nil {
		// Nothing left to do but log; the payload is in the log line
		// as a last resort.
		slog.Error("failed to dead-letter queue entry",
			"reason", reason,
			"payload", string(raw),
			logging.WithError(err))
	}
}

func (c *Consumer) sampleDepth(ctx context.Context) {
	n, err := c.queue.Len(ctx)
	if err != nil {
		return
	}
	metrics.QueueDepth.Set(float64(n))
}
