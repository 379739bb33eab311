package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pscheid92/votepulse/internal/domain"
	"github.com/pscheid92/votepulse/internal/metrics"
	goredis "github.com/redis/go-redis/v9"
)

// blockTimeout bounds each BLPOP so DrainBlocking can observe ctx
// cancellation between blocks.
const blockTimeout = 5 * time.Second

// VoteQueue is the durable FIFO over a Redis list. Entries survive
// process restarts; removal happens at dequeue time (at-least-once,
// with a loss window between pop and commit accepted by design).
type VoteQueue struct {
	rdb           *goredis.Client
	queueKey      string
	deadLetterKey string
}

var _ domain.VoteQueue = (*VoteQueue)(nil)

func NewVoteQueue(rdb *goredis.Client, queueKey, deadLetterKey string) *VoteQueue {
	return &VoteQueue{rdb: rdb, queueKey: queueKey, deadLetterKey: deadLetterKey}
}

// Append enqueues the event at the tail of the list. A failure here
// means the vote was not recorded; callers surface it as retryable.
func (q *VoteQueue) Append(ctx context.Context, event domain.VoteEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal vote event: %w", err)
	}

	if err := q.rdb.RPush(ctx, q.queueKey, payload).Err(); err != nil {
		metrics.QueueAppendFailuresTotal.Inc()
		return fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}

	metrics.QueueAppendsTotal.Inc()
	return nil
}

// DrainBlocking pops the head of the list, blocking until an entry is
// available or ctx is done. A payload that fails to decode is returned
// with DecodeErr set so the consumer can apply its poison-pill policy.
func (q *VoteQueue) DrainBlocking(ctx context.Context) (domain.QueueEntry, error) {
	for {
		vals, err := q.rdb.BLPop(ctx, blockTimeout, q.queueKey).Result()
		if errors.Is(err, goredis.Nil) {
			// Timed out with an empty queue; block again.
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return domain.QueueEntry{}, ctx.Err()
			}
			return domain.QueueEntry{}, fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
		}

		// BLPop returns [key, value].
		raw := []byte(vals[1])
		entry := domain.QueueEntry{Raw: raw}
		entry.DecodeErr = json.Unmarshal(raw, &entry.Event)
		return entry, nil
	}
}

// DeadLetter appends the raw payload with a reason envelope to the
// dead-letter list so failed entries are never dropped silently.
func (q *VoteQueue) DeadLetter(ctx context.Context, raw []byte, reason string) error {
	envelope, err := json.Marshal(map[string]any{
		"reason":  reason,
		"payload": string(raw),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal dead-letter envelope: %w", err)
	}

	if err := q.rdb.RPush(ctx, q.deadLetterKey, envelope).Err(); err != nil {
		return fmt.Errorf("failed to append to dead-letter list: %w", err)
	}

	metrics.QueueDeadLetteredTotal.WithLabelValues(reason).Inc()
	return nil
}

// Len reports the number of pending entries.
func (q *VoteQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, q.queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length: %w", err)
	}
	return n, nil
}
