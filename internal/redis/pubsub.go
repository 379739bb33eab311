package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/pscheid92/votepulse/internal/domain"
	"github.com/pscheid92/votepulse/internal/metrics"
	goredis "github.com/redis/go-redis/v9"
)

// VoteBroadcast is the broadcast channel over Redis pub/sub: every
// subscriber receives every message published after it subscribed, no
// replay, no per-subscriber buffering beyond the transport's own.
//
// Publish runs behind a circuit breaker: when Redis is down the vote
// path should not stack up publish timeouts. Viewers just miss
// wake-ups until the breaker closes again.
type VoteBroadcast struct {
	rdb     *goredis.Client
	channel string
	cb      circuitbreaker.CircuitBreaker[any]
}

var (
	_ domain.VotePublisher  = (*VoteBroadcast)(nil)
	_ domain.VoteSubscriber = (*VoteBroadcast)(nil)
)

func NewVoteBroadcast(rdb *goredis.Client, channel string) *VoteBroadcast {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(0.6, 5, 10*time.Second).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Broadcast circuit breaker state changed",
				"component", "broadcast",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
		}).
		Build()

	return &VoteBroadcast{rdb: rdb, channel: channel, cb: cb}
}

// Publish sends a vote-occurred notification. Errors (including an open
// circuit) are returned for logging, but callers must treat them as
// non-fatal: vote durability depends only on the queue append.
func (b *VoteBroadcast) Publish(ctx context.Context, msg domain.BroadcastMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast message: %w", err)
	}

	if !b.cb.TryAcquirePermit() {
		metrics.BroadcastDroppedTotal.Inc()
		return fmt.Errorf("broadcast circuit open")
	}

	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.cb.RecordError(err)
		metrics.BroadcastDroppedTotal.Inc()
		return fmt.Errorf("failed to publish broadcast message: %w", err)
	}

	b.cb.RecordSuccess()
	metrics.BroadcastPublishedTotal.Inc()
	return nil
}

// Subscribe opens a live handle into the channel. The returned
// subscription delivers decoded messages in publish order until Close.
func (b *VoteBroadcast) Subscribe(ctx context.Context) (domain.Subscription, error) {
	pubsub := b.rdb.Subscribe(ctx, b.channel)

	// Force the SUBSCRIBE round-trip so "published after subscribe"
	// actually holds for the caller.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	sub := &subscription{
		pubsub: pubsub,
		out:    make(chan domain.BroadcastMessage, 16),
	}
	go sub.pump()

	metrics.BroadcastSubscribersActive.Inc()
	return sub, nil
}

type subscription struct {
	pubsub *goredis.PubSub
	out    chan domain.BroadcastMessage
}

func (s *subscription) pump() {
	defer close(s.out)
	defer metrics.BroadcastSubscribersActive.Dec()

	for msg := range s.pubsub.Channel() {
		var decoded domain.BroadcastMessage
		if err := json.Unmarshal([]byte(msg.Payload), &decoded); err != nil {
			slog.Warn("Discarding malformed broadcast payload", "payload", msg.Payload, "error", err)
			continue
		}
		// Never block on a slow consumer: a full buffer drops the
		// message, and the pump stays on the transport channel so
		// Close always ends the loop.
		select {
		case s.out <- decoded:
		default:
			metrics.BroadcastDroppedTotal.Inc()
		}
	}
}

func (s *subscription) Messages() <-chan domain.BroadcastMessage {
	return s.out
}

func (s *subscription) Close() error {
	return s.pubsub.Close()
}
