package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pscheid92/votepulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deadEntry struct {
	raw    []byte
	reason string
}

type fakeQueue struct {
	mu      sync.Mutex
	entries chan domain.QueueEntry
	dead    []deadEntry

	// onDrain runs just before an entry is handed out
	onDrain func()
}

func newFakeQueue(buffer int) *fakeQueue {
	return &fakeQueue{entries: make(chan domain.QueueEntry, buffer)}
}

func (q *fakeQueue) push(t *testing.T, event domain.VoteEvent) {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	q.entries <- domain.QueueEntry{Raw: raw, Event: event}
}

func (q *fakeQueue) Append(context.Context, domain.VoteEvent) error { return nil }

func (q *fakeQueue) DrainBlocking(ctx context.Context) (domain.QueueEntry, error) {
	select {
	case entry := <-q.entries:
		if q.onDrain != nil {
			q.onDrain()
		}
		return entry, nil
	case <-ctx.Done():
		return domain.QueueEntry{}, ctx.Err()
	}
}

func (q *fakeQueue) DeadLetter(_ context.Context, raw []byte, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, deadEntry{raw: raw, reason: reason})
	return nil
}

func (q *fakeQueue) Len(context.Context) (int64, error) {
	return int64(len(q.entries)), nil
}

func (q *fakeQueue) deadLetters() []deadEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]deadEntry(nil), q.dead...)
}

type fakeVotes struct {
	mu        sync.Mutex
	upserts   []domain.VoteEvent
	failCount int // fail this many calls before succeeding
	attempts  int
}

func (v *fakeVotes) Upsert(_ context.Context, event domain.VoteEvent) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.attempts++
	if v.attempts <= v.failCount {
		return errors.New("connection refused")
	}
	v.upserts = append(v.upserts, event)
	return nil
}

func (v *fakeVotes) Tally(context.Context, int) (domain.Tally, error) {
	return domain.Tally{}, nil
}

func (v *fakeVotes) persisted() []domain.VoteEvent {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.VoteEvent(nil), v.upserts...)
}

func testOptions() Options {
	return Options{MaxAttempts: 3, InitialBackoff: time.Millisecond}
}

func testVoteEvent(userID int) domain.VoteEvent {
	return domain.VoteEvent{
		VoterID:       domain.VoterIDFor(userID),
		UserID:        userID,
		CompetitionID: 42,
		Choice:        domain.ChoiceA,
		CastAt:        time.Now().UTC().Truncate(time.Second),
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

func TestConsumer_PersistsDrainedEntries(t *testing.T) {
	queue := newFakeQueue(8)
	votes := &fakeVotes{}
	c := New(queue, votes, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	for i := 1; i <= 3; i++ {
		queue.push(t, testVoteEvent(i))
	}

	waitFor(t, func() bool { return len(votes.persisted()) == 3 }, "all entries persisted")
	cancel()
	assert.NoError(t, <-done)

	persisted := votes.persisted()
	assert.Equal(t, "user_1", persisted[0].VoterID)
	assert.Equal(t, "user_3", persisted[2].VoterID)
	assert.Empty(t, queue.deadLetters())
}

func TestConsumer_RetriesTransientFailures(t *testing.T) {
	queue := newFakeQueue(1)
	votes := &fakeVotes{failCount: 2}
	c := New(queue, votes, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	queue.push(t, testVoteEvent(7))

	waitFor(t, func() bool { return len(votes.persisted()) == 1 }, "entry persisted after retries")
	assert.Empty(t, queue.deadLetters())

	votes.mu.Lock()
	defer votes.mu.Unlock()
	assert.Equal(t, 3, votes.attempts)
}

func TestConsumer_DeadLettersAfterExhaustion(t *testing.T) {
	queue := newFakeQueue(1)
	votes := &fakeVotes{failCount: 100}
	c := New(queue, votes, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	event := testVoteEvent(9)
	queue.push(t, event)

	waitFor(t, func() bool { return len(queue.deadLetters()) == 1 }, "entry dead-lettered")

	dead := queue.deadLetters()[0]
	assert.Equal(t, "persist_failed", dead.reason)

	// The raw payload survives verbatim for later inspection
	var replay domain.VoteEvent
	require.NoError(t, json.Unmarshal(dead.raw, &replay))
	assert.Equal(t, event.VoterID, replay.VoterID)
	assert.Empty(t, votes.persisted())
}

func TestConsumer_MalformedEntryDeadLettered(t *testing.T) {
	queue := newFakeQueue(1)
	votes := &fakeVotes{}
	c := New(queue, votes, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	raw := []byte("not json")
	queue.entries <- domain.QueueEntry{Raw: raw, DecodeErr: errors.New("invalid character")}

	waitFor(t, func() bool { return len(queue.deadLetters()) == 1 }, "malformed entry dead-lettered")

	dead := queue.deadLetters()[0]
	assert.Equal(t, "malformed", dead.reason)
	assert.Equal(t, raw, dead.raw)
	assert.Empty(t, votes.persisted(), "malformed entries must never reach the store")

	votes.mu.Lock()
	defer votes.mu.Unlock()
	assert.Zero(t, votes.attempts)
}

func TestConsumer_StopsOnCancel(t *testing.T) {
	queue := newFakeQueue(1)
	c := New(queue, &fakeVotes{}, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop on cancellation")
	}
}

func TestConsumer_FinishesInFlightEntryOnShutdown(t *testing.T) {
	queue := newFakeQueue(1)
	votes := &fakeVotes{}
	c := New(queue, votes, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	// Cancellation arrives the moment the entry leaves the queue
	queue.onDrain = cancel

	queue.push(t, testVoteEvent(11))

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}

	assert.Len(t, votes.persisted(), 1, "in-flight entry must be persisted before stopping")
}
