package domain

import "context"

// VoteQueue is the durable FIFO decoupling the accept path from
// persistence. Append must not touch the relational store.
type VoteQueue interface {
	// Append enqueues an event. A failure means the vote was NOT recorded.
	Append(ctx context.Context, event VoteEvent) error
	// DrainBlocking blocks until an entry is available or ctx is done.
	// The raw payload is returned alongside the decoded event so a
	// malformed entry can still be dead-lettered verbatim.
	DrainBlocking(ctx context.Context) (QueueEntry, error)
	// DeadLetter routes an entry that repeatedly failed persistence to
	// the dead-letter destination.
	DeadLetter(ctx context.Context, raw []byte, reason string) error
	// Len reports the number of pending entries.
	Len(ctx context.Context) (int64, error)
}

// QueueEntry is a drained queue element. DecodeErr is set when the
// payload could not be parsed into a VoteEvent (poison pill).
type QueueEntry struct {
	Raw       []byte
	Event     VoteEvent
	DecodeErr error
}

// VotePublisher publishes vote-occurred notifications. Publish failures
// must never fail the vote; callers log and move on.
type VotePublisher interface {
	Publish(ctx context.Context, msg BroadcastMessage) error
}

// Subscription is a live handle into the broadcast channel, owned by a
// single stream handler and closed on disconnect.
type Subscription interface {
	// Messages yields every message published after the subscription
	// was established, in publish order. The channel closes when the
	// subscription is closed or the transport fails.
	Messages() <-chan BroadcastMessage
	Close() error
}

// VoteSubscriber creates subscriptions on the broadcast channel.
type VoteSubscriber interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// CompetitionRepository is the store interface for competition metadata.
type CompetitionRepository interface {
	GetByID(ctx context.Context, id int) (*Competition, error)
	ListActive(ctx context.Context) ([]Competition, error)
	Create(ctx context.Context, c *Competition) error
	Update(ctx context.Context, c *Competition) error
	SetStatus(ctx context.Context, id int, status string) error
	SetArchived(ctx context.Context, id int, archived bool) error
	Delete(ctx context.Context, id int) error
}

// VoteRepository writes authoritative vote rows and reads tallies.
// Upsert must be idempotent per (voter_id, competition_id).
type VoteRepository interface {
	Upsert(ctx context.Context, event VoteEvent) error
	Tally(ctx context.Context, competitionID int) (Tally, error)
}

// UserRepository manages registered users.
type UserRepository interface {
	Create(ctx context.Context, username, email, passwordHash string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Counts(ctx context.Context) (users, votes int, err error)
}
