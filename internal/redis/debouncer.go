package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Debouncer rejects rapid duplicate submissions of the same vote
// request (double-click, retry storm) with a short SETNX window. It is
// not the one-vote-per-user invariant; that lives in the consumer's
// upsert.
type Debouncer struct {
	rdb    *goredis.Client
	window time.Duration
}

func NewDebouncer(rdb *goredis.Client, window time.Duration) *Debouncer {
	return &Debouncer{rdb: rdb, window: window}
}

// Allow reports whether this (competition, user) pair may submit now.
func (d *Debouncer) Allow(ctx context.Context, competitionID, userID int) (bool, error) {
	key := debounceKey(competitionID, userID)
	set, err := d.rdb.SetNX(ctx, key, "1", d.window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check vote debounce: %w", err)
	}
	return set, nil
}

func debounceKey(competitionID, userID int) string {
	return fmt.Sprintf("vote:debounce:%d:%d", competitionID, userID)
}
