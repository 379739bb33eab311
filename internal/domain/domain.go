package domain

import (
	"fmt"
	"time"
)

// Choice is one of the two options a voter can pick.
type Choice string

const (
	ChoiceA Choice = "a"
	ChoiceB Choice = "b"
)

// ParseChoice validates a raw vote value from a request.
func ParseChoice(raw string) (Choice, error) {
	switch Choice(raw) {
	case ChoiceA, ChoiceB:
		return Choice(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidChoice, raw)
	}
}

// Competition status values.
const (
	StatusActive    = "active"
	StatusScheduled = "scheduled"
	StatusClosed    = "closed"
)

// VoteEvent is a single cast ballot on its way to persistence.
// Immutable once created by the producer.
type VoteEvent struct {
	EventID       string    `json:"event_id"`
	VoterID       string    `json:"voter_id"`
	UserID        int       `json:"user_id"`
	CompetitionID int       `json:"competition_id"`
	Choice        Choice    `json:"vote"`
	CastAt        time.Time `json:"cast_at"`
}

// VoterIDFor derives the deterministic voter key for a user so the
// consumer's dedup can key on it.
func VoterIDFor(userID int) string {
	return fmt.Sprintf("user_%d", userID)
}

// BroadcastMessage is the wake-up signal fanned out to live viewers.
// It never carries the authoritative tally; viewers re-query scores.
type BroadcastMessage struct {
	CompetitionID int       `json:"competition_id"`
	OccurredAt    time.Time `json:"timestamp"`
}

// Competition is the two-option contest voters participate in.
type Competition struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	OptionA        string     `json:"option_a"`
	OptionB        string     `json:"option_b"`
	Status         string     `json:"status"`
	CreatedBy      int        `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end,omitempty"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	IsArchived     bool       `json:"is_archived"`
}

// Active reports whether the competition currently accepts votes.
func (c Competition) Active() bool {
	return c.Status == StatusActive && !c.IsArchived
}

// Tally is the aggregate count per competition, derived from vote rows.
type Tally struct {
	CompetitionID int `json:"competition_id"`
	A             int `json:"a"`
	B             int `json:"b"`
}

// User is a registered voter or admin.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the verified credential payload attached to a request.
type Identity struct {
	UserID   int
	Username string
	IsAdmin  bool
}
