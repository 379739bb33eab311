package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/votepulse/internal/domain"
)

// VoteRepo implements domain.VoteRepository backed by PostgreSQL.
type VoteRepo struct {
	pool *pgxpool.Pool
}

var _ domain.VoteRepository = (*VoteRepo)(nil)

// NewVoteRepo creates a VoteRepo on the shared pool.
func NewVoteRepo(pool *pgxpool.Pool) *VoteRepo {
	return &VoteRepo{pool: pool}
}

// Upsert records a vote. A repeat vote by the same voter in the same
// competition overwrites the previous row, so replaying a queue entry
// is harmless.
func (r *VoteRepo) Upsert(ctx context.Context, event domain.VoteEvent) error {
	ctx = WithQueryName(ctx, "votes_upsert")

	_, err := r.pool.Exec(ctx, `
		INSERT INTO votes (voter_id, competition_id, user_id, vote, cast_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (voter_id, competition_id) DO UPDATE SET
			vote = EXCLUDED.vote,
			cast_at = EXCLUDED.cast_at`,
		event.VoterID, event.CompetitionID, event.UserID, string(event.Choice), event.CastAt)
	if err != nil {
		return fmt.Errorf("failed to upsert vote: %w", err)
	}
	return nil
}

// Tally aggregates the authoritative per-option counts for a competition.
func (r *VoteRepo) Tally(ctx context.Context, competitionID int) (domain.Tally, error) {
	ctx = WithQueryName(ctx, "votes_tally")

	tally := domain.Tally{CompetitionID: competitionID}
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE vote = $1),
			COUNT(*) FILTER (WHERE vote = $2)
		FROM votes
		WHERE competition_id = $3`,
		string(domain.ChoiceA), string(domain.ChoiceB), competitionID,
	).Scan(&tally.A, &tally.B)
	if err != nil {
		return domain.Tally{}, fmt.Errorf("failed to tally votes: %w", err)
	}
	return tally, nil
}
