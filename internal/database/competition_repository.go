package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/votepulse/internal/domain"
)

// competitionColumns must match the Scan order in scanCompetition.
const competitionColumns = `id, name, description, option_a, option_b, status, created_by,
	created_at, updated_at, scheduled_start, scheduled_end, closed_at, is_archived`

// CompetitionRepo implements domain.CompetitionRepository backed by PostgreSQL.
type CompetitionRepo struct {
	pool *pgxpool.Pool
}

var _ domain.CompetitionRepository = (*CompetitionRepo)(nil)

// NewCompetitionRepo creates a CompetitionRepo on the shared pool.
func NewCompetitionRepo(pool *pgxpool.Pool) *CompetitionRepo {
	return &CompetitionRepo{pool: pool}
}

func scanCompetition(row pgx.Row) (*domain.Competition, error) {
	var c domain.Competition
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.OptionA, &c.OptionB, &c.Status, &c.CreatedBy,
		&c.CreatedAt, &c.UpdatedAt, &c.ScheduledStart, &c.ScheduledEnd, &c.ClosedAt, &c.IsArchived,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CompetitionRepo) GetByID(ctx context.Context, id int) (*domain.Competition, error) {
	ctx = WithQueryName(ctx, "competitions_get_by_id")

	row := r.pool.QueryRow(ctx, `
		SELECT `+competitionColumns+`
		FROM competitions
		WHERE id = $1`,
		id)

	c, err := scanCompetition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to get competition: %w", err)
	}
	return c, nil
}

// ListActive returns non-archived active competitions, newest first.
func (r *CompetitionRepo) ListActive(ctx context.Context) ([]domain.Competition, error) {
	ctx = WithQueryName(ctx, "competitions_list_active")

	rows, err := r.pool.Query(ctx, `
		SELECT `+competitionColumns+`
		FROM competitions
		WHERE status = $1 AND NOT is_archived
		ORDER BY created_at DESC`,
		domain.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}
	defer rows.Close()

	var competitions []domain.Competition
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan competition: %w", err)
		}
		competitions = append(competitions, *c)
	}
	return competitions, rows.Err()
}

func (r *CompetitionRepo) Create(ctx context.Context, c *domain.Competition) error {
	ctx = WithQueryName(ctx, "competitions_create")

	row := r.pool.QueryRow(ctx, `
		INSERT INTO competitions (name, description, option_a, option_b, status, created_by, scheduled_start, scheduled_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		c.Name, c.Description, c.OptionA, c.OptionB, c.Status, c.CreatedBy, c.ScheduledStart, c.ScheduledEnd)

	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create competition: %w", err)
	}
	return nil
}

func (r *CompetitionRepo) Update(ctx context.Context, c *domain.Competition) error {
	ctx = WithQueryName(ctx, "competitions_update")

	tag, err := r.pool.Exec(ctx, `
		UPDATE competitions
		SET name = $1, description = $2, option_a = $3, option_b = $4,
			scheduled_start = $5, scheduled_end = $6, updated_at = NOW()
		WHERE id = $7`,
		c.Name, c.Description, c.OptionA, c.OptionB, c.ScheduledStart, c.ScheduledEnd, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update competition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCompetitionNotFound
	}
	return nil
}

// SetStatus transitions a competition. Closing also stamps closed_at;
// reopening clears it.
func (r *CompetitionRepo) SetStatus(ctx context.Context, id int, status string) error {
	ctx = WithQueryName(ctx, "competitions_set_status")

	tag, err := r.pool.Exec(ctx, `
		UPDATE competitions
		SET status = $1,
			closed_at = CASE WHEN $1 = 'closed' THEN NOW() ELSE NULL END,
			updated_at = NOW()
		WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("failed to set competition status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCompetitionNotFound
	}
	return nil
}

func (r *CompetitionRepo) SetArchived(ctx context.Context, id int, archived bool) error {
	ctx = WithQueryName(ctx, "competitions_set_archived")

	tag, err := r.pool.Exec(ctx, `
		UPDATE competitions
		SET is_archived = $1, updated_at = NOW()
		WHERE id = $2`,
		archived, id)
	if err != nil {
		return fmt.Errorf("failed to set competition archived state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCompetitionNotFound
	}
	return nil
}

// Delete removes a competition and, via the foreign key cascade, its votes.
func (r *CompetitionRepo) Delete(ctx context.Context, id int) error {
	ctx = WithQueryName(ctx, "competitions_delete")

	tag, err := r.pool.Exec(ctx, `DELETE FROM competitions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete competition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCompetitionNotFound
	}
	return nil
}
