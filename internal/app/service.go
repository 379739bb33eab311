package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/votepulse/internal/auth"
	"github.com/pscheid92/votepulse/internal/domain"
	"github.com/pscheid92/votepulse/internal/logging"
	"github.com/pscheid92/votepulse/internal/metrics"
)

const (
	minUsernameLength = 3
	minPasswordLength = 8
)

// Debouncer rejects rapid duplicate submissions of the same vote.
type Debouncer interface {
	Allow(ctx context.Context, competitionID, userID int) (bool, error)
}

// Stats is the admin overview payload.
type Stats struct {
	Users      int   `json:"total_users"`
	Votes      int   `json:"total_votes"`
	QueueDepth int64 `json:"queue_depth"`
}

// Service is the application layer, the only component that references
// multiple domain components. It orchestrates all use cases.
type Service struct {
	competitions domain.CompetitionRepository
	votes        domain.VoteRepository
	users        domain.UserRepository
	queue        domain.VoteQueue
	publisher    domain.VotePublisher
	debouncer    Debouncer
	tokens       *auth.TokenService
	clock        clockwork.Clock
}

// NewService creates the application layer service.
func NewService(
	competitions domain.CompetitionRepository,
	votes domain.VoteRepository,
	users domain.UserRepository,
	queue domain.VoteQueue,
	publisher domain.VotePublisher,
	debouncer Debouncer,
	tokens *auth.TokenService,
	clock clockwork.Clock,
) *Service {
	return &Service{
		competitions: competitions,
		votes:        votes,
		users:        users,
		queue:        queue,
		publisher:    publisher,
		debouncer:    debouncer,
		tokens:       tokens,
		clock:        clock,
	}
}

// SubmitVote validates a ballot, enqueues it, and notifies live
// viewers. The returned tally is read from the store and may trail the
// queue; the enqueued event is the authoritative record.
func (s *Service) SubmitVote(ctx context.Context, identity domain.Identity, competitionID int, rawChoice string) (domain.Tally, error) {
	start := s.clock.Now()
	defer func() {
		metrics.VoteIntakeDuration.Observe(s.clock.Since(start).Seconds())
	}()

	competition, err := s.competitions.GetByID(ctx, competitionID)
	if err != nil {
		metrics.VotesRejectedTotal.WithLabelValues("not_found").Inc()
		return domain.Tally{}, err
	}
	if !competition.Active() {
		metrics.VotesRejectedTotal.WithLabelValues("closed").Inc()
		return domain.Tally{}, domain.ErrCompetitionClosed
	}

	choice, err := domain.ParseChoice(rawChoice)
	if err != nil {
		metrics.VotesRejectedTotal.WithLabelValues("invalid_choice").Inc()
		return domain.Tally{}, err
	}

	allowed, err := s.debouncer.Allow(ctx, competitionID, identity.UserID)
	if err != nil {
		// The debounce window is advisory; if Redis cannot answer, the
		// vote still counts and the upsert absorbs any duplicate.
		slog.Warn("debounce check failed, accepting vote",
			logging.WithCompetition(competitionID),
			logging.WithError(err))
	} else if !allowed {
		metrics.VotesRejectedTotal.WithLabelValues("debounced").Inc()
		return domain.Tally{}, domain.ErrDuplicateVote
	}

	event := domain.VoteEvent{
		EventID:       uuid.NewString(),
		VoterID:       domain.VoterIDFor(identity.UserID),
		UserID:        identity.UserID,
		CompetitionID: competitionID,
		Choice:        choice,
		CastAt:        s.clock.Now().UTC(),
	}

	if err := s.queue.Append(ctx, event); err != nil {
		metrics.VotesRejectedTotal.WithLabelValues("queue_unavailable").Inc()
		return domain.Tally{}, err
	}
	metrics.VotesAcceptedTotal.WithLabelValues(string(choice)).Inc()

	// Best effort: a failed notification only delays the live update,
	// the vote itself is safely queued.
	if err := s.publisher.Publish(ctx, domain.BroadcastMessage{
		CompetitionID: competitionID,
		OccurredAt:    event.CastAt,
	}); err != nil {
		slog.Warn("failed to publish vote notification",
			logging.WithCompetition(competitionID),
			logging.WithError(err))
	}

	slog.Info("vote accepted",
		logging.WithCompetition(competitionID),
		logging.WithVoter(event.VoterID),
		"choice", choice)

	return s.staleTally(ctx, competitionID)
}

// staleTally reads the current store-side counts. Failures degrade to
// an empty tally because the vote was already accepted.
func (s *Service) staleTally(ctx context.Context, competitionID int) (domain.Tally, error) {
	tally, err := s.votes.Tally(ctx, competitionID)
	if err != nil {
		slog.Warn("failed to read tally after vote",
			logging.WithCompetition(competitionID),
			logging.WithError(err))
		return domain.Tally{CompetitionID: competitionID}, nil
	}
	return tally, nil
}

// Scores returns the persisted tally for a competition.
func (s *Service) Scores(ctx context.Context, competitionID int) (*domain.Competition, domain.Tally, error) {
	competition, err := s.competitions.GetByID(ctx, competitionID)
	if err != nil {
		return nil, domain.Tally{}, err
	}

	tally, err := s.votes.Tally(ctx, competitionID)
	if err != nil {
		return nil, domain.Tally{}, err
	}
	return competition, tally, nil
}

// ListCompetitions returns all open competitions.
func (s *Service) ListCompetitions(ctx context.Context) ([]domain.Competition, error) {
	return s.competitions.ListActive(ctx)
}

// GetCompetition returns a single competition by ID.
func (s *Service) GetCompetition(ctx context.Context, id int) (*domain.Competition, error) {
	return s.competitions.GetByID(ctx, id)
}

// Register creates a user account and returns it with a fresh token.
func (s *Service) Register(ctx context.Context, username, email, password string) (*domain.User, string, error) {
	username = strings.TrimSpace(username)
	if len(username) < minUsernameLength {
		return nil, "", fmt.Errorf("%w: username must be at least %d characters", domain.ErrInvalidInput, minUsernameLength)
	}
	if len(password) < minPasswordLength {
		return nil, "", fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, username, strings.TrimSpace(email), hash)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Mint(user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to mint token: %w", err)
	}

	slog.Info("user registered", "username", user.Username, "user_id", user.ID)
	return user, token, nil
}

// Login verifies credentials and returns the user with a fresh token.
// Unknown users and wrong passwords are indistinguishable to callers.
func (s *Service) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Mint(user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to mint token: %w", err)
	}
	return user, token, nil
}

// CreateCompetition opens a new competition on behalf of an admin.
func (s *Service) CreateCompetition(ctx context.Context, identity domain.Identity, c *domain.Competition) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: competition name is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(c.OptionA) == "" || strings.TrimSpace(c.OptionB) == "" {
		return fmt.Errorf("%w: both options are required", domain.ErrInvalidInput)
	}
	if c.Status == "" {
		if c.ScheduledStart != nil {
			c.Status = domain.StatusScheduled
		} else {
			c.Status = domain.StatusActive
		}
	}
	c.CreatedBy = identity.UserID

	if err := s.competitions.Create(ctx, c); err != nil {
		return err
	}

	slog.Info("competition created",
		logging.WithCompetition(c.ID),
		"name", c.Name,
		"created_by", identity.UserID)
	return nil
}

// UpdateCompetition edits competition metadata.
func (s *Service) UpdateCompetition(ctx context.Context, c *domain.Competition) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: competition name is required", domain.ErrInvalidInput)
	}
	return s.competitions.Update(ctx, c)
}

// CloseCompetition stops vote intake. Queued votes for this
// competition still drain to the store.
func (s *Service) CloseCompetition(ctx context.Context, id int) error {
	if err := s.competitions.SetStatus(ctx, id, domain.StatusClosed); err != nil {
		return err
	}
	slog.Info("competition closed", logging.WithCompetition(id))
	return nil
}

// OpenCompetition resumes vote intake for a closed competition.
func (s *Service) OpenCompetition(ctx context.Context, id int) error {
	if err := s.competitions.SetStatus(ctx, id, domain.StatusActive); err != nil {
		return err
	}
	slog.Info("competition reopened", logging.WithCompetition(id))
	return nil
}

// SetCompetitionArchived hides or restores a competition.
func (s *Service) SetCompetitionArchived(ctx context.Context, id int, archived bool) error {
	return s.competitions.SetArchived(ctx, id, archived)
}

// DeleteCompetition removes a competition and its votes.
func (s *Service) DeleteCompetition(ctx context.Context, id int) error {
	if err := s.competitions.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("competition deleted", logging.WithCompetition(id))
	return nil
}

// AdminStats summarizes platform activity for the admin dashboard.
func (s *Service) AdminStats(ctx context.Context) (Stats, error) {
	users, votes, err := s.users.Counts(ctx)
	if err != nil {
		return Stats{}, err
	}

	depth, err := s.queue.Len(ctx)
	if err != nil {
		slog.Warn("failed to read queue depth", logging.WithError(err))
		depth = -1
	}

	return Stats{Users: users, Votes: votes, QueueDepth: depth}, nil
}
