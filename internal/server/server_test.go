package server

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/votepulse/internal/app"
	"github.com/pscheid92/votepulse/internal/auth"
	"github.com/pscheid92/votepulse/internal/broadcast"
	"github.com/pscheid92/votepulse/internal/config"
	"github.com/pscheid92/votepulse/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// In-memory implementations of the domain ports for handler tests.

type stubCompetitions struct {
	mu   sync.Mutex
	byID map[int]*domain.Competition
}

func (m *stubCompetitions) GetByID(_ context.Context, id int) (*domain.Competition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrCompetitionNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *stubCompetitions) ListActive(context.Context) ([]domain.Competition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Competition
	for _, c := range m.byID {
		if c.Active() {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *stubCompetitions) Create(_ context.Context, c *domain.Competition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = len(m.byID) + 1
	m.byID[c.ID] = c
	return nil
}

func (m *stubCompetitions) Update(_ context.Context, c *domain.Competition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[c.ID]; !ok {
		return domain.ErrCompetitionNotFound
	}
	m.byID[c.ID] = c
	return nil
}

func (m *stubCompetitions) SetStatus(_ context.Context, id int, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return domain.ErrCompetitionNotFound
	}
	c.Status = status
	return nil
}

func (m *stubCompetitions) SetArchived(_ context.Context, id int, archived bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return domain.ErrCompetitionNotFound
	}
	c.IsArchived = archived
	return nil
}

func (m *stubCompetitions) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrCompetitionNotFound
	}
	delete(m.byID, id)
	return nil
}

type stubVotes struct {
	mu    sync.Mutex
	tally domain.Tally
}

func (m *stubVotes) Upsert(context.Context, domain.VoteEvent) error { return nil }

func (m *stubVotes) Tally(_ context.Context, competitionID int) (domain.Tally, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tally
	t.CompetitionID = competitionID
	return t, nil
}

type stubUsers struct {
	mu        sync.Mutex
	byName    map[string]*domain.User
	nextID    int
	createErr error
}

func (m *stubUsers) Create(_ context.Context, username, email, passwordHash string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	if _, ok := m.byName[username]; ok {
		return nil, domain.ErrUsernameTaken
	}
	user := &domain.User{ID: m.nextID, Username: username, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	m.nextID++
	m.byName[username] = user
	return user, nil
}

func (m *stubUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byName[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (m *stubUsers) Counts(context.Context) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byName), 0, nil
}

type stubQueue struct {
	mu        sync.Mutex
	appends   []domain.VoteEvent
	appendErr error
}

func (m *stubQueue) Append(_ context.Context, event domain.VoteEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appends = append(m.appends, event)
	return nil
}

func (m *stubQueue) DrainBlocking(ctx context.Context) (domain.QueueEntry, error) {
	<-ctx.Done()
	return domain.QueueEntry{}, ctx.Err()
}

func (m *stubQueue) DeadLetter(context.Context, []byte, string) error { return nil }
func (m *stubQueue) Len(context.Context) (int64, error)              { return 0, nil }

func (m *stubQueue) appended() []domain.VoteEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.VoteEvent(nil), m.appends...)
}

type stubPublisher struct {
	mu        sync.Mutex
	published []domain.BroadcastMessage
}

func (m *stubPublisher) Publish(_ context.Context, msg domain.BroadcastMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, msg)
	return nil
}

type stubDebouncer struct{ allow bool }

func (m *stubDebouncer) Allow(context.Context, int, int) (bool, error) { return m.allow, nil }

// stubSubscription mirrors the broadcast channel in memory.
type stubSubscription struct {
	ch        chan domain.BroadcastMessage
	closeOnce sync.Once
}

func (s *stubSubscription) Messages() <-chan domain.BroadcastMessage { return s.ch }

func (s *stubSubscription) Close() error {
	s.closeOnce.Do(func() { close(s.ch) })
	return nil
}

type stubSubscriber struct {
	mu   sync.Mutex
	subs []*stubSubscription
	err  error
}

func (m *stubSubscriber) Subscribe(context.Context) (domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	sub := &stubSubscription{ch: make(chan domain.BroadcastMessage, 16)}
	m.subs = append(m.subs, sub)
	return sub, nil
}

func (m *stubSubscriber) publishAll(msg domain.BroadcastMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subs {
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

type fixture struct {
	server       *Server
	httpServer   *httptest.Server
	competitions *stubCompetitions
	votes        *stubVotes
	users        *stubUsers
	queue        *stubQueue
	publisher    *stubPublisher
	debouncer    *stubDebouncer
	subscriber   *stubSubscriber
	hub          *broadcast.Hub
	hubSub       *stubSubscription
	tokens       *auth.TokenService
	config       *config.Config
}

type stubRedisHealth struct{ err error }

func (s *stubRedisHealth) Ping(ctx context.Context) *goredis.StatusCmd {
	cmd := goredis.NewStatusCmd(ctx)
	cmd.SetErr(s.err)
	return cmd
}

type stubPostgresHealth struct{ err error }

func (s *stubPostgresHealth) Ping(context.Context) error { return s.err }

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:              "test",
		Port:                "0",
		JWTSecret:           "test-secret-0123456789",
		MaxClientsPerStream: 8,
		HeartbeatInterval:   time.Minute,
		VoteRatePerMinute:   600,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := clockwork.NewRealClock()
	cfg := testConfig()

	f := &fixture{
		competitions: &stubCompetitions{byID: make(map[int]*domain.Competition)},
		votes:        &stubVotes{},
		users:        &stubUsers{byName: make(map[string]*domain.User), nextID: 1},
		queue:        &stubQueue{},
		publisher:    &stubPublisher{},
		debouncer:    &stubDebouncer{allow: true},
		subscriber:   &stubSubscriber{},
		tokens:       auth.NewTokenService(cfg.JWTSecret, clock),
		config:       cfg,
	}

	f.hubSub = &stubSubscription{ch: make(chan domain.BroadcastMessage, 16)}
	f.hub = broadcast.NewHub(f.hubSub, clock, cfg.MaxClientsPerStream)
	t.Cleanup(f.hub.Stop)

	service := app.NewService(f.competitions, f.votes, f.users, f.queue, f.publisher, f.debouncer, f.tokens, clock)
	f.server = NewServer(cfg, service, f.hub, f.tokens, f.subscriber, nil, nil, clock)
	f.server.redisHealthCheck = &stubRedisHealth{}
	f.server.postgresHealthCheck = &stubPostgresHealth{}

	f.httpServer = httptest.NewServer(f.server.echo)
	t.Cleanup(f.httpServer.Close)
	return f
}

func (f *fixture) addCompetition(t *testing.T, id int, status string) *domain.Competition {
	t.Helper()
	c := &domain.Competition{
		ID: id, Name: "Cats vs Dogs", OptionA: "Cats", OptionB: "Dogs", Status: status,
	}
	f.competitions.mu.Lock()
	f.competitions.byID[id] = c
	f.competitions.mu.Unlock()
	return c
}

func (f *fixture) tokenFor(t *testing.T, userID int, username string, admin bool) string {
	t.Helper()
	token, err := f.tokens.Mint(&domain.User{ID: userID, Username: username, IsAdmin: admin})
	require.NoError(t, err)
	return token
}
