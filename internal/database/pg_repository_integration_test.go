package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"portfolio-server/internal/interfaces"
	"portfolio-server/internal/models"

	"github.com/docker/docker/client"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

type PgRepositorySuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
	users     interfaces.UserRepository
	sessions  interfaces.SessionRepository
	logger    *zap.Logger
}

func (s *PgRepositorySuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = zap.NewNop()

	var err error
	s.container, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("portfolio_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	s.Require().NoError(err, "failed to start postgres container")

	dsn, err := s.container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.Require().NoError(RunMigrations(dsn, s.logger))
	// Second run is a no-op.
	s.Require().NoError(RunMigrations(dsn, s.logger))

	s.pool, err = NewPool(s.ctx, PoolConfig{URL: dsn, MaxConns: 20, MaxRetries: 3, RetryDelay: time.Second}, s.logger)
	s.Require().NoError(err)

	s.users = NewPgUserRepository(s.pool, s.logger)
	s.sessions = NewPgSessionRepository(s.pool, s.logger)
}

func (s *PgRepositorySuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PgRepositorySuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, "TRUNCATE TABLE users RESTART IDENTITY CASCADE")
	s.Require().NoError(err)
}

func TestPgRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		t.Skipf("Docker client unavailable: %v", err)
	}
	defer cli.Close()
	if _, err := cli.Ping(context.Background()); err != nil {
		t.Skipf("Docker daemon is not reachable: %v", err)
	}
	suite.Run(t, new(PgRepositorySuite))
}

func (s *PgRepositorySuite) newUser(email, username string) *models.User {
	return &models.User{
		Email:          email,
		Username:       username,
		Name:           username,
		Role:           models.RoleUser,
		HashedPassword: "$2a$10$abcdefghijklmnopqrstuv",
		IsActive:       true,
	}
}

func (s *PgRepositorySuite) TestCreateAndGet() {
	u := s.newUser("alice@example.com", "alice")
	s.Require().NoError(s.users.Create(s.ctx, u))
	s.NotZero(u.ID)
	s.False(u.CreatedAt.IsZero())

	byEmail, err := s.users.GetByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)
	s.Equal(u.HashedPassword, byEmail.HashedPassword)

	byID, err := s.users.GetByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("alice", byID.Username)

	_, err = s.users.GetByID(s.ctx, 9999)
	s.ErrorIs(err, models.ErrUserNotFound)
	_, err = s.users.GetByEmail(s.ctx, "nobody@example.com")
	s.ErrorIs(err, models.ErrUserNotFound)
}

func (s *PgRepositorySuite) TestUniqueViolations() {
	s.Require().NoError(s.users.Create(s.ctx, s.newUser("a@example.com", "a")))
	s.ErrorIs(s.users.Create(s.ctx, s.newUser("a@example.com", "other")), models.ErrEmailAlreadyExists)
	s.ErrorIs(s.users.Create(s.ctx, s.newUser("other@example.com", "a")), models.ErrUserAlreadyExists)

	b := s.newUser("b@example.com", "b")
	s.Require().NoError(s.users.Create(s.ctx, b))
	taken := "a@example.com"
	_, err := s.users.Update(s.ctx, b.ID, models.UserUpdate{Email: &taken})
	s.ErrorIs(err, models.ErrEmailAlreadyExists)
	s.ErrorIs(err, models.ErrConflict)
}

func (s *PgRepositorySuite) TestUpdate() {
	u := s.newUser("c@example.com", "c")
	s.Require().NoError(s.users.Create(s.ctx, u))

	name := "Carol"
	inactive := false
	updated, err := s.users.Update(s.ctx, u.ID, models.UserUpdate{Name: &name, IsActive: &inactive})
	s.Require().NoError(err)
	s.Equal("Carol", updated.Name)
	s.False(updated.IsActive)
	s.Equal("c@example.com", updated.Email)
	s.True(!updated.UpdatedAt.Before(u.UpdatedAt))

	_, err = s.users.Update(s.ctx, 4242, models.UserUpdate{Name: &name})
	s.ErrorIs(err, models.ErrUserNotFound)

	unchanged, err := s.users.Update(s.ctx, u.ID, models.UserUpdate{})
	s.Require().NoError(err)
	s.Equal(updated.UpdatedAt, unchanged.UpdatedAt)

	_, err = s.users.Update(s.ctx, 4242, models.UserUpdate{})
	s.ErrorIs(err, models.ErrUserNotFound)
}

func (s *PgRepositorySuite) TestListAndCount() {
	for _, n := range []string{"a", "b", "c"} {
		s.Require().NoError(s.users.Create(s.ctx, s.newUser(n+"@example.com", n)))
	}
	users, total, err := s.users.List(s.ctx, models.ListParams{Skip: 1, Limit: 10})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Len(users, 2)
	s.Equal("b", users[0].Username)
}

func (s *PgRepositorySuite) TestCreateFirstConcurrent() {
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u := s.newUser(string(rune('a'+i))+"@example.com", string(rune('a'+i)))
			errs <- s.users.CreateFirst(s.ctx, u)
		}(i)
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
		} else {
			s.ErrorIs(err, models.ErrBootstrapClosed)
		}
	}
	s.Equal(1, created)

	count, err := s.users.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *PgRepositorySuite) TestSessions() {
	u := s.newUser("s@example.com", "s")
	s.Require().NoError(s.users.Create(s.ctx, u))
	now := time.Now().UTC().Truncate(time.Millisecond)

	first, err := s.sessions.Touch(s.ctx, u.ID, now.Add(-2*time.Hour), 30*time.Minute)
	s.Require().NoError(err)
	second, err := s.sessions.Touch(s.ctx, u.ID, now.Add(-2*time.Hour+10*time.Minute), 30*time.Minute)
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)

	third, err := s.sessions.Touch(s.ctx, u.ID, now, 30*time.Minute)
	s.Require().NoError(err)
	s.NotEqual(first.ID, third.ID)

	active, err := s.sessions.CountActiveUsers(s.ctx, now.Add(-15*time.Minute), now.Add(time.Second))
	s.Require().NoError(err)
	s.Equal(int64(1), active)

	visitors, err := s.sessions.CountDistinctUsers(s.ctx, now.Add(-24*time.Hour), now.Add(time.Second))
	s.Require().NoError(err)
	s.Equal(int64(1), visitors)
}
