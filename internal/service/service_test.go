package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"portfolio-server/internal/database"
	"portfolio-server/internal/guard"
	"portfolio-server/internal/models"
	"portfolio-server/internal/security"
	"portfolio-server/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "service-test-secret-0123456789"

type testEnv struct {
	users     *database.MemoryUserRepository
	store     *guard.MemoryStore
	guard     *guard.Guard
	codec     *token.Codec
	hasher    *security.Hasher
	directory *Directory
	auth      AuthService
	admin     UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	env := &testEnv{
		users:  database.NewMemoryUserRepository(),
		store:  guard.NewMemoryStore(nil),
		codec:  token.NewCodec(testSecret, "test"),
		hasher: security.NewHasher("", bcrypt.MinCost),
	}
	env.guard = guard.New(env.store, guard.Config{}, logger)
	env.directory = NewDirectory(env.users, env.hasher, logger)
	env.auth = NewAuthService(env.users, env.directory, env.guard, env.codec, env.hasher, AuthConfig{AccessTokenTTL: 30 * time.Minute}, logger)
	env.admin = NewUserService(env.users, env.hasher, logger)
	return env
}

func (e *testEnv) createUser(t *testing.T, email, password string, active bool) *models.User {
	t.Helper()
	u, err := e.admin.Create(context.Background(), CreateUserInput{Email: email, Password: password, Name: "Test", IsActive: &active})
	require.NoError(t, err)
	return u
}

func TestDirectory_Authenticate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.createUser(t, "a@x.com", "pw", true)

	got, err := env.directory.Authenticate(ctx, " A@X.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, errWrong := env.directory.Authenticate(ctx, "a@x.com", "nope")
	_, errMissing := env.directory.Authenticate(ctx, "ghost@x.com", "pw")
	assert.ErrorIs(t, errWrong, models.ErrInvalidCredentials)
	assert.ErrorIs(t, errMissing, models.ErrInvalidCredentials)
	assert.Equal(t, errWrong, errMissing, "missing user and wrong password are indistinguishable")

	assert.True(t, env.directory.IsActive(got))
	assert.False(t, env.directory.IsActive(nil))
}

func TestLogin_TokenResolvesToSameUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.createUser(t, "a@x.com", "pw", true)

	td, err := env.auth.Login(ctx, "1.2.3.4", "a@x.com", "pw")
	require.NoError(t, err)
	require.NotEmpty(t, td.AccessToken)

	claims, err := env.codec.Decode(td.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID, "subject is the numeric id")

	current, err := env.auth.CurrentUser(ctx, td.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.Email, current.Email)
}

func TestLogin_SubjectSurvivesEmailChange(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.createUser(t, "old@x.com", "pw", true)

	td, err := env.auth.Login(ctx, "1.2.3.4", "old@x.com", "pw")
	require.NoError(t, err)

	newEmail := "new@x.com"
	_, err = env.auth.UpdateMe(ctx, u.ID, UpdateMeInput{Email: &newEmail})
	require.NoError(t, err)

	current, err := env.auth.CurrentUser(ctx, td.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", current.Email)
}

func TestLogin_BanAfterFiveFailures(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createUser(t, "a@x.com", "pw", true)

	for i := 0; i < 5; i++ {
		_, err := env.auth.Login(ctx, "1.2.3.4", "a@x.com", "wrong")
		require.ErrorIs(t, err, models.ErrInvalidCredentials, "attempt %d", i+1)
	}

	_, err := env.auth.Login(ctx, "1.2.3.4", "a@x.com", "pw")
	assert.ErrorIs(t, err, models.ErrIPBanned)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = env.auth.Login(ctx, "5.6.7.8", "a@x.com", "pw")
	assert.NoError(t, err, "ban is per client IP")
}

func TestLogin_SuccessResetsFailures(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createUser(t, "a@x.com", "pw", true)

	for i := 0; i < 4; i++ {
		_, err := env.auth.Login(ctx, "1.2.3.4", "a@x.com", "wrong")
		require.ErrorIs(t, err, models.ErrInvalidCredentials)
	}
	_, err := env.auth.Login(ctx, "1.2.3.4", "a@x.com", "pw")
	require.NoError(t, err)
	assert.Zero(t, env.store.Failures("1.2.3.4"))

	for i := 0; i < 4; i++ {
		_, err := env.auth.Login(ctx, "1.2.3.4", "a@x.com", "wrong")
		require.ErrorIs(t, err, models.ErrInvalidCredentials)
	}
	_, err = env.auth.Login(ctx, "1.2.3.4", "a@x.com", "pw")
	assert.NoError(t, err)
}

func TestLogin_UnknownUserCountsAsFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.auth.Login(ctx, "1.2.3.4", "ghost@x.com", "pw")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Equal(t, int64(1), env.store.Failures("1.2.3.4"))
}

func TestLogin_InactiveUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createUser(t, "off@x.com", "pw", false)

	_, err := env.auth.Login(ctx, "1.2.3.4", "off@x.com", "pw")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Equal(t, int64(1), env.store.Failures("1.2.3.4"))
}

func TestCurrentUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.createUser(t, "a@x.com", "pw", true)

	_, err := env.auth.CurrentUser(ctx, "garbage")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	ghost, _, err := env.codec.Encode(999, models.RoleUser, time.Minute)
	require.NoError(t, err)
	_, err = env.auth.CurrentUser(ctx, ghost)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	valid, _, err := env.codec.Encode(u.ID, u.Role, time.Minute)
	require.NoError(t, err)
	inactive := false
	_, err = env.admin.Update(ctx, u.ID, AdminUpdateInput{IsActive: &inactive})
	require.NoError(t, err)
	_, err = env.auth.CurrentUser(ctx, valid)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestBootstrapFirstAdmin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	u, err := env.auth.BootstrapFirstAdmin(ctx, CreateUserInput{Email: "a@x.com", Password: "pw", Name: "A", Role: models.RoleUser})
	require.NoError(t, err)
	assert.True(t, u.IsSuperuser)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.True(t, u.IsActive)
	assert.True(t, env.hasher.Verify("pw", u.HashedPassword))

	_, err = env.auth.BootstrapFirstAdmin(ctx, CreateUserInput{Email: "b@x.com", Password: "pw2", Name: "B"})
	assert.ErrorIs(t, err, models.ErrBootstrapClosed)
	assert.ErrorIs(t, err, models.ErrConflict)

	count, err := env.users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestBootstrapFirstAdmin_InvalidInput(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.auth.BootstrapFirstAdmin(ctx, CreateUserInput{Email: "not-an-email", Password: "pw"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = env.auth.BootstrapFirstAdmin(ctx, CreateUserInput{Email: "a@x.com"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	count, err := env.users.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	seeded, err := env.auth.SeedAdmin(ctx, CreateUserInput{Email: "root@x.com", Password: "pw", Name: "Root", Username: "root"})
	require.NoError(t, err)
	assert.True(t, seeded.IsAdmin())

	again, err := env.auth.SeedAdmin(ctx, CreateUserInput{Email: "root@x.com", Password: "other"})
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, again.ID)
	assert.True(t, env.hasher.Verify("pw", again.HashedPassword), "existing password is kept")

	plain := env.createUser(t, "plain@x.com", "pw", false)
	promoted, err := env.auth.SeedAdmin(ctx, CreateUserInput{Email: "plain@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, plain.ID, promoted.ID)
	assert.True(t, promoted.IsSuperuser)
	assert.True(t, promoted.IsActive)
	assert.Equal(t, models.RoleAdmin, promoted.Role)
}

func TestUpdateMe(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.createUser(t, "a@x.com", "pw", true)
	env.createUser(t, "b@x.com", "pw", true)

	taken := "B@x.com"
	_, err := env.auth.UpdateMe(ctx, a.ID, UpdateMeInput{Email: &taken})
	assert.ErrorIs(t, err, models.ErrEmailAlreadyExists)

	name := "Alice"
	newPass := "s3cret"
	updated, err := env.auth.UpdateMe(ctx, a.ID, UpdateMeInput{Name: &name, Password: &newPass})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.Name)

	_, err = env.auth.Login(ctx, "9.9.9.9", "a@x.com", "s3cret")
	assert.NoError(t, err)

	bad := "nope"
	_, err = env.auth.UpdateMe(ctx, a.ID, UpdateMeInput{Email: &bad})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestUserService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	for _, e := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		env.createUser(t, e, "pw", true)
	}

	users, total, err := env.admin.List(ctx, -5, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, users, 3)

	users, _, err = env.admin.List(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "c@x.com", users[0].Email)

	_, err = env.admin.Get(ctx, 404)
	assert.ErrorIs(t, err, models.ErrUserNotFound)

	blank := "   "
	_, err = env.admin.Update(ctx, users[0].ID, AdminUpdateInput{Role: &blank})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	admin := models.RoleAdmin
	updated, err := env.admin.Update(ctx, users[0].ID, AdminUpdateInput{Role: &admin})
	require.NoError(t, err)
	assert.True(t, updated.IsAdmin())

	_, err = env.admin.Create(ctx, CreateUserInput{Email: "a@x.com", Password: "pw"})
	assert.ErrorIs(t, err, models.ErrEmailAlreadyExists)
}

func TestUserService_FreeTextRole(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	dev, err := env.admin.Create(ctx, CreateUserInput{Email: "v@x.com", Password: "pw", Role: "Full Stack Developer"})
	require.NoError(t, err)
	assert.Equal(t, "Full Stack Developer", dev.Role)
	assert.False(t, dev.IsAdmin())

	role := "  Designer "
	updated, err := env.admin.Update(ctx, dev.ID, AdminUpdateInput{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "Designer", updated.Role)
	assert.False(t, updated.IsAdmin())

	tooLong := strings.Repeat("r", models.MaxRoleLength+1)
	_, err = env.admin.Create(ctx, CreateUserInput{Email: "w@x.com", Password: "pw", Role: tooLong})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = env.admin.Update(ctx, dev.ID, AdminUpdateInput{Role: &tooLong})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	exact := strings.Repeat("r", models.MaxRoleLength)
	_, err = env.admin.Update(ctx, dev.ID, AdminUpdateInput{Role: &exact})
	assert.NoError(t, err)
}

func TestCreateUser_DefaultUsernameIsNotTheEmail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	a := env.createUser(t, "alice@x.com", "pw", true)
	assert.NotEqual(t, "alice@x.com", a.Username)
	assert.True(t, strings.HasPrefix(a.Username, "alice-"), a.Username)

	// The old address is free for a new account once its owner moves on.
	moved := "alice@y.com"
	_, err := env.auth.UpdateMe(ctx, a.ID, UpdateMeInput{Email: &moved})
	require.NoError(t, err)
	b, err := env.admin.Create(ctx, CreateUserInput{Email: "alice@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.NotEqual(t, a.Username, b.Username)
}

type brokenUsers struct{ *database.MemoryUserRepository }

var errDBDown = errors.New("db down")

func (brokenUsers) GetByEmail(context.Context, string) (*models.User, error) { return nil, errDBDown }

func TestLogin_RepositoryErrorIsInternal(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	logger := zap.NewNop()
	repo := brokenUsers{env.users}
	dir := NewDirectory(repo, env.hasher, logger)
	auth := NewAuthService(repo, dir, env.guard, env.codec, env.hasher, AuthConfig{AccessTokenTTL: time.Minute}, logger)

	_, err := auth.Login(ctx, "1.2.3.4", "a@x.com", "pw")
	require.Error(t, err)
	assert.ErrorIs(t, err, errDBDown)
	assert.NotErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Zero(t, env.store.Failures("1.2.3.4"), "infrastructure errors are not held against the client")
}
