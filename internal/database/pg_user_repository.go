package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"portfolio-server/internal/interfaces"
	"portfolio-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const (
	userColumns = `id, email, username, name, role, hashed_password, is_active, is_superuser, created_at, updated_at`

	createUserQuery = `
        INSERT INTO users (email, username, name, role, hashed_password, is_active, is_superuser)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`
	getUserByIDQuery    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByEmailQuery = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	listUsersQuery      = `SELECT ` + userColumns + ` FROM users ORDER BY id ASC OFFSET $1 LIMIT $2`
	countUsersQuery     = `SELECT COUNT(*) FROM users`

	// Serializes first-user creation across connections and instances.
	bootstrapLockQuery = `SELECT pg_advisory_xact_lock(728391)`

	pgUniqueViolation = "23505"
)

var _ interfaces.UserRepository = (*pgUserRepository)(nil)

type pgUserRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgUserRepository returns a PostgreSQL-backed UserRepository.
func NewPgUserRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.UserRepository {
	return &pgUserRepository{
		db:     db,
		logger: logger.Named("PgUserRepo"),
	}
}

// mapUniqueViolation translates a unique constraint violation into the
// matching conflict error. ok is false for any other error.
func mapUniqueViolation(err error) (mapped error, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return nil, false
	}
	switch pgErr.ConstraintName {
	case "users_email_key":
		return models.ErrEmailAlreadyExists, true
	case "users_username_key":
		return models.ErrUserAlreadyExists, true
	default:
		return fmt.Errorf("%w: %s", models.ErrConflict, pgErr.ConstraintName), true
	}
}

func insertUser(ctx context.Context, q interfaces.DBTX, user *models.User) error {
	return q.QueryRow(ctx, createUserQuery,
		user.Email, user.Username, user.Name, user.Role, user.HashedPassword, user.IsActive, user.IsSuperuser,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *pgUserRepository) Create(ctx context.Context, user *models.User) error {
	r.logger.Debug("Executing query", zap.String("query", "createUser"), zap.String("email", user.Email))
	if err := insertUser(ctx, r.db, user); err != nil {
		if mapped, ok := mapUniqueViolation(err); ok {
			r.logger.Warn("Attempted to create duplicate user", zap.String("email", user.Email), zap.String("username", user.Username), zap.Error(mapped))
			return mapped
		}
		r.logger.Error("Failed to create user", zap.String("email", user.Email), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}
	r.logger.Info("User created", zap.Int64("userID", user.ID), zap.String("email", user.Email))
	return nil
}

// CreateFirst takes a transaction-scoped advisory lock, checks that the
// table is empty and inserts user. Concurrent callers queue on the lock,
// so at most one of them sees an empty table.
func (r *pgUserRepository) CreateFirst(ctx context.Context, user *models.User) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin bootstrap transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.logger.Error("Failed to roll back bootstrap transaction", zap.Error(rbErr))
			}
		}
	}()

	if _, err = tx.Exec(ctx, bootstrapLockQuery); err != nil {
		return fmt.Errorf("failed to take bootstrap lock: %w", err)
	}

	var count int64
	if err = tx.QueryRow(ctx, countUsersQuery).Scan(&count); err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		r.logger.Warn("Bootstrap refused, users already exist", zap.Int64("count", count))
		return models.ErrBootstrapClosed
	}

	if err = insertUser(ctx, tx, user); err != nil {
		if mapped, ok := mapUniqueViolation(err); ok {
			return mapped
		}
		return fmt.Errorf("failed to insert first user: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit bootstrap transaction: %w", err)
	}
	r.logger.Info("First user created", zap.Int64("userID", user.ID), zap.String("email", user.Email))
	return nil
}

func (r *pgUserRepository) getOne(ctx context.Context, query string, arg any, field zap.Field) (*models.User, error) {
	var user models.User
	if err := pgxscan.Get(ctx, r.db, &user, query, arg); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("User not found", field)
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user", field, zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *pgUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, getUserByIDQuery, id, zap.Int64("userID", id))
}

func (r *pgUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, getUserByEmailQuery, email, zap.String("email", email))
}

// Update applies the non-nil fields of upd and returns the updated row.
// Password must already be hashed into HashedPassword.
func (r *pgUserRepository) Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
	if upd.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	sets := []string{"updated_at = NOW()"}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.Username != nil {
		add("username", *upd.Username)
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.HashedPassword != nil {
		add("hashed_password", *upd.HashedPassword)
	}
	if upd.Role != nil {
		add("role", *upd.Role)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	if upd.IsSuperuser != nil {
		add("is_superuser", *upd.IsSuperuser)
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), userColumns)
	r.logger.Debug("Executing update user query", zap.Int64("userID", id), zap.Int("fields", len(args)-1))

	var user models.User
	if err := pgxscan.Get(ctx, r.db, &user, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		if mapped, ok := mapUniqueViolation(err); ok {
			r.logger.Warn("Update would duplicate a unique field", zap.Int64("userID", id), zap.Error(mapped))
			return nil, mapped
		}
		r.logger.Error("Failed to update user", zap.Int64("userID", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	r.logger.Info("User updated", zap.Int64("userID", id))
	return &user, nil
}

func (r *pgUserRepository) List(ctx context.Context, params models.ListParams) ([]models.User, int64, error) {
	var users []models.User
	if err := pgxscan.Select(ctx, r.db, &users, listUsersQuery, params.Skip, params.Limit); err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, total, nil
}

func (r *pgUserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, countUsersQuery).Scan(&count); err != nil {
		r.logger.Error("Failed to count users", zap.Error(err))
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
