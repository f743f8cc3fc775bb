package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"portfolio-server/internal/interfaces"
	"portfolio-server/internal/models"
)

var _ interfaces.UserRepository = (*MemoryUserRepository)(nil)

// MemoryUserRepository is an in-process UserRepository with the same
// uniqueness and not-found semantics as the PostgreSQL one. Used by tests.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]models.User
	now    func() time.Time
}

// NewMemoryUserRepository returns an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		nextID: 1,
		users:  make(map[int64]models.User),
		now:    time.Now,
	}
}

// conflictLocked reports a uniqueness violation against users other than skipID.
func (r *MemoryUserRepository) conflictLocked(email, username string, skipID int64) error {
	for id, u := range r.users {
		if id == skipID {
			continue
		}
		if u.Email == email {
			return models.ErrEmailAlreadyExists
		}
		if u.Username == username {
			return models.ErrUserAlreadyExists
		}
	}
	return nil
}

func (r *MemoryUserRepository) insertLocked(user *models.User) error {
	if err := r.conflictLocked(user.Email, user.Username, 0); err != nil {
		return err
	}
	now := r.now()
	user.ID = r.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	r.nextID++
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(user)
}

func (r *MemoryUserRepository) CreateFirst(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.users) > 0 {
		return models.ErrBootstrapClosed
	}
	return r.insertLocked(user)
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (r *MemoryUserRepository) Update(_ context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	if upd.IsEmpty() {
		return &u, nil
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if err := r.conflictLocked(u.Email, u.Username, id); err != nil {
		return nil, err
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.HashedPassword != nil {
		u.HashedPassword = *upd.HashedPassword
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.IsSuperuser != nil {
		u.IsSuperuser = *upd.IsSuperuser
	}
	u.UpdatedAt = r.now()
	r.users[id] = u
	return &u, nil
}

func (r *MemoryUserRepository) List(_ context.Context, params models.ListParams) ([]models.User, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := int64(len(all))
	if params.Skip >= len(all) {
		return []models.User{}, total, nil
	}
	all = all[params.Skip:]
	if params.Limit >= 0 && params.Limit < len(all) {
		all = all[:params.Limit]
	}
	return all, total, nil
}

func (r *MemoryUserRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}
