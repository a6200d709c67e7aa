package accounts

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

// MemoryRepository keeps accounts in process memory. It enforces the same
// uniqueness rules as the accounts table and hands out copies, so callers
// never share state with the store.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]models.Account
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[int64]models.Account)}
}

func (r *MemoryRepository) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflicts(0, a.Username, a.Email, a.Provider, a.ProviderID) {
		return nil, common.ErrAlreadyExists
	}
	r.nextID++
	a.ID = r.nextID
	r.byID[a.ID] = *a
	return a, nil
}

func (r *MemoryRepository) Update(_ context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[a.ID]; !ok {
		return common.ErrorNotFound
	}
	if r.conflicts(a.ID, a.Username, a.Email, a.Provider, a.ProviderID) {
		return common.ErrAlreadyExists
	}
	r.byID[a.ID] = *a
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id int64) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.Email == email })
}

func (r *MemoryRepository) FindByUsername(_ context.Context, username string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.Username == username })
}

func (r *MemoryRepository) FindByUsernameOrEmail(ctx context.Context, identifier string) (*models.Account, error) {
	if a, err := r.FindByUsername(ctx, identifier); err == nil {
		return a, nil
	}
	return r.FindByEmail(ctx, identifier)
}

func (r *MemoryRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(func(a *models.Account) bool { return a.Username == username })
}

func (r *MemoryRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(func(a *models.Account) bool { return a.Email == email })
}

func (r *MemoryRepository) ExistsByRole(ctx context.Context, role models.Role) (bool, error) {
	return r.exists(func(a *models.Account) bool { return a.Role == role })
}

func (r *MemoryRepository) find(match func(*models.Account) bool) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.byID {
		if match(&a) {
			return &a, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) exists(match func(*models.Account) bool) (bool, error) {
	_, err := r.find(match)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// conflicts mirrors the UNIQUE constraints of the accounts table.
// Caller holds r.mu.
func (r *MemoryRepository) conflicts(selfID int64, username, email string, provider models.Provider, providerID string) bool {
	for id, other := range r.byID {
		if id == selfID {
			continue
		}
		if other.Username == username || other.Email == email {
			return true
		}
		if providerID != "" && other.Provider == provider && other.ProviderID == providerID {
			return true
		}
	}
	return false
}
