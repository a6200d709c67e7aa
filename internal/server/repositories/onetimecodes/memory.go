package onetimecodes

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

// MemoryRepository keeps codes in insertion order in process memory.
type MemoryRepository struct {
	mu    sync.Mutex
	codes []models.OneTimeCode
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(_ context.Context, c *models.OneTimeCode) (*models.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.ID = int64(len(r.codes) + 1)
	r.codes = append(r.codes, *c)
	return c, nil
}

func (r *MemoryRepository) FindLatest(_ context.Context, accountID int64, purpose models.Purpose) (*models.OneTimeCode, error) {
	return r.latest(func(c *models.OneTimeCode) bool {
		return c.AccountID == accountID && c.Purpose == purpose
	})
}

func (r *MemoryRepository) FindByValue(_ context.Context, accountID int64, purpose models.Purpose, value string) (*models.OneTimeCode, error) {
	return r.latest(func(c *models.OneTimeCode) bool {
		return c.AccountID == accountID && c.Purpose == purpose && c.Value == value
	})
}

func (r *MemoryRepository) Update(_ context.Context, c *models.OneTimeCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := int(c.ID) - 1
	if i < 0 || i >= len(r.codes) {
		return common.ErrorNotFound
	}
	stored := &r.codes[i]
	if stored.Version != c.Version {
		return common.ErrVersionConflict
	}
	stored.State = c.State
	stored.Attempts = c.Attempts
	stored.Version++
	c.Version = stored.Version
	return nil
}

func (r *MemoryRepository) SupersedeActive(_ context.Context, accountID int64, purpose models.Purpose) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for i := range r.codes {
		c := &r.codes[i]
		if c.AccountID == accountID && c.Purpose == purpose && c.Supersede() {
			c.Version++
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) latest(match func(*models.OneTimeCode) bool) (*models.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.codes) - 1; i >= 0; i-- {
		if match(&r.codes[i]) {
			c := r.codes[i]
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}
