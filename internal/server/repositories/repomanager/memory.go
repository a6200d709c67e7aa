package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/onetimecodes"
)

// InMemoryRepositoryManager backs all repositories with process memory.
// WithTx serializes transactions against each other but does not roll back
// writes made before fn fails.
type InMemoryRepositoryManager struct {
	txMu  sync.Mutex
	repos Repositories
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		repos: Repositories{
			Accounts: accounts.NewMemoryRepository(),
			Codes:    onetimecodes.NewMemoryRepository(),
		},
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context) error {
	return nil
}

func (m *InMemoryRepositoryManager) Repos() Repositories {
	return m.repos
}

func (m *InMemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, m.repos)
}

func (m *InMemoryRepositoryManager) Close() error {
	return nil
}
