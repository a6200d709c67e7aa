// Package repomanager wires repository implementations to a backing store
// and runs work inside store transactions.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/onetimecodes"
)

// Repositories is a set of repositories bound to one connection or
// transaction.
type Repositories struct {
	Accounts accounts.Repository
	Codes    onetimecodes.Repository
}

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error

	// Repos returns repositories outside any transaction.
	Repos() Repositories

	// WithTx runs fn with repositories bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error

	Close() error
}
