// Package accounts stores Account records. Username and email lookups
// expect normalized input; uniqueness violations surface as
// common.ErrAlreadyExists and missing rows as common.ErrorNotFound.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id int64) error

	FindByID(ctx context.Context, id int64) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	// FindByUsernameOrEmail matches identifier against both columns.
	FindByUsernameOrEmail(ctx context.Context, identifier string) (*models.Account, error)

	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByRole(ctx context.Context, role models.Role) (bool, error)
}
