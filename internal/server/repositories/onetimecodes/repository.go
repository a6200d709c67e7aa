// Package onetimecodes stores OneTimeCode records. Records are never
// deleted; Update is compare-and-swap on Version.
package onetimecodes

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, code *models.OneTimeCode) (*models.OneTimeCode, error)

	// FindLatest returns the most recently issued code for (account, purpose)
	// in any state, or common.ErrorNotFound.
	FindLatest(ctx context.Context, accountID int64, purpose models.Purpose) (*models.OneTimeCode, error)

	// FindByValue returns the most recent code for (account, purpose) whose
	// value equals value, or common.ErrorNotFound.
	FindByValue(ctx context.Context, accountID int64, purpose models.Purpose, value string) (*models.OneTimeCode, error)

	// Update persists state and attempts if the stored version still equals
	// code.Version, then increments code.Version. A stale version yields
	// common.ErrVersionConflict.
	Update(ctx context.Context, code *models.OneTimeCode) error

	// SupersedeActive moves every ACTIVE code of (account, purpose) to
	// SUPERSEDED and returns how many were changed.
	SupersedeActive(ctx context.Context, accountID int64, purpose models.Purpose) (int64, error)
}
