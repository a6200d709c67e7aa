package onetimecodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/dbx"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

const columns = `id, account_id, value, purpose, state, attempts, created_at, expires_at, version`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.OneTimeCode) (*models.OneTimeCode, error) {
	query :=
		`INSERT INTO one_time_codes (account_id, value, purpose, state, attempts, created_at, expires_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		c.AccountID, c.Value, string(c.Purpose), string(c.State), c.Attempts, c.CreatedAt, c.ExpiresAt, c.Version,
	).Scan(&c.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) FindLatest(ctx context.Context, accountID int64, purpose models.Purpose) (*models.OneTimeCode, error) {
	return r.findOne(ctx,
		`SELECT `+columns+` FROM one_time_codes
		 WHERE account_id = $1 AND purpose = $2
		 ORDER BY id DESC LIMIT 1`,
		accountID, string(purpose))
}

func (r *PostgresRepository) FindByValue(ctx context.Context, accountID int64, purpose models.Purpose, value string) (*models.OneTimeCode, error) {
	return r.findOne(ctx,
		`SELECT `+columns+` FROM one_time_codes
		 WHERE account_id = $1 AND purpose = $2 AND value = $3
		 ORDER BY id DESC LIMIT 1`,
		accountID, string(purpose), value)
}

func (r *PostgresRepository) Update(ctx context.Context, c *models.OneTimeCode) error {
	query :=
		`UPDATE one_time_codes SET state = $3, attempts = $4, version = version + 1
		 WHERE id = $1 AND version = $2`

	res, err := r.db.ExecContext(ctx, query, c.ID, c.Version, string(c.State), c.Attempts)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrVersionConflict
	}
	c.Version++
	return nil
}

func (r *PostgresRepository) SupersedeActive(ctx context.Context, accountID int64, purpose models.Purpose) (int64, error) {
	query :=
		`UPDATE one_time_codes SET state = $3, version = version + 1
		 WHERE account_id = $1 AND purpose = $2 AND state = $4`

	res, err := r.db.ExecContext(ctx, query,
		accountID, string(purpose), string(models.CodeSuperseded), string(models.CodeActive))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, args ...any) (*models.OneTimeCode, error) {
	c := &models.OneTimeCode{}
	var purpose, state string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&c.ID, &c.AccountID, &c.Value, &purpose, &state, &c.Attempts, &c.CreatedAt, &c.ExpiresAt, &c.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.Purpose = models.Purpose(purpose)
	c.State = models.CodeState(state)
	return c, nil
}
