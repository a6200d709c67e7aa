package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/dbx"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

const columns = `id, username, email, password_hash, first_name, last_name, phone_number, image_url,
		provider, provider_id, role, enabled, email_verified, account_non_locked,
		credentials_non_expired, account_non_expired, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (username, email, password_hash, first_name, last_name, phone_number, image_url,
		 provider, provider_id, role, enabled, email_verified, account_non_locked,
		 credentials_non_expired, account_non_expired, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		a.Username, a.Email, nullString(a.PasswordHash), a.FirstName, a.LastName, a.PhoneNumber, a.ImageURL,
		string(a.Provider), nullString(a.ProviderID), string(a.Role), a.Enabled, a.EmailVerified, a.AccountNonLocked,
		a.CredentialsNonExpired, a.AccountNonExpired, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *PostgresRepository) Update(ctx context.Context, a *models.Account) error {
	query :=
		`UPDATE accounts SET username = $2, email = $3, password_hash = $4, first_name = $5, last_name = $6,
		 phone_number = $7, image_url = $8, provider = $9, provider_id = $10, role = $11, enabled = $12,
		 email_verified = $13, account_non_locked = $14, credentials_non_expired = $15,
		 account_non_expired = $16, updated_at = $17
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		a.ID, a.Username, a.Email, nullString(a.PasswordHash), a.FirstName, a.LastName,
		a.PhoneNumber, a.ImageURL, string(a.Provider), nullString(a.ProviderID), string(a.Role), a.Enabled,
		a.EmailVerified, a.AccountNonLocked, a.CredentialsNonExpired,
		a.AccountNonExpired, a.UpdatedAt,
	)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.findOne(ctx, `SELECT `+columns+` FROM accounts WHERE id = $1`, id)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findOne(ctx, `SELECT `+columns+` FROM accounts WHERE email = $1`, email)
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.findOne(ctx, `SELECT `+columns+` FROM accounts WHERE username = $1`, username)
}

// Username matches win over email matches.
func (r *PostgresRepository) FindByUsernameOrEmail(ctx context.Context, identifier string) (*models.Account, error) {
	return r.findOne(ctx,
		`SELECT `+columns+` FROM accounts WHERE username = $1 OR email = $1
		 ORDER BY (username = $1) DESC LIMIT 1`, identifier)
}

func (r *PostgresRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1)`, username)
}

func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`, email)
}

func (r *PostgresRepository) ExistsByRole(ctx context.Context, role models.Role) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE role = $1)`, string(role))
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, args ...any) (*models.Account, error) {
	a := &models.Account{}
	var (
		passwordHash, providerID sql.NullString
		provider, role           string
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&a.ID, &a.Username, &a.Email, &passwordHash, &a.FirstName, &a.LastName, &a.PhoneNumber, &a.ImageURL,
		&provider, &providerID, &role, &a.Enabled, &a.EmailVerified, &a.AccountNonLocked,
		&a.CredentialsNonExpired, &a.AccountNonExpired, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	a.PasswordHash = passwordHash.String
	a.ProviderID = providerID.String
	a.Provider = models.Provider(provider)
	a.Role = models.Role(role)
	return a, nil
}

func (r *PostgresRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
