package accounts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

var accountColumns = []string{
	"id", "username", "email", "password_hash", "first_name", "last_name", "phone_number", "image_url",
	"provider", "provider_id", "role", "enabled", "email_verified", "account_non_locked",
	"credentials_non_expired", "account_non_expired", "created_at", "updated_at",
}

var now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func aliceAccount() *models.Account {
	return &models.Account{
		Username: "alice", Email: "a@x.com", PasswordHash: "hash", FirstName: "A", LastName: "B",
		Provider: models.ProviderLocal, Role: models.RoleUser,
		AccountNonLocked: true, CredentialsNonExpired: true, AccountNonExpired: true,
		CreatedAt: now, UpdatedAt: now,
	}
}

func aliceRow() *sqlmock.Rows {
	return sqlmock.NewRows(accountColumns).AddRow(
		int64(7), "alice", "a@x.com", "hash", "A", "B", "", "",
		"LOCAL", nil, "USER", true, true, true, true, true, now, now,
	)
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+accounts\s*\(.+\)\s*VALUES\s*\(\$1,.+\$17\)\s*RETURNING\s+id$`).
		WithArgs("alice", "a@x.com", sql.NullString{String: "hash", Valid: true}, "A", "B", "", "",
			"LOCAL", sql.NullString{}, "USER", false, false, true, true, true, now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	got, err := repo.Create(context.Background(), aliceAccount())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 7 || got.Username != "alice" {
		t.Fatalf("unexpected account: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO accounts`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_username_key"})

	_, err := repo.Create(context.Background(), aliceAccount())
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO accounts`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), aliceAccount())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+id,.+FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs(int64(7)).
		WillReturnRows(aliceRow())

	got, err := repo.FindByID(context.Background(), 7)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if got.ID != 7 || got.Provider != models.ProviderLocal || got.Role != models.RoleUser || got.ProviderID != "" {
		t.Fatalf("unexpected account: %+v", got)
	}
	if !got.Enabled || !got.EmailVerified {
		t.Fatalf("flags not scanned: %+v", got)
	}
}

func TestFindByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+accounts\s+WHERE\s+email\s*=\s*\$1`).
		WithArgs("nobody@x.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "nobody@x.com")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestFindByUsernameOrEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE\s+username\s*=\s*\$1\s+OR\s+email\s*=\s*\$1`).
		WithArgs("a@x.com").
		WillReturnRows(aliceRow())

	got, err := repo.FindByUsernameOrEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("FindByUsernameOrEmail error: %v", err)
	}
	if got.Username != "alice" {
		t.Fatalf("unexpected account: %+v", got)
	}
}

func TestExistsQueries(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM accounts WHERE username = \$1\)`).
		WithArgs("alice").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM accounts WHERE email = \$1\)`).
		WithArgs("b@x.com").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM accounts WHERE role = \$1\)`).
		WithArgs("ADMIN").WillReturnError(errors.New("boom"))

	ok, err := repo.ExistsByUsername(context.Background(), "alice")
	if err != nil || !ok {
		t.Fatalf("ExistsByUsername: %v %v", ok, err)
	}
	ok, err = repo.ExistsByEmail(context.Background(), "b@x.com")
	if err != nil || ok {
		t.Fatalf("ExistsByEmail: %v %v", ok, err)
	}
	if _, err = repo.ExistsByRole(context.Background(), models.RoleAdmin); err == nil {
		t.Fatalf("expected error from ExistsByRole")
	}
}

func TestUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	a := aliceAccount()
	a.ID = 7
	a.Enabled = true

	mock.ExpectExec(`(?s)^UPDATE\s+accounts\s+SET.+WHERE\s+id\s*=\s*\$1$`).
		WithArgs(int64(7), "alice", "a@x.com", sql.NullString{String: "hash", Valid: true}, "A", "B", "", "",
			"LOCAL", sql.NullString{}, "USER", true, false, true, true, true, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE accounts`).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Update(context.Background(), a); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if err := repo.Update(context.Background(), a); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound for missing row, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM accounts WHERE id = \$1`).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM accounts WHERE id = \$1`).WithArgs(int64(8)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), 7); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := repo.Delete(context.Background(), 8); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}
