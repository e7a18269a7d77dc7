package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/apartment-management/internal/model"
	"github.com/iliyamo/apartment-management/internal/utils"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

// hashArg matches a bcrypt hash of plain.
type hashArg struct{ plain string }

func (h hashArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && s != h.plain && utils.VerifyPassword(s, h.plain)
}

var userCols = []string{"id", "username", "full_name", "email", "password_hash", "role", "refresh_token", "created_at", "updated_at"}

func TestUserRepoCreateHashesAndLowercases(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db, 4)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("alice", "Alice A", "alice@x.com", hashArg{"pw12345"}, "tenant").
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := repo.Create(context.Background(), NewUser{
		Username: " Alice ", FullName: " Alice A ", Email: "ALICE@x.com", Password: "pw12345", Role: model.RoleTenant,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
}

func TestUserRepoCreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db, 4)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'alice' for key 'uq_users_username'"})

	_, err := repo.Create(context.Background(), NewUser{Username: "alice", Email: "a@x.com", Password: "pw", Role: model.RoleTenant})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserRepoCreateRejectsEmptyPassword(t *testing.T) {
	db, _ := newMock(t)
	repo := NewUserRepo(db, 4)

	_, err := repo.Create(context.Background(), NewUser{Username: "alice", Email: "a@x.com", Role: model.RoleTenant})
	assert.ErrorIs(t, err, utils.ErrEmptyPassword)
}

func TestUserRepoGetByIdentifier(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db, 4)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM users WHERE username=\\? OR email=\\?").
		WithArgs("alice", "").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(3, "alice", "Alice A", "a@x.com", "$2a$hash", "manager", nil, now, now))

	u, err := repo.GetByIdentifier(context.Background(), "ALICE", "")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), u.ID)
	assert.Equal(t, model.RoleManager, u.Role)
	assert.Nil(t, u.RefreshToken)
}

func TestUserRepoGetByIdentifierNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db, 4)

	_, err := repo.GetByIdentifier(context.Background(), "", "  ")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery("FROM users").WillReturnRows(sqlmock.NewRows(userCols))
	_, err = repo.GetByIdentifier(context.Background(), "ghost", "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepoGetSanitizedByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db, 4)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id,username,full_name,email,role,created_at,updated_at FROM users").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "full_name", "email", "role", "created_at", "updated_at"}).
			AddRow(3, "alice", "Alice A", "a@x.com", "tenant", now, now))

	u, err := repo.GetSanitizedByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, model.RoleTenant, u.Role)
}

func TestUserRepoRotateRefreshToken(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db, 4)

	mock.ExpectExec("UPDATE users SET refresh_token=\\? WHERE id=\\? AND refresh_token=\\?").
		WithArgs("next", uint64(3), "old").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.RotateRefreshToken(context.Background(), 3, "old", "next"))

	// A second exchange of the same token matches no row.
	mock.ExpectExec("UPDATE users SET refresh_token=").
		WithArgs("again", uint64(3), "old").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.RotateRefreshToken(context.Background(), 3, "old", "again"), ErrTokenMismatch)
}

func TestUserRepoClearRefreshTokenIsIdempotent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db, 4)

	for i := 0; i < 2; i++ {
		mock.ExpectExec("UPDATE users SET refresh_token=NULL").
			WithArgs(uint64(3)).
			WillReturnResult(sqlmock.NewResult(0, int64(1-i)))
	}
	require.NoError(t, repo.ClearRefreshToken(context.Background(), 3))
	require.NoError(t, repo.ClearRefreshToken(context.Background(), 3))
}

func TestUserRepoUpdatePassword(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db, 4)

	mock.ExpectExec("UPDATE users SET password_hash=").
		WithArgs(hashArg{"n3w-pass"}, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdatePassword(context.Background(), 3, "n3w-pass"))

	mock.ExpectExec("UPDATE users SET password_hash=").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), 99, "n3w-pass"), ErrUserNotFound)
}

func TestUserRepoCreateValueTooLong(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db, 4)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1406, Message: "Data too long for column 'full_name' at row 1"})

	_, err := repo.Create(context.Background(), NewUser{Username: "alice", FullName: "A", Email: "a@x.com", Password: "pw12345", Role: model.RoleTenant})
	assert.ErrorIs(t, err, ErrValueTooLong)
}

func TestUserRepoCreateRejectsOverlongPassword(t *testing.T) {
	db, _ := newMock(t)
	repo := NewUserRepo(db, 4)

	_, err := repo.Create(context.Background(), NewUser{Username: "alice", Email: "a@x.com", Password: strings.Repeat("p", 80), Role: model.RoleTenant})
	assert.ErrorIs(t, err, utils.ErrPasswordTooLong)
}
