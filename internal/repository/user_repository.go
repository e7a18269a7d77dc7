package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/iliyamo/apartment-management/internal/model"
	"github.com/iliyamo/apartment-management/internal/utils"
)

// ErrUserNotFound is returned when no account matches a lookup.
var ErrUserNotFound = errors.Wrap(ErrNotFound, "user")

// ErrTokenMismatch is returned by RotateRefreshToken when the stored refresh
// token is no longer the one presented.
var ErrTokenMismatch = errors.New("refresh token mismatch")

// NewUser carries registration input.  Password is plaintext; it is hashed
// by Create and never stored as given.
type NewUser struct {
	Username string
	FullName string
	Email    string
	Password string
	Role     model.Role
}

// UserRepo is the credential store backed by the `users` table.
type UserRepo struct {
	DB   *sql.DB
	Cost int // bcrypt cost applied on every password write
}

func NewUserRepo(db *sql.DB, bcryptCost int) *UserRepo { return &UserRepo{DB: db, Cost: bcryptCost} }

// Normalize lowercases and trims usernames and emails.
func Normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

const userColumns = "id,username,full_name,email,password_hash,role,refresh_token,created_at,updated_at"

const sanitizedColumns = "id,username,full_name,email,role,created_at,updated_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var (
		u       model.User
		role    string
		refresh sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &u.PasswordHash, &role, &refresh, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	if refresh.Valid {
		u.RefreshToken = &refresh.String
	}
	return u, nil
}

// Create hashes the password and inserts the user, returning its ID.  A
// unique-key violation on username or email yields ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, in NewUser) (uint64, error) {
	hash, err := utils.HashPassword(in.Password, r.Cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, full_name, email, password_hash, role) VALUES (?,?,?,?,?)",
		Normalize(in.Username), strings.TrimSpace(in.FullName), Normalize(in.Email), hash, string(in.Role))
	if err != nil {
		return 0, errors.WithMessage(translate(err), "insert user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "last insert id")
	}
	return uint64(id), nil
}

// UpdatePassword rehashes plain and stores it.  This and Create are the only
// paths that write password_hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, plain string) error {
	hash, err := utils.HashPassword(plain, r.Cost)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	if err != nil {
		return errors.WithMessage(translate(err), "update password")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ExistsByUsernameOrEmail reports whether either value is already taken.
func (r *UserRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE username=? OR email=?)",
		Normalize(username), Normalize(email)).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "check user exists")
	}
	return exists, nil
}

// GetByIdentifier fetches the user whose username or email matches,
// case-insensitively.  Empty values never match.
func (r *UserRepo) GetByIdentifier(ctx context.Context, username, email string) (model.User, error) {
	username, email = Normalize(username), Normalize(email)
	if username == "" && email == "" {
		return model.User{}, ErrUserNotFound
	}
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? OR email=? LIMIT 1",
		username, email))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, errors.Wrap(err, "get user by identifier")
}

// GetByID fetches a user by id including its secret fields.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, errors.Wrap(err, "get user by id")
}

// GetSanitizedByID fetches a user by id without reading the password hash
// or refresh token columns.
func (r *UserRepo) GetSanitizedByID(ctx context.Context, id uint64) (model.SanitizedUser, error) {
	var (
		u    model.SanitizedUser
		role string
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+sanitizedColumns+" FROM users WHERE id=? LIMIT 1", id).
		Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SanitizedUser{}, ErrUserNotFound
	}
	if err != nil {
		return model.SanitizedUser{}, errors.Wrap(err, "get sanitized user")
	}
	u.Role = model.Role(role)
	return u, nil
}

// SetRefreshToken overwrites the stored refresh token.  Last write wins.
func (r *UserRepo) SetRefreshToken(ctx context.Context, id uint64, token string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET refresh_token=? WHERE id=?", token, id)
	return errors.Wrap(err, "set refresh token")
}

// RotateRefreshToken replaces presented with next only if presented is still
// the stored value, so a refresh token can be exchanged at most once.
func (r *UserRepo) RotateRefreshToken(ctx context.Context, id uint64, presented, next string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token=? WHERE id=? AND refresh_token=?", next, id, presented)
	if err != nil {
		return errors.Wrap(err, "rotate refresh token")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rotate refresh token")
	}
	if n == 0 {
		return ErrTokenMismatch
	}
	return nil
}

// ClearRefreshToken sets the stored refresh token to NULL.  Calling it for
// an already logged-out user is not an error.
func (r *UserRepo) ClearRefreshToken(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET refresh_token=NULL WHERE id=?", id)
	return errors.Wrap(err, "clear refresh token")
}
