// Package service holds the account session lifecycle and the broker
// publisher.  Handlers call into it and render whatever *apperr.Error it
// returns.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/iliyamo/apartment-management/internal/apperr"
	"github.com/iliyamo/apartment-management/internal/model"
	"github.com/iliyamo/apartment-management/internal/repository"
	"github.com/iliyamo/apartment-management/internal/utils"
)

// UserStore is the subset of the credential store the auth service needs.
// *repository.UserRepo satisfies it.
type UserStore interface {
	Create(ctx context.Context, in repository.NewUser) (uint64, error)
	UpdatePassword(ctx context.Context, id uint64, plain string) error
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	GetByIdentifier(ctx context.Context, username, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetSanitizedByID(ctx context.Context, id uint64) (model.SanitizedUser, error)
	SetRefreshToken(ctx context.Context, id uint64, token string) error
	RotateRefreshToken(ctx context.Context, id uint64, presented, next string) error
	ClearRefreshToken(ctx context.Context, id uint64) error
}

// Column widths of the users table.
const (
	maxUsernameLen = 64
	maxFullNameLen = 128
	maxEmailLen    = 255
)

// RegisterInput is the registration payload.
type RegisterInput struct {
	Username string
	FullName string
	Email    string
	Password string
	Role     string
}

// LoginInput carries either a username or an email plus the password.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	User         model.SanitizedUser
	AccessToken  utils.AccessToken
	RefreshToken utils.RefreshToken
}

// AuthService implements registration, login, refresh rotation, logout and
// access token authentication.
type AuthService struct {
	users  UserStore
	tokens *utils.TokenIssuer
	log    *slog.Logger
}

func NewAuthService(users UserStore, tokens *utils.TokenIssuer, log *slog.Logger) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{users: users, tokens: tokens, log: log.With("component", "auth")}
}

// Tokens exposes the issuer so handlers can size cookie lifetimes.
func (s *AuthService) Tokens() *utils.TokenIssuer { return s.tokens }

// Register validates in, enforces uniqueness and creates the account.  No
// tokens are issued; the client logs in afterwards.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.SanitizedUser, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Role = strings.TrimSpace(in.Role)

	var missing []string
	for _, f := range [...]struct{ name, value string }{
		{"username", in.Username},
		{"fullName", in.FullName},
		{"email", in.Email},
		{"password", strings.TrimSpace(in.Password)},
		{"role", in.Role},
	} {
		if f.value == "" {
			missing = append(missing, f.name+" is required")
		}
	}
	if len(missing) > 0 {
		return model.SanitizedUser{}, apperr.Validation("All field values are required", missing...)
	}
	var tooLong []string
	for _, f := range [...]struct {
		name, value string
		max         int
	}{
		{"username", in.Username, maxUsernameLen},
		{"fullName", in.FullName, maxFullNameLen},
		{"email", in.Email, maxEmailLen},
	} {
		if utf8.RuneCountInString(f.value) > f.max {
			tooLong = append(tooLong, fmt.Sprintf("%s must be at most %d characters", f.name, f.max))
		}
	}
	if len(in.Password) > utils.MaxPasswordBytes {
		tooLong = append(tooLong, utils.ErrPasswordTooLong.Error())
	}
	if len(tooLong) > 0 {
		return model.SanitizedUser{}, apperr.Validation("Field value too long", tooLong...)
	}
	role := model.Role(strings.ToLower(in.Role))
	if !role.Valid() {
		return model.SanitizedUser{}, apperr.Validation("Invalid role", "role must be one of tenant, manager, owner, visitor, security")
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return model.SanitizedUser{}, apperr.Internal("something went wrong while registering user").WithCause(err)
	}
	if exists {
		return model.SanitizedUser{}, apperr.Conflict("User already exists with this username or email")
	}

	id, err := s.users.Create(ctx, repository.NewUser{
		Username: in.Username,
		FullName: in.FullName,
		Email:    in.Email,
		Password: in.Password,
		Role:     role,
	})
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		// lost a race with a concurrent registration
		return model.SanitizedUser{}, apperr.Conflict("User already exists with this username or email")
	case errors.Is(err, utils.ErrEmptyPassword):
		return model.SanitizedUser{}, apperr.Validation("All field values are required", "password is required")
	case errors.Is(err, utils.ErrPasswordTooLong):
		return model.SanitizedUser{}, apperr.Validation("Field value too long", err.Error())
	case errors.Is(err, repository.ErrValueTooLong):
		return model.SanitizedUser{}, apperr.Validation("Field value too long").WithCause(err)
	case err != nil:
		return model.SanitizedUser{}, apperr.Internal("something went wrong while registering user").WithCause(err)
	}

	created, err := s.users.GetSanitizedByID(ctx, id)
	if err != nil {
		return model.SanitizedUser{}, apperr.Internal("something went wrong while registering user").WithCause(err)
	}
	s.log.InfoContext(ctx, "user registered", "user_id", id, "role", string(role))
	return created, nil
}

// Login verifies the credentials, issues a fresh pair and stores the new
// refresh token, replacing any previous session.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	username, email := strings.TrimSpace(in.Username), strings.TrimSpace(in.Email)
	if username == "" && email == "" {
		return LoginResult{}, apperr.Unauthorized("username or email required")
	}

	u, err := s.users.GetByIdentifier(ctx, username, email)
	if errors.Is(err, repository.ErrNotFound) {
		return LoginResult{}, apperr.NotFound("User does not exist")
	}
	if err != nil {
		return LoginResult{}, apperr.Internal("login failed").WithCause(err)
	}
	if !utils.VerifyPassword(u.PasswordHash, in.Password) {
		s.log.WarnContext(ctx, "login rejected", "user_id", u.ID, "reason", "bad password")
		return LoginResult{}, apperr.Unauthorized("Invalid user credentials")
	}

	pair, err := s.tokens.IssuePair(claimsOf(u.Sanitize()))
	if err != nil {
		return LoginResult{}, apperr.Internal("Something went wrong while generating access and refresh token").WithCause(err)
	}
	if err := s.users.SetRefreshToken(ctx, u.ID, pair.Refresh.Token); err != nil {
		return LoginResult{}, apperr.Internal("Something went wrong while generating access and refresh token").WithCause(err)
	}

	s.log.InfoContext(ctx, "user logged in", "user_id", u.ID)
	return LoginResult{User: u.Sanitize(), AccessToken: pair.Access, RefreshToken: pair.Refresh}, nil
}

// Rotate exchanges the presented refresh token for a new pair.  Each refresh
// token is accepted at most once; superseded or revoked tokens are rejected.
func (s *AuthService) Rotate(ctx context.Context, presented string) (utils.TokenPair, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return utils.TokenPair{}, apperr.Unauthorized("refresh token is required")
	}

	id, err := s.tokens.ParseRefreshToken(presented)
	if err != nil {
		return utils.TokenPair{}, apperr.Unauthorized("invalid or expired refresh token").WithCause(err)
	}

	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return utils.TokenPair{}, apperr.Unauthorized("unauthorized access or invalid request")
	}
	if err != nil {
		return utils.TokenPair{}, apperr.Internal("refresh failed").WithCause(err)
	}
	if u.RefreshToken == nil || *u.RefreshToken != presented {
		s.log.WarnContext(ctx, "refresh rejected", "user_id", id, "reason", "token mismatch")
		return utils.TokenPair{}, apperr.Unauthorized("Refresh token mismatch")
	}

	pair, err := s.tokens.IssuePair(claimsOf(u.Sanitize()))
	if err != nil {
		return utils.TokenPair{}, apperr.Internal("Something went wrong while generating access and refresh token").WithCause(err)
	}
	// The conditional write closes the window between the read above and
	// this update: a concurrent rotation that won leaves zero rows to match.
	err = s.users.RotateRefreshToken(ctx, id, presented, pair.Refresh.Token)
	if errors.Is(err, repository.ErrTokenMismatch) {
		s.log.WarnContext(ctx, "refresh rejected", "user_id", id, "reason", "lost rotation race")
		return utils.TokenPair{}, apperr.Unauthorized("Refresh token mismatch")
	}
	if err != nil {
		return utils.TokenPair{}, apperr.Internal("refresh failed").WithCause(err)
	}

	s.log.InfoContext(ctx, "refresh token rotated", "user_id", id)
	return pair, nil
}

// Logout clears the stored refresh token.  It is safe to call repeatedly.
func (s *AuthService) Logout(ctx context.Context, id uint64) error {
	if err := s.users.ClearRefreshToken(ctx, id); err != nil {
		return apperr.Internal("logout failed").WithCause(err)
	}
	s.log.InfoContext(ctx, "user logged out", "user_id", id)
	return nil
}

// Authenticate verifies an access token and loads the account it names.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (model.SanitizedUser, error) {
	if raw == "" {
		return model.SanitizedUser{}, apperr.Unauthorized("unauthorized request")
	}
	id, _, err := s.tokens.ParseAccessToken(raw)
	if err != nil {
		return model.SanitizedUser{}, apperr.Unauthorized("invalid or expired access token").WithCause(err)
	}
	u, err := s.users.GetSanitizedByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.SanitizedUser{}, apperr.Unauthorized("Token not found or matched")
	}
	if err != nil {
		return model.SanitizedUser{}, apperr.Internal("authentication failed").WithCause(err)
	}
	return u, nil
}

// ChangePassword verifies the current password, stores a new hash and ends
// the current session so that outstanding refresh tokens stop working.
func (s *AuthService) ChangePassword(ctx context.Context, id uint64, current, next string) error {
	if strings.TrimSpace(next) == "" {
		return apperr.Validation("new password is required")
	}
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Unauthorized("unauthorized request")
	}
	if err != nil {
		return apperr.Internal("change password failed").WithCause(err)
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return apperr.Unauthorized("Invalid old password")
	}
	switch err := s.users.UpdatePassword(ctx, id, next); {
	case errors.Is(err, utils.ErrEmptyPassword):
		return apperr.Validation("new password is required")
	case errors.Is(err, utils.ErrPasswordTooLong):
		return apperr.Validation("new password is too long", err.Error())
	case err != nil:
		return apperr.Internal("change password failed").WithCause(err)
	}
	if err := s.users.ClearRefreshToken(ctx, id); err != nil {
		return apperr.Internal("change password failed").WithCause(err)
	}
	s.log.InfoContext(ctx, "password changed", "user_id", id)
	return nil
}

func claimsOf(u model.SanitizedUser) utils.UserClaims {
	return utils.UserClaims{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     string(u.Role),
	}
}
