// Package testutil provides in-memory stand-ins for the MySQL stores so that
// services and handlers can be tested without a database.
package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/apartment-management/internal/model"
	"github.com/iliyamo/apartment-management/internal/repository"
	"github.com/iliyamo/apartment-management/internal/utils"
)

// Users is an in-memory credential store with the same contract as
// repository.UserRepo, including the conditional refresh token swap.
type Users struct {
	mu     sync.Mutex
	rows   map[uint64]*model.User
	nextID uint64
	Cost   int

	// Err, when set, is returned by every method.
	Err error
}

func NewUsers() *Users {
	return &Users{rows: map[uint64]*model.User{}, nextID: 1, Cost: 4}
}

func (s *Users) Create(_ context.Context, in repository.NewUser) (uint64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	hash, err := utils.HashPassword(in.Password, s.Cost)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	username, email := repository.Normalize(in.Username), repository.Normalize(in.Email)
	for _, u := range s.rows {
		if u.Username == username || u.Email == email {
			return 0, repository.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	u := &model.User{
		ID:           s.nextID,
		Username:     username,
		FullName:     strings.TrimSpace(in.FullName),
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.rows[u.ID] = u
	s.nextID++
	return u.ID, nil
}

func (s *Users) UpdatePassword(_ context.Context, id uint64, plain string) error {
	if s.Err != nil {
		return s.Err
	}
	hash, err := utils.HashPassword(plain, s.Cost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *Users) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	username, email = repository.Normalize(username), repository.Normalize(email)
	for _, u := range s.rows {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *Users) GetByIdentifier(_ context.Context, username, email string) (model.User, error) {
	if s.Err != nil {
		return model.User{}, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	username, email = repository.Normalize(username), repository.Normalize(email)
	for _, u := range s.rows {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (s *Users) GetByID(_ context.Context, id uint64) (model.User, error) {
	if s.Err != nil {
		return model.User{}, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return *u, nil
}

func (s *Users) GetSanitizedByID(ctx context.Context, id uint64) (model.SanitizedUser, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return model.SanitizedUser{}, err
	}
	return u.Sanitize(), nil
}

func (s *Users) SetRefreshToken(_ context.Context, id uint64, token string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.rows[id]; ok {
		u.RefreshToken = &token
	}
	return nil
}

func (s *Users) RotateRefreshToken(_ context.Context, id uint64, presented, next string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != presented {
		return repository.ErrTokenMismatch
	}
	u.RefreshToken = &next
	return nil
}

func (s *Users) ClearRefreshToken(_ context.Context, id uint64) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.rows[id]; ok {
		u.RefreshToken = nil
	}
	return nil
}

// StoredRefreshToken returns the refresh token currently held for id.
func (s *Users) StoredRefreshToken(id uint64) *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok || u.RefreshToken == nil {
		return nil
	}
	t := *u.RefreshToken
	return &t
}

// PasswordHash returns the stored hash for id.
func (s *Users) PasswordHash(id uint64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.rows[id]; ok {
		return u.PasswordHash
	}
	return ""
}

// Seed creates a user directly and returns its id.  It panics on failure and
// is meant for test setup only.
func (s *Users) Seed(username, email, password string, role model.Role) uint64 {
	id, err := s.Create(context.Background(), repository.NewUser{
		Username: username, FullName: username, Email: email, Password: password, Role: role,
	})
	if err != nil {
		panic(err)
	}
	return id
}

// Tokens returns an issuer with fixed test secrets.
func Tokens() *utils.TokenIssuer {
	iss, err := utils.NewTokenIssuer(utils.TokenConfig{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	})
	if err != nil {
		panic(err)
	}
	return iss
}
