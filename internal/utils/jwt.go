package utils // package utils provides the password hasher and the token issuer

import (
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
	"github.com/google/uuid"       // token ids
	"github.com/pkg/errors"
)

// ErrMissingSecret is returned by NewTokenIssuer when a signing key is not
// configured.  It is a startup failure, never a per-request one.
var ErrMissingSecret = errors.New("token signing secret is not configured")

// ErrSharedSecret is returned by NewTokenIssuer when the access and refresh
// secrets are equal.
var ErrSharedSecret = errors.New("access and refresh token secrets must differ")

// ErrInvalidToken covers every verification failure: bad signature, wrong
// algorithm, expiry or a missing subject.
var ErrInvalidToken = errors.New("invalid token")

// TokenConfig carries the signing keys and lifetimes.  The two secrets must
// differ so that a refresh token can never pass as an access token.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// UserClaims is the denormalized profile embedded in access tokens.
type UserClaims struct {
	ID       uint64
	Username string
	Email    string
	FullName string
	Role     string
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims is the minimal payload of a refresh token.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// AccessToken represents a signed access token along with its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken represents a signed refresh token along with its expiry.
type RefreshToken struct {
	Token string
	Exp   time.Time
}

// TokenPair is what login and rotation hand back to the client.
type TokenPair struct {
	Access  AccessToken
	Refresh RefreshToken
}

// TokenIssuer signs and verifies HS256 access and refresh tokens.
type TokenIssuer struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenIssuer validates cfg and returns an issuer.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, ErrSharedSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &TokenIssuer{cfg: cfg, now: func() time.Time { return time.Now().UTC() }}, nil
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	cp := *i
	cp.now = now
	return &cp
}

// AccessTTL returns the configured access token lifetime.
func (i *TokenIssuer) AccessTTL() time.Duration { return i.cfg.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (i *TokenIssuer) RefreshTTL() time.Duration { return i.cfg.RefreshTTL }

func (i *TokenIssuer) registered(id uint64, ttl time.Duration) jwt.RegisteredClaims {
	now := i.now()
	return jwt.RegisteredClaims{
		Subject:   formatID(id),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(), // keeps two pairs minted in the same second distinct
	}
}

// IssueAccessToken signs the account id and profile fields with the access secret.
func (i *TokenIssuer) IssueAccessToken(u UserClaims) (AccessToken, error) {
	claims := AccessClaims{
		Username:         u.Username,
		Email:            u.Email,
		FullName:         u.FullName,
		Role:             u.Role,
		RegisteredClaims: i.registered(u.ID, i.cfg.AccessTTL),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.AccessSecret))
	if err != nil {
		return AccessToken{}, errors.Wrap(err, "sign access token")
	}
	return AccessToken{Token: signed, Exp: claims.ExpiresAt.Time}, nil
}

// IssueRefreshToken signs only the account id with the refresh secret.
func (i *TokenIssuer) IssueRefreshToken(id uint64) (RefreshToken, error) {
	claims := RefreshClaims{RegisteredClaims: i.registered(id, i.cfg.RefreshTTL)}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.RefreshSecret))
	if err != nil {
		return RefreshToken{}, errors.Wrap(err, "sign refresh token")
	}
	return RefreshToken{Token: signed, Exp: claims.ExpiresAt.Time}, nil
}

// IssuePair mints a fresh access/refresh pair for u.
func (i *TokenIssuer) IssuePair(u UserClaims) (TokenPair, error) {
	access, err := i.IssueAccessToken(u)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.IssueRefreshToken(u.ID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// ParseAccessToken verifies raw against the access secret and returns the
// account id and claims.
func (i *TokenIssuer) ParseAccessToken(raw string) (uint64, *AccessClaims, error) {
	claims := &AccessClaims{}
	id, err := i.parse(raw, i.cfg.AccessSecret, claims, &claims.RegisteredClaims)
	if err != nil {
		return 0, nil, err
	}
	return id, claims, nil
}

// ParseRefreshToken verifies raw against the refresh secret and returns the
// account id.
func (i *TokenIssuer) ParseRefreshToken(raw string) (uint64, error) {
	claims := &RefreshClaims{}
	return i.parse(raw, i.cfg.RefreshSecret, claims, &claims.RegisteredClaims)
}

func (i *TokenIssuer) parse(raw, secret string, claims jwt.Claims, reg *jwt.RegisteredClaims) (uint64, error) {
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !tok.Valid {
		return 0, errors.Wrap(ErrInvalidToken, errString(err))
	}
	id, ok := parseID(reg.Subject)
	if !ok {
		return 0, errors.Wrap(ErrInvalidToken, "missing subject")
	}
	return id, nil
}

func errString(err error) string {
	if err == nil {
		return "token not valid"
	}
	return err.Error()
}
