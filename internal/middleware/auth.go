package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apartment-management/internal/apperr"
	"github.com/iliyamo/apartment-management/internal/model"
)

// UserKey is the echo.Context key under which the Auth Gate stores the
// authenticated model.SanitizedUser.
const UserKey = "user"

// AccessTokenCookie is the cookie carrying the access token.
const AccessTokenCookie = "accessToken"

// Authenticator verifies an access token and loads the account it names.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (model.SanitizedUser, error)
}

// AuthGate extracts the access token from the accessToken cookie or, failing
// that, from an "Authorization: Bearer" header.  The cookie wins when both
// are sent.  Every failure short-circuits with 401.
func AuthGate(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return apperr.Unauthorized("unauthorized request")
			}
			u, err := a.Authenticate(c.Request().Context(), raw)
			if err != nil {
				return err
			}
			c.Set(UserKey, u)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	if ck, err := c.Cookie(AccessTokenCookie); err == nil && strings.TrimSpace(ck.Value) != "" {
		return strings.TrimSpace(ck.Value)
	}
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// CurrentUser returns the account attached by AuthGate.
func CurrentUser(c echo.Context) (model.SanitizedUser, bool) {
	u, ok := c.Get(UserKey).(model.SanitizedUser)
	return u, ok
}
