package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apartment-management/internal/apperr"
	"github.com/iliyamo/apartment-management/internal/model"
)

// RequireRole returns a middleware that enforces that the authenticated user
// has one of the given roles.  It must run after AuthGate; a request without
// an attached user is treated as unauthenticated.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				return apperr.Unauthorized("unauthorized request")
			}
			if !allowed[u.Role] {
				return apperr.Forbidden("you are not allowed to perform this action")
			}
			return next(c)
		}
	}
}
