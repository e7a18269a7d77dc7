package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userID returns the authenticated account id as a string, or "guest" when
// the request has not passed the Auth Gate.  Rate limit and cache keys use it.
func userID(c echo.Context) string {
	if u, ok := CurrentUser(c); ok && u.ID != 0 {
		return strconv.FormatUint(u.ID, 10)
	}
	return "guest"
}
