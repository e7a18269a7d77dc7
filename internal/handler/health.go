package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health is used by load balancers and monitoring to verify that the service
// is running.  When db is non-nil the database must answer a ping too.
func Health(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db != nil {
			ctx, cancel := withTimeout(c)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, Response{
					StatusCode: http.StatusServiceUnavailable,
					Data:       map[string]string{"database": "down"},
					Message:    "unhealthy",
				})
			}
		}
		return respond(c, http.StatusOK, map[string]string{"status": "ok"}, "ok")
	}
}
