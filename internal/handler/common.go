package handler // handler defines http handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apartment-management/internal/apperr"
	"github.com/iliyamo/apartment-management/internal/middleware"
)

// requestTimeout bounds every store call made on behalf of a request.
const requestTimeout = 5 * time.Second

// Response is the success envelope.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func respond(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, Response{StatusCode: status, Data: data, Message: message, Success: status < http.StatusBadRequest})
}

// bind decodes the request into dst and runs the registered validator.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Validation("invalid request body").WithCause(err)
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(dst)
}

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// getUserID returns the id of the account attached by the Auth Gate.
func getUserID(c echo.Context) (uint64, error) {
	u, ok := middleware.CurrentUser(c)
	if !ok || u.ID == 0 {
		return 0, apperr.Unauthorized("unauthorized request")
	}
	return u.ID, nil
}

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid " + name)
	}
	return id, nil
}
