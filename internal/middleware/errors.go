package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/iliyamo/apartment-management/internal/apperr"
)

// ErrorBody is the failure envelope every error response uses.
type ErrorBody struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

// ErrorHandler is the single boundary that turns handler errors into the
// failure envelope.  Internal details are logged, never rendered.
type ErrorHandler struct {
	logger *slog.Logger
}

func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleHTTPError implements echo.HTTPErrorHandler.
func (h *ErrorHandler) HandleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	body := ErrorBody{StatusCode: http.StatusInternalServerError, Message: "internal server error", Errors: []string{}}

	var httpErr *echo.HTTPError
	if e, ok := apperr.As(err); ok {
		body.StatusCode = e.Status
		if e.Status < http.StatusInternalServerError {
			body.Message = e.Message
			if len(e.Errors) > 0 {
				body.Errors = e.Errors
			}
		}
	} else if errors.As(err, &httpErr) {
		body.StatusCode = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok && httpErr.Code < http.StatusInternalServerError {
			body.Message = msg
		} else if httpErr.Code < http.StatusInternalServerError {
			body.Message = http.StatusText(httpErr.Code)
		}
	}

	if body.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(c.Request().Context(), "request failed",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
			slog.String("method", c.Request().Method),
			slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(body.StatusCode)
		return
	}
	_ = c.JSON(body.StatusCode, body)
}
