package middleware

import (
	stderrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/ispkb/internal/observability"
	"github.com/hrygo/ispkb/server/internal/errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	ErrorCode string         `json:"error_code"`
	Details   map[string]any `json:"details,omitempty"`
}

var statusCodes = map[int]errors.ErrorCode{
	http.StatusNotFound:              errors.ErrCodeNotFound,
	http.StatusMethodNotAllowed:      errors.ErrCodeNotFound,
	http.StatusBadRequest:            errors.ErrCodeInvalidArgument,
	http.StatusUnsupportedMediaType:  errors.ErrCodeInvalidArgument,
	http.StatusRequestEntityTooLarge: errors.ErrCodeInvalidArgument,
	http.StatusConflict:              errors.ErrCodeConflict,
	http.StatusUnauthorized:          errors.ErrCodeUnauthorized,
	http.StatusForbidden:             errors.ErrCodeForbidden,
	http.StatusTooManyRequests:       errors.ErrCodeRateLimitExceeded,
}

// toAPIError maps echo's own errors, such as unknown routes or malformed
// bodies, onto API errors. Anything unrecognized is internal.
func toAPIError(err error) *errors.APIError {
	if apiErr, ok := errors.As(err); ok {
		return apiErr
	}
	var httpErr *echo.HTTPError
	if stderrors.As(err, &httpErr) {
		code, ok := statusCodes[httpErr.Code]
		if !ok {
			code = errors.ErrCodeInternal
		}
		msg, ok := httpErr.Message.(string)
		if !ok || msg == "" {
			msg = http.StatusText(httpErr.Code)
		}
		return errors.Wrap(err, code, msg)
	}
	return errors.Internal("internal server error", err)
}

// HTTPErrorHandler renders errors as ErrorResponse. Internal causes are
// logged and never sent to the client.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	apiErr := toAPIError(err)
	status := apiErr.Code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		observability.Logger(c.Request().Context()).Error("request error",
			"error_code", apiErr.Code,
			"error", err.Error())
	}

	body := ErrorResponse{
		Success:   false,
		Message:   apiErr.Message,
		ErrorCode: string(apiErr.Code),
		Details:   apiErr.Context,
	}
	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		observability.Logger(c.Request().Context()).Warn("failed to write error response", "error", writeErr.Error())
	}
}
