package middleware

import (
	"log/slog"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/ispkb/internal/observability"
	"github.com/hrygo/ispkb/server/internal/errors"
)

// RequestLogger attaches a RequestContext to every request, echoes its id in
// the X-Request-ID header, then logs and measures the finished request.
func RequestLogger(logger *slog.Logger, metrics *observability.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			route := c.Path()
			if route == "" {
				route = req.URL.Path
			}
			reqCtx := observability.NewRequestContextWithID(logger, req.Header.Get(echo.HeaderXRequestID), route)
			c.Response().Header().Set(echo.HeaderXRequestID, reqCtx.RequestID)
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), reqCtx)))

			err := next(c)
			if err != nil {
				// Render now so the logged status is the one sent.
				c.Error(err)
			}

			status := c.Response().Status
			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", status),
				slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
			}
			if err != nil {
				attrs = append(attrs, slog.String(observability.LogFieldErrorCode, string(toAPIError(err).Code)))
			}
			switch {
			case status >= 500:
				reqCtx.Error("request failed", errorOrStatus(err, status), attrs...)
			case status >= 400:
				reqCtx.Warn("request rejected", attrs...)
			default:
				reqCtx.Info("request completed", attrs...)
			}
			metrics.RecordRequest(route, req.Method, strconv.Itoa(status), reqCtx.Duration())
			return nil
		}
	}
}

func errorOrStatus(err error, status int) error {
	if err != nil {
		return err
	}
	return errors.Internal("status "+strconv.Itoa(status), nil)
}
