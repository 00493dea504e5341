package middleware

import (
	"log/slog"
	"time"

	"invoiceflow/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestLogger tags the request context with a request id and logs each
// request through slog when it completes.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			ctx := logger.WithRequestID(req.Context(), requestID)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			attrs := []any{
				"method", req.Method,
				"path", c.Path(),
				"uri", req.RequestURI,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", c.RealIP(),
			}

			// the identity may have been added further down the chain
			logCtx := c.Request().Context()
			switch {
			case status >= 500:
				slog.ErrorContext(logCtx, "request completed", attrs...)
			case status >= 400:
				slog.WarnContext(logCtx, "request completed", attrs...)
			default:
				slog.InfoContext(logCtx, "request completed", attrs...)
			}

			return nil
		}
	}
}
