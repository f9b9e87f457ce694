package logger

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestIDHeader carries the request id in and out of the service.
const RequestIDHeader = "X-Request-ID"

// EchoMiddleware puts a request-scoped logger into the request context and
// logs one line per completed request.
func EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			requestID := req.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Response().Header().Set(RequestIDHeader, requestID)

			ctx := WithLogger(req.Context(), map[string]interface{}{
				"request_id": requestID,
				"method":     req.Method,
				"path":       req.URL.Path,
			})
			c.SetRequest(req.WithContext(ctx))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			l := getLogger(ctx)
			status := c.Response().Status
			event := l.Info()
			if status >= 500 {
				event = l.Error()
			}
			event.
				Int("status", status).
				Dur("latency", time.Since(start)).
				Msg("request completed")
			return nil
		}
	}
}
