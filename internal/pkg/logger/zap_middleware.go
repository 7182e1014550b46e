package logger

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// ZapEchoMiddleware logs every request and annotates the New Relic transaction
func ZapEchoMiddleware(logger *ZapLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			txn := newrelic.FromContext(c.Request().Context())
			start := time.Now()

			err := next(c)
			if err != nil {
				// let echo write the response so the logged status is final
				c.Error(err)
			}

			latency := time.Since(start)
			path := c.Request().URL.Path
			if raw := c.Request().URL.RawQuery; raw != "" {
				path = path + "?" + raw
			}

			userID := "anonymous"
			if uid := c.Get("user_id"); uid != nil {
				userID = fmt.Sprintf("%v", uid)
			}
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)

			if txn != nil {
				txn.AddAttribute("user_id", userID)
				txn.AddAttribute("request_id", requestID)
				if err != nil {
					txn.NoticeError(err)
				}
			}

			logger.LogHTTPRequest(txn, c.Request().Method, path, c.RealIP(), userID, requestID,
				c.Response().Status, latency, err)
			return nil
		}
	}
}
