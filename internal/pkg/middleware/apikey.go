package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/piresc/nebengjek-dispatch/internal/utils"
)

const (
	APIKeyHeader = "X-API-Key"
)

// ValidateAPIKey accepts requests carrying any of the given non-empty service keys
func ValidateAPIKey(allowedKeys ...string) echo.MiddlewareFunc {
	keys := make([][]byte, 0, len(allowedKeys))
	for _, k := range allowedKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			apiKey := c.Request().Header.Get(APIKeyHeader)
			if apiKey == "" {
				return utils.ErrorResponseHandler(c, http.StatusUnauthorized, "API key is required")
			}

			for _, k := range keys {
				if subtle.ConstantTimeCompare([]byte(apiKey), k) == 1 {
					return next(c)
				}
			}
			return utils.ErrorResponseHandler(c, http.StatusUnauthorized, "Invalid API key")
		}
	}
}
