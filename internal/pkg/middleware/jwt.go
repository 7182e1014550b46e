package middleware

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	jwtpkg "github.com/piresc/nebengjek-dispatch/internal/pkg/jwt"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/piresc/nebengjek-dispatch/internal/utils"
)

const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
)

// Identity is the authenticated caller of a request
type Identity struct {
	UserID uuid.UUID
	Role   models.Role
}

// JWTAuthMiddleware creates a middleware for JWT authentication
func JWTAuthMiddleware(config models.JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, ok := bearerToken(c)
			if !ok {
				return utils.UnauthorizedResponse(c, "Authorization header is required")
			}

			claims, err := jwtpkg.ValidateToken(tokenString, config.Secret)
			if err != nil {
				return utils.UnauthorizedResponse(c, "Invalid token")
			}

			c.Set(ContextUserID, claims.UserID)
			c.Set(ContextUserRole, claims.Role)
			return next(c)
		}
	}
}

// GetIdentity returns the caller set by JWTAuthMiddleware
func GetIdentity(c echo.Context) (Identity, bool) {
	userID, ok := c.Get(ContextUserID).(uuid.UUID)
	if !ok {
		return Identity{}, false
	}
	role, ok := c.Get(ContextUserRole).(models.Role)
	if !ok {
		return Identity{}, false
	}
	return Identity{UserID: userID, Role: role}, true
}

// bearerToken reads the token from the Authorization header, falling back
// to the access_token query parameter used by websocket clients
func bearerToken(c echo.Context) (string, bool) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		token := c.QueryParam("access_token")
		return token, token != ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
