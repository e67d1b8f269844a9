package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/glowbook/service-reservation/internal/auth"
	"github.com/glowbook/service-reservation/internal/response"
)

const (
	ctxAccountID = "account_id"
	ctxRole      = "role"

	// DeviceTokenHeader carries the anonymous device identity for guests.
	DeviceTokenHeader = "X-Device-Token"
)

// Auth requires a valid bearer token and stores the claims on the context.
func Auth(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearer(c, jwtManager)
		if !ok {
			response.Unauthorized(c, "missing or invalid token")
			c.Abort()
			return
		}
		c.Set(ctxAccountID, claims.AccountID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// OptionalAuth stores claims when a valid token is present but lets guests
// through; guest identity comes from the device-token header.
func OptionalAuth(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := parseBearer(c, jwtManager); ok {
			c.Set(ctxAccountID, claims.AccountID)
			c.Set(ctxRole, claims.Role)
		}
		c.Next()
	}
}

// RequireRole is the single capability check: the request's role must be one
// of the allowed roles.
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(ctxRole)
		if !exists {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		got := v.(auth.Role)
		for _, r := range roles {
			if got == r {
				c.Next()
				return
			}
		}
		response.Unauthorized(c, "insufficient permissions")
		c.Abort()
	}
}

// GetAccountID returns the authenticated account id, if any.
func GetAccountID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ctxAccountID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// ClientIdentity resolves the identity the admission gate keys on: the
// account id when authenticated, otherwise the device token, otherwise the
// client IP.
func ClientIdentity(c *gin.Context) string {
	if id, ok := GetAccountID(c); ok {
		return id.String()
	}
	if token := c.GetHeader(DeviceTokenHeader); token != "" {
		return token
	}
	return c.ClientIP()
}

func parseBearer(c *gin.Context, jwtManager *auth.JWTManager) (*auth.Claims, bool) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return nil, false
	}
	claims, err := jwtManager.Verify(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return nil, false
	}
	return claims, true
}
