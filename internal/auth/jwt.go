package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is the closed set of capabilities an account can hold. Entry points
// check roles only through middleware.RequireRole; no free-form role strings.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// ValidRole reports whether s names a known role.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleCustomer, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// Claims is the JWT payload carried by authenticated requests.
type Claims struct {
	AccountID uuid.UUID `json:"account_id"`
	Role      Role      `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager issues and verifies access tokens.
type JWTManager struct {
	secret   []byte
	tokenTTL time.Duration
}

// NewJWTManager creates a manager with the given signing secret and TTL.
func NewJWTManager(secret string, tokenTTL time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), tokenTTL: tokenTTL}
}

// Generate issues a signed token for the account.
func (m *JWTManager) Generate(accountID uuid.UUID, role Role) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		AccountID: accountID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
			Subject:   accountID.String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses and validates a token, returning its claims.
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if !ValidRole(string(claims.Role)) {
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
	return claims, nil
}
