package middleware

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scopes granted to operator tokens. Admin implies write, write implies read.
const (
	ScopeRead  = "parking:read"
	ScopeWrite = "parking:write"
	ScopeAdmin = "parking:admin"
)

// Claims is the operator token payload. The tenant is resolved from the operator record.
type Claims struct {
	OperatorID int64    `json:"operator_id"`
	Scopes     []string `json:"scopes"`
	jwt.RegisteredClaims
}

// HasScope reports whether the claims grant scope.
func (c *Claims) HasScope(scope string) bool {
	for _, granted := range c.Scopes {
		if granted == scope || implies(granted, scope) {
			return true
		}
	}
	return false
}

func implies(granted, wanted string) bool {
	switch granted {
	case ScopeAdmin:
		return wanted == ScopeWrite || wanted == ScopeRead
	case ScopeWrite:
		return wanted == ScopeRead
	}
	return false
}

// TokenService validates operator tokens issued by the identity provider.
type TokenService struct {
	secret []byte
	leeway time.Duration
}

// NewTokenService returns configured token service. leeway tolerates clock skew on the
// expiry and not-before claims.
func NewTokenService(secret string, leeway time.Duration) *TokenService {
	if leeway < 0 {
		leeway = 0
	}
	return &TokenService{secret: []byte(secret), leeway: leeway}
}

// ValidateToken verifies and decodes a token.
func (t *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("token: unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithLeeway(t.leeway))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("token: invalid claims")
	}
	if claims.OperatorID == 0 {
		return nil, errors.New("token: operator_id is required")
	}
	return claims, nil
}
