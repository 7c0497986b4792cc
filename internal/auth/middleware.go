package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxClaimsKey = "auth_claims"

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(tokens TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFromHeader(c, tokens)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "unauthorized", "message": "missing or invalid bearer token"},
			})
			return
		}
		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

// OptionalAuth attaches claims when a valid token is sent and otherwise lets
// the request through anonymously.
func OptionalAuth(tokens TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := claimsFromHeader(c, tokens); ok {
			c.Set(CtxClaimsKey, claims)
		}
		c.Next()
	}
}

func claimsFromHeader(c *gin.Context, tokens TokenService) (*Claims, bool) {
	h := c.GetHeader("Authorization")
	if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return nil, false
	}
	claims, err := tokens.Parse(strings.TrimSpace(h[len("Bearer "):]))
	if err != nil {
		return nil, false
	}
	return claims, true
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// UserID is the authenticated user's id, or "" for anonymous requests.
func UserID(c *gin.Context) string {
	if claims := MustGetClaims(c); claims != nil {
		return claims.UserID
	}
	return ""
}
