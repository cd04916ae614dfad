package handler

import (
	"net/http"
	"strings"

	"github.com/clinchain/clinchain/internal/identity"
	"github.com/gin-gonic/gin"
)

// actorKey is the gin context key carrying the verified token subject.
const actorKey = "actor"

// RequireToken returns a Gin middleware that rejects requests without a
// valid bearer service token. The token subject is stored on the context as
// the acting identity.
func RequireToken(issuer *identity.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := issuer.Verify(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(actorKey, claims.Subject)
		c.Next()
	}
}

// Actor returns the acting identity set by RequireToken, or "anonymous" when
// the route is unauthenticated.
func Actor(c *gin.Context) string {
	if v, ok := c.Get(actorKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "anonymous"
}
