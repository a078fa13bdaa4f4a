package core

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAuth rejects requests without verified session claims.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := claimsFrom(c); !ok {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminOnly ensures the session role is admin. Missing session and
// wrong role produce the same 401 so callers learn nothing about the
// resource behind the gate.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFrom(c)
		if !ok || claims.Role != RoleAdmin {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
			c.Abort()
			return
		}
		c.Next()
	}
}
