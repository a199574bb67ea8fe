// Package authz holds per-route authorization checks. They run after
// auth.Authenticate, which never aborts on its own.
package authz

import (
	"net/http"
	"strconv"

	"profile-api/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAuthenticated admits only requests carrying a valid token.
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, ok := auth.IdentityFrom(ctx); ok {
			c.Next()
			return
		}

		challenge := `Bearer`
		if auth.StateFrom(ctx) == auth.StateRejected {
			challenge = `Bearer error="invalid_token"`
		}
		c.Header("WWW-Authenticate", challenge)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "unauthorized", "error": "authentication required"})
	}
}

// RequireSelf admits the request only when the authenticated subject equals
// the user id in route parameter param.
func RequireSelf(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.IdentityFrom(c.Request.Context())
		if !ok {
			c.Header("WWW-Authenticate", `Bearer`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "unauthorized", "error": "authentication required"})
			return
		}
		want, err := strconv.ParseInt(c.Param(param), 10, 64)
		if err != nil || want != id.UserID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": "forbidden", "error": "forbidden"})
			return
		}
		c.Next()
	}
}
