package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxUserKey = "auth_user"

// BearerAuth resolves the bearer token through the provider and attaches the
// resulting session to the request context.
func BearerAuth(p Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token := strings.TrimSpace(authz[len("bearer "):])
		user, err := p.GetUser(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxUserKey, *user)
		c.Request = c.Request.WithContext(WithSession(c.Request.Context(), &Session{AccessToken: token, User: *user}))
		c.Next()
	}
}

// UserFrom returns the user set by BearerAuth.
func UserFrom(c *gin.Context) (User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return User{}, false
	}
	u, ok := v.(User)
	return u, ok && u.ID != ""
}
