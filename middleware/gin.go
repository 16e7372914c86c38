package middleware

import (
	"net/http"
	"strings"

	goContacts "github.com/MrEthical07/goContacts"
	"github.com/gin-gonic/gin"
)

// GinClientIP is ClientIP for gin. It uses gin's ClientIP, which honours
// the engine's trusted proxy settings.
func GinClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := goContacts.WithClientIP(c.Request.Context(), c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GinGuard is Guard for gin.
func GinGuard(a Authorizer, min goContacts.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, status := authorize(c.Request.Context(), a, c.GetHeader("Authorization"), min)
		if p == nil {
			abort(c, status)
			return
		}
		c.Request = c.Request.WithContext(goContacts.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// GinRateLimit is RateLimit for gin.
func GinRateLimit(l Allower, route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !allowed(c.Request.Context(), l, route) {
			abort(c, http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}

// Principal returns the principal stored by GinGuard.
func Principal(c *gin.Context) (*goContacts.Principal, bool) {
	return goContacts.PrincipalFromContext(c.Request.Context())
}

func abort(c *gin.Context, status int) {
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": strings.ToLower(http.StatusText(status))})
}
