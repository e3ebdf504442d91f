package middleware

import (
	"github.com/gin-gonic/gin"
)

// CacheControl sets the Cache-Control header on every response of a route.
// Rendered artifacts are immutable, so downloads are cached privately.
func CacheControl(directive string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", directive)
		c.Next()
	}
}

// NoStore disables caching for live interview state.
func NoStore() gin.HandlerFunc {
	return CacheControl("no-store")
}
