package middleware

import "github.com/gin-gonic/gin"

// SecurityHeaders applies common hardening headers. Mostly for parity with the
// real vendor's responses so the frontend behaves the same against both.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}
