package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeadersConfig configures SecurityHeaders.
type SecurityHeadersConfig struct {
	// IsDevelopment drops HSTS so plain http works locally.
	IsDevelopment bool
}

// SecurityHeaders sets the response headers of a JSON-only API: nothing may
// be framed, sniffed, cached or loaded from a response.
func SecurityHeaders(cfg SecurityHeadersConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		h.Set("Cache-Control", "no-store")
		if !cfg.IsDevelopment {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
