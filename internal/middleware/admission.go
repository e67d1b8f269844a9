package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/glowbook/service-reservation/internal/ratelimit"
	"github.com/glowbook/service-reservation/internal/response"
)

// Admission guards an endpoint class with the named admission policy.
// Denials carry the retry-after hint; nothing else about the request is
// touched before admission.
func Admission(gate *ratelimit.Gate, policyName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := gate.Admit(policyName, ClientIdentity(c))
		if !d.Allowed {
			response.RateLimited(c, d.RetryAfterSeconds)
			c.Abort()
			return
		}
		c.Next()
	}
}
