package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/admitlens/core/internal/pkg/ratelimit"
	"github.com/admitlens/core/internal/pkg/response"
)

// anonymousKey groups every request that carries no forwarded address into a
// single shared bucket. Unconfigured deployments therefore rate-limit all
// unidentified clients together; this is an accepted limitation.
const anonymousKey = "anonymous"

// RateLimit returns a middleware that consumes one token per request from the
// caller's bucket. Successful responses carry X-RateLimit-Remaining and
// X-RateLimit-Reset (epoch ms); exhausted buckets fail with RATE_LIMITED.
// Zero fields in opts fall back to the service defaults.
func RateLimit(svc *ratelimit.Service, opts ratelimit.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.Assert(clientKey(c), opts)
		if err != nil {
			var exceeded *ratelimit.LimitExceededError
			if errors.As(err, &exceeded) {
				response.Error(c, response.RateLimited("Too many requests", exceeded.ResetAt))
				return
			}
			response.Error(c, err)
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.UnixMilli(), 10))
		c.Next()
	}
}

func clientKey(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	return anonymousKey
}
