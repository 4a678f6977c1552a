package ratelimit

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Aidin1998/finalex-console/api/responses"
	"github.com/Aidin1998/finalex-console/pkg/errors"
)

// KeyFunc derives the rate limit key of a request. An empty key skips the
// limiter.
type KeyFunc func(c *gin.Context) string

// Middleware rejects requests over the limit with a 429 problem. Limiter
// failures are logged and the request is let through.
func Middleware(limiter Limiter, keyFn KeyFunc, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)
		if key == "" {
			c.Next()
			return
		}

		allowed, err := limiter.Take(c.Request.Context(), key)
		if err != nil {
			log.Warn("Rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			responses.Error(c, errors.ErrRateLimited.Explain("too many attempts, try again later"))
			return
		}
		c.Next()
	}
}
