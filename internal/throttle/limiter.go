package throttle

import (
	"context"
	"net/http"

	"profile-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Limiter admits or refuses work for a key. When ok is true the caller must
// invoke release once the work is done.
type Limiter interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

func noop() {}

// Middleware limits requests per client IP under the given scope. Limiter
// errors fail open so an unavailable backend does not lock users out.
func Middleware(l Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := scope + ":" + c.ClientIP()

		release, ok, err := l.Acquire(c.Request.Context(), key)
		if err != nil {
			logger.FromGin(c).Warn("throttle unavailable, admitting request", "scope", scope, "err", err)
			c.Next()
			return
		}
		if !ok {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":  "rate_limited",
				"error": "too many requests",
			})
			return
		}
		defer release()
		c.Next()
	}
}
