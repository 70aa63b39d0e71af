package middleware

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quizdeck/quizdeck-backend/internal/auth"
	"github.com/quizdeck/quizdeck-backend/internal/cache"
)

const rateLimitWindow = time.Minute

// RateLimitMiddleware caps requests per user (or per client IP when
// unauthenticated) in fixed one-minute windows, counted in the shared cache
// so limits hold across instances. A cache outage fails open.
func RateLimitMiddleware(c *cache.Cache, perMinute int) gin.HandlerFunc {
	return func(gc *gin.Context) {
		if c == nil || perMinute <= 0 {
			gc.Next()
			return
		}

		subject := auth.UserFirebaseUID(gc)
		if subject == "" {
			subject = gc.ClientIP()
		}
		window := time.Now().Unix() / int64(rateLimitWindow.Seconds())
		key := fmt.Sprintf("ratelimit:%s:%d", subject, window)

		count, err := c.Increment(gc.Request.Context(), key, rateLimitWindow)
		if err != nil {
			log.Printf("[warn] operation=rate_limit subject=%s error=%v", subject, err)
			gc.Next()
			return
		}
		if count > int64(perMinute) {
			gc.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded, slow down"})
			gc.Abort()
			return
		}

		gc.Next()
	}
}
