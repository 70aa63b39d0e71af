package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizdeck/quizdeck-backend/internal/activity"
	"github.com/quizdeck/quizdeck-backend/internal/auth"
)

// ActivityLogMiddleware appends an audit entry for every authenticated
// mutating request. Runs last in the chain so it only records requests that
// passed auth and rate limiting.
func ActivityLogMiddleware(recorder *activity.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			return
		}
		uid := auth.UserFirebaseUID(c)
		if uid == "" {
			return
		}

		recorder.Record(c.Request.Context(), activity.Entry{
			UID:    uid,
			Action: "api_request",
			Details: map[string]interface{}{
				"method": c.Request.Method,
				"path":   c.FullPath(),
				"status": c.Writer.Status(),
			},
		})
	}
}
