package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docgate-backend/internal/shared/server/respond"
)

const actorIDKey = "actorId"

// ServerAuth gates the broker-facing surface behind a shared server key.
// Carriers never hold this key; their only entry point is the public
// token-resolve route, which is mounted outside this middleware.
//
// In dev-like environments an empty configured key disables the check so the
// API can be exercised locally without secrets.
func ServerAuth(apiKey, env string) gin.HandlerFunc {
	devBypass := strings.TrimSpace(apiKey) == "" && isDevLike(env)
	return func(c *gin.Context) {
		if !devBypass {
			header := strings.TrimSpace(c.GetHeader("Authorization"))
			if !strings.HasPrefix(header, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid server key", nil)
				return
			}
			supplied := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(apiKey)) != 1 {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid server key", nil)
				return
			}
		}

		if actorID := strings.TrimSpace(c.GetHeader("X-Actor-Id")); actorID != "" {
			c.Set(actorIDKey, actorID)
		}
		c.Next()
	}
}

// ActorIDFromContext fetches the acting broker user recorded by ServerAuth.
// Empty when the caller did not identify an individual actor.
func ActorIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(actorIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
