package middleware

import (
	"github.com/gin-gonic/gin"

	"pages-chatbot-platform/internal/auth"
	"pages-chatbot-platform/internal/config"
	"pages-chatbot-platform/utils"
)

const contextUIDKey = "uid"

// RequireSession verifies the owner session cookie and stores the caller's
// uid in the request context. Visitor endpoints (chat) do not use this.
func RequireSession(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(cfg.SessionCookieName)
		if err != nil || cookie == "" {
			utils.RespondWithUnauthorized(c, "Missing session cookie")
			c.Abort()
			return
		}

		uid, err := auth.VerifySessionCookie(cookie, []byte(cfg.SessionSecret))
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid or expired session")
			c.Abort()
			return
		}

		c.Set(contextUIDKey, uid)
		c.Next()
	}
}

// GetUID returns the authenticated uid set by RequireSession.
func GetUID(c *gin.Context) string {
	if v, exists := c.Get(contextUIDKey); exists {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
