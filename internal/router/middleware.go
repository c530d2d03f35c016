package router

import (
	"net/http"

	"vcheck-go/internal/handlers"
	"vcheck-go/internal/session"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// SessionLoader checks the cookie for a server-side session ID. If the
// referenced session is still live it is added to the context; a stale ID
// is cleared so we don't carry zombie cookies for destroyed sessions.
func SessionLoader(manager *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookieSession := sessions.Default(c)
		id, ok := cookieSession.Get(handlers.SessionIDKey).(string)
		if !ok {
			c.Next()
			return
		}

		testSession, found := manager.Get(id)
		if !found {
			cookieSession.Delete(handlers.SessionIDKey)
			cookieSession.Save()
			c.Next()
			return
		}

		c.Set(handlers.SessionContextKey, testSession)
		c.Next()
	}
}

// SessionRequired rejects requests without a live test session.
func SessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(handlers.SessionContextKey); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity verification required"})
			return
		}
		c.Next()
	}
}

// AdminRequired rejects requests without an authenticated admin session.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookieSession := sessions.Default(c)
		if cookieSession.Get(handlers.AdminIDKey) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin login required"})
			return
		}
		c.Next()
	}
}
